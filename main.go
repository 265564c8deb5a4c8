package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"lecterm/internal/config"
	"lecterm/internal/content"
	"lecterm/internal/domain"
	"lecterm/internal/eventbus"
	"lecterm/internal/playback"
	"lecterm/internal/player"
	"lecterm/internal/search"
	"lecterm/internal/ui"
	"lecterm/internal/ui/screen"
	"lecterm/internal/wakelock"
)

// forwardedEvents are the bus events the UI re-renders on.
var forwardedEvents = []eventbus.EventType{
	domain.EventTimeChanged,
	domain.EventDurationChanged,
	domain.EventPhaseChanged,
	domain.EventVolumeChanged,
	domain.EventSpeedChanged,
	domain.EventPageChanged,
	domain.EventPagesLoaded,
	domain.EventSearchUpdated,
	domain.EventSearchCleared,
	domain.EventFullscreenChanged,
	domain.EventControlsChanged,
	domain.EventError,
}

func main() {
	// Parse command line arguments
	var contentSrc string
	var mediaSrc string
	var mpvSocket string
	flag.StringVar(&contentSrc, "content", "", "Lecture content payload (file path or URL)")
	flag.StringVar(&contentSrc, "c", "", "Lecture content payload (shorthand)")
	flag.StringVar(&mediaSrc, "media", "", "Media file or URL (overrides the payload's media field)")
	flag.StringVar(&mpvSocket, "socket", "", "Attach to an existing mpv IPC socket instead of launching mpv")
	flag.Parse()

	if contentSrc == "" && flag.NArg() > 0 {
		contentSrc = flag.Arg(0)
	}
	if contentSrc == "" {
		fmt.Println("Usage: lecterm [-m media] <content.json|url>")
		os.Exit(1)
	}

	// Set up logging
	logFile, err := os.OpenFile("lecterm.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Could not open log file: %v", err)
	} else {
		defer logFile.Close()
		log.SetOutput(logFile)
	}

	// Create event bus
	bus := eventbus.New()

	// Load configuration
	configSvc := config.NewConfigServiceWithBus(bus)
	cfg, err := configSvc.Load()
	if err != nil {
		log.Printf("Error loading config: %v", err)
		cfg = config.DefaultConfig()
	}

	// Load the lecture payload
	lecture, err := content.Load(contentSrc)
	if err != nil {
		fmt.Printf("Error loading content: %v\n", err)
		os.Exit(1)
	}
	if mediaSrc == "" {
		mediaSrc = lecture.Media
	}
	log.Printf("Loaded %d pages from %s", len(lecture.Pages), contentSrc)

	// Create the stores
	playbackStore := playback.NewStore(bus)
	playbackStore.SetVolume(float64(cfg.Settings.Volume))
	if cfg.Settings.Muted {
		playbackStore.ToggleMute()
	}
	playbackStore.SetPlaybackSpeed(cfg.Settings.Speed)

	contentStore := search.NewStore(bus, playbackStore)
	contentStore.SetPages(lecture.Pages)
	playbackStore.SetPageCount(len(lecture.Pages))

	synchronizer := playback.NewSynchronizer(playbackStore, contentStore.Pages)
	unbindSync := synchronizer.Bind(bus)
	defer unbindSync()

	screenCtl := screen.NewController(bus)
	wake := wakelock.New()

	// Bind the playback engine. Failure is recoverable: the UI still runs,
	// with the phase reflecting the missing engine on the first play attempt.
	var engine *player.MPV
	if mpvSocket != "" {
		engine, err = player.Connect(mpvSocket)
	} else if mediaSrc != "" {
		engine, err = player.Start(mediaSrc, "")
	} else {
		err = fmt.Errorf("no media source in payload and none given with -media")
	}
	if err != nil {
		engine = nil
		log.Printf("Error starting playback engine: %v", err)
		bus.Publish(domain.ErrorEvent{Message: "playback engine unavailable", Err: err})
	} else {
		playbackStore.Attach(engine)
	}

	// Create the UI model and program
	uiModel := ui.NewModel(bus, cfg, playbackStore, contentStore, synchronizer, screenCtl, wake, lecture.Title)
	p := tea.NewProgram(uiModel,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	)
	uiModel.SetProgram(p)

	// Forward bus events into the UI loop
	eventChan := make(chan eventbus.DomainEvent, 100)
	forward := func(e eventbus.DomainEvent) {
		select {
		case eventChan <- e:
		default:
			log.Println("Event channel full, dropping event")
		}
	}
	for _, t := range forwardedEvents {
		bus.Subscribe(t, forward)
	}
	go func() {
		for event := range eventChan {
			p.Send(ui.EventMsg{Event: event})
		}
	}()

	// Run the UI
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}

	// Cleanup
	wake.Release()
	playbackStore.Detach()
	if engine != nil {
		if err := engine.Close(); err != nil {
			log.Printf("Error closing engine: %v", err)
		}
	}

	// Persist user preferences
	cfg.Settings.Volume = playbackStore.Volume()
	cfg.Settings.Muted = playbackStore.Muted()
	cfg.Settings.Speed = playbackStore.Speed()
	if err := configSvc.Save(cfg); err != nil {
		log.Printf("Failed to save config: %v", err)
	}
}
