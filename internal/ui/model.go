package ui

import (
	"log"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"lecterm/internal/config"
	"lecterm/internal/domain"
	"lecterm/internal/eventbus"
	"lecterm/internal/keymap"
	"lecterm/internal/playback"
	"lecterm/internal/search"
	"lecterm/internal/ui/screen"
	"lecterm/internal/wakelock"
)

// EventMsg wraps a domain event forwarded from the bus into the UI loop.
type EventMsg struct {
	Event eventbus.DomainEvent
}

// Model is the bubbletea model. It is presentational plumbing: all real
// state lives in the stores it renders and calls into.
type Model struct {
	bus     eventbus.EventBus
	cfg     *config.Config
	player  *playback.Store
	content *search.Store
	pages   *playback.Synchronizer
	screen  *screen.Controller
	wake    *wakelock.Controller

	router        *keymap.Router
	dispatcher    *keymap.Dispatcher
	removeKeys    func()
	releaseScreen func()

	title       string
	searchInput textinput.Model
	searching   bool
	seekBar     progress.Model
	showHelp    bool
	helpFn      func()

	width   int
	height  int
	visible bool
	status  string

	quitting bool
	cmds     []tea.Cmd // pending commands queued by key handlers

	// Program reference for terminal management around the pager
	program *tea.Program
}

// NewModel wires the UI to the stores and registers its key bindings.
func NewModel(
	bus eventbus.EventBus,
	cfg *config.Config,
	player *playback.Store,
	content *search.Store,
	pages *playback.Synchronizer,
	screenCtl *screen.Controller,
	wake *wakelock.Controller,
	title string,
) *Model {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "search slides"
	ti.CharLimit = 128

	m := &Model{
		bus:         bus,
		cfg:         cfg,
		player:      player,
		content:     content,
		pages:       pages,
		screen:      screenCtl,
		wake:        wake,
		title:       title,
		searchInput: ti,
		seekBar:     progress.New(progress.WithDefaultGradient()),
		visible:     true,
	}
	m.helpFn = func() { m.showHelp = !m.showHelp }

	m.router = keymap.NewRouter()
	m.dispatcher = keymap.NewDispatcher(m.buildBindings(), keymap.Options{
		IgnoreEditable: true,
	})
	m.removeKeys = m.router.Add(m.dispatcher)
	m.releaseScreen = m.screen.Acquire()

	return m
}

// SetProgram stores the program reference needed for pager handoff.
func (m *Model) SetProgram(p *tea.Program) {
	m.program = p
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.seekBar.Width = msg.Width - 4
		if m.seekBar.Width < 10 {
			m.seekBar.Width = 10
		}
		return m, nil

	case tea.FocusMsg:
		m.visible = true
		m.wake.HandleVisibilityChange(true, m.player.Phase() == domain.PhasePlaying)
		return m, nil

	case tea.BlurMsg:
		m.visible = false
		m.wake.HandleVisibilityChange(false, m.player.Phase() == domain.PhasePlaying)
		return m, nil

	case tea.MouseMsg:
		m.screen.Activity()
		return m, nil

	case EventMsg:
		m.handleEvent(msg.Event)
		return m, nil

	case transcriptPagerMsg:
		if msg.err != nil {
			log.Printf("ui: transcript pager failed: %v", msg.err)
			m.status = "transcript viewer failed"
		}
		return m, nil

	case tea.KeyMsg:
		m.screen.Activity()
		if m.showHelp && msg.String() != "?" {
			// Any other key closes the help screen.
			m.showHelp = false
			return m, nil
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		m.router.Dispatch(keyEventFrom(msg, false))
		cmds := m.takeCmds()
		if m.quitting {
			m.teardown()
			return m, tea.Quit
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

// handleEvent reacts to forwarded domain events. Most events only trigger a
// re-render; the phase drives the wake lock.
func (m *Model) handleEvent(e eventbus.DomainEvent) {
	switch ev := e.(type) {
	case domain.PhaseChangedEvent:
		if ev.Phase == domain.PhasePlaying {
			if m.visible {
				m.wake.Request()
			}
		} else {
			m.wake.Release()
		}
	case domain.ErrorEvent:
		m.status = ev.Message
	}
}

// updateSearch routes keys to the search prompt while it is focused.
func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		query := m.searchInput.Value()
		m.searching = false
		m.searchInput.Blur()
		m.content.Search(query)
		return m, nil
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		m.searchInput.Reset()
		m.content.CancelSearch()
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m *Model) startSearch() {
	m.searching = true
	m.searchInput.Reset()
	m.searchInput.Focus()
	m.queue(textinput.Blink)
}

func (m *Model) queue(cmd tea.Cmd) {
	if cmd != nil {
		m.cmds = append(m.cmds, cmd)
	}
}

func (m *Model) takeCmds() []tea.Cmd {
	cmds := m.cmds
	m.cmds = nil
	return cmds
}

func (m *Model) teardown() {
	if m.removeKeys != nil {
		m.removeKeys()
	}
	if m.releaseScreen != nil {
		m.releaseScreen()
	}
	m.wake.Release()
}
