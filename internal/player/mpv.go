package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// Property observation ids registered at connect time.
const (
	obsTimePos = 1 + iota
	obsDuration
	obsPause
	obsVolume
	obsMute
	obsSpeed
	obsEOF
)

const commandTimeout = 5 * time.Second

// MPV drives an mpv process over its JSON-IPC socket.
type MPV struct {
	mu      sync.Mutex
	conn    net.Conn
	cmd     *exec.Cmd
	closed  bool
	nextID  int64
	pending map[int64]chan mpvResponse

	subMu   sync.Mutex
	nextSub int64
	subs    map[EventKind]map[int64]func(Event)

	// Last seen volume/mute so both fields can be reported together.
	lastVolume float64
	lastMuted  bool
}

type mpvResponse struct {
	Data  json.RawMessage
	Error string
}

type mpvMessage struct {
	Event     string          `json:"event"`
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Reason    string          `json:"reason"`
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
}

// Start launches mpv for the given media and connects to its IPC socket.
// The media starts paused; the playback store decides when to play.
func Start(media, socket string) (*MPV, error) {
	if socket == "" {
		socket = filepath.Join(os.TempDir(), fmt.Sprintf("lecterm-mpv-%d.sock", os.Getpid()))
	}

	cmd := exec.Command("mpv",
		"--input-ipc-server="+socket,
		"--pause",
		"--keep-open=yes",
		"--really-quiet",
		media,
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start mpv: %w", err)
	}

	m, err := connect(socket)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}
	m.cmd = cmd
	return m, nil
}

// Connect attaches to an already running mpv instance.
func Connect(socket string) (*MPV, error) {
	return connect(socket)
}

func connect(socket string) (*MPV, error) {
	var conn net.Conn
	var err error
	// mpv creates the socket shortly after startup; retry briefly.
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err = net.Dial("unix", socket)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("failed to connect to mpv socket %s: %w", socket, err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	m := &MPV{
		conn:       conn,
		pending:    make(map[int64]chan mpvResponse),
		subs:       make(map[EventKind]map[int64]func(Event)),
		lastVolume: 100,
	}
	go m.readLoop()

	observed := []struct {
		id   int64
		name string
	}{
		{obsTimePos, "time-pos"},
		{obsDuration, "duration"},
		{obsPause, "pause"},
		{obsVolume, "volume"},
		{obsMute, "mute"},
		{obsSpeed, "speed"},
		{obsEOF, "eof-reached"},
	}
	for _, o := range observed {
		if _, err := m.command("observe_property", o.id, o.name); err != nil {
			m.Close()
			return nil, fmt.Errorf("failed to observe %s: %w", o.name, err)
		}
	}
	return m, nil
}

// Play resumes playback.
func (m *MPV) Play() error {
	return m.setProperty("pause", false)
}

// Pause suspends playback.
func (m *MPV) Pause() error {
	return m.setProperty("pause", true)
}

// SeekTo moves to an absolute position in seconds.
func (m *MPV) SeekTo(seconds float64) error {
	_, err := m.command("seek", seconds, "absolute")
	return err
}

// SetVolume sets the output volume in percent.
func (m *MPV) SetVolume(percent float64) error {
	return m.setProperty("volume", percent)
}

// SetMuted toggles output suppression.
func (m *MPV) SetMuted(muted bool) error {
	return m.setProperty("mute", muted)
}

// SetRate sets the playback speed multiplier.
func (m *MPV) SetRate(rate float64) error {
	return m.setProperty("speed", rate)
}

// Position retrieves the current playback position in seconds.
func (m *MPV) Position() (float64, error) {
	data, err := m.command("get_property", "time-pos")
	if err != nil {
		return 0, err
	}
	var pos float64
	if err := json.Unmarshal(data, &pos); err != nil {
		return 0, fmt.Errorf("failed to parse time-pos: %w", err)
	}
	return pos, nil
}

// Subscribe registers a notification callback and returns its unsubscribe.
func (m *MPV) Subscribe(kind EventKind, fn func(Event)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	m.nextSub++
	id := m.nextSub
	if m.subs[kind] == nil {
		m.subs[kind] = make(map[int64]func(Event))
	}
	m.subs[kind][id] = fn

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs[kind], id)
	}
}

// Close shuts down the IPC connection and the mpv process if we own it.
func (m *MPV) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	conn := m.conn
	cmd := m.cmd
	m.mu.Unlock()

	// Ask mpv to quit; best effort since the socket may already be gone.
	if _, err := m.command("quit"); err != nil {
		log.Printf("mpv: quit command failed: %v", err)
	}

	var err error
	if conn != nil {
		err = conn.Close()
	}
	if cmd != nil {
		done := make(chan struct{})
		go func() {
			_ = cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			_ = cmd.Process.Kill()
		}
	}
	return err
}

func (m *MPV) setProperty(name string, value interface{}) error {
	_, err := m.command("set_property", name, value)
	return err
}

// command sends one IPC command and waits for its response.
func (m *MPV) command(args ...interface{}) (json.RawMessage, error) {
	m.mu.Lock()
	if m.conn == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("mpv: not connected")
	}
	m.nextID++
	id := m.nextID
	ch := make(chan mpvResponse, 1)
	m.pending[id] = ch

	payload, err := json.Marshal(map[string]interface{}{
		"command":    args,
		"request_id": id,
	})
	if err != nil {
		delete(m.pending, id)
		m.mu.Unlock()
		return nil, err
	}
	_, err = m.conn.Write(append(payload, '\n'))
	m.mu.Unlock()
	if err != nil {
		m.dropPending(id)
		return nil, fmt.Errorf("mpv: write failed: %w", err)
	}

	select {
	case resp := <-ch:
		if resp.Error != "" && resp.Error != "success" {
			return nil, fmt.Errorf("mpv: command failed: %s", resp.Error)
		}
		return resp.Data, nil
	case <-time.After(commandTimeout):
		m.dropPending(id)
		return nil, fmt.Errorf("mpv: command timed out")
	}
}

func (m *MPV) dropPending(id int64) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
}

// readLoop consumes IPC messages until the connection closes.
func (m *MPV) readLoop() {
	scanner := bufio.NewScanner(m.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg mpvMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			log.Printf("mpv: malformed IPC message: %v", err)
			continue
		}

		if msg.Event != "" {
			m.handleEvent(msg)
			continue
		}

		m.mu.Lock()
		ch, ok := m.pending[msg.RequestID]
		if ok {
			delete(m.pending, msg.RequestID)
		}
		m.mu.Unlock()
		if ok {
			ch <- mpvResponse{Data: msg.Data, Error: msg.Error}
		}
	}

	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if !closed {
		log.Printf("mpv: IPC connection lost")
		m.emit(Event{Kind: EventError, Err: fmt.Errorf("mpv: connection lost")})
	}
}

func (m *MPV) handleEvent(msg mpvMessage) {
	switch msg.Event {
	case "property-change":
		m.handleProperty(msg)
	case "end-file":
		if msg.Reason == "error" {
			m.emit(Event{Kind: EventError, Err: fmt.Errorf("mpv: playback failed")})
		}
	}
}

func (m *MPV) handleProperty(msg mpvMessage) {
	switch msg.Name {
	case "time-pos":
		if v, ok := asFloat(msg.Data); ok {
			m.emit(Event{Kind: EventTime, Seconds: v})
		}
	case "duration":
		v, ok := asFloat(msg.Data)
		if !ok {
			// mpv reports null before the duration is known.
			v = math.NaN()
		}
		m.emit(Event{Kind: EventDuration, Seconds: v})
	case "pause":
		if v, ok := asBool(msg.Data); ok {
			if v {
				m.emit(Event{Kind: EventPause})
			} else {
				m.emit(Event{Kind: EventPlay})
			}
		}
	case "volume":
		if v, ok := asFloat(msg.Data); ok {
			m.subMu.Lock()
			m.lastVolume = v
			muted := m.lastMuted
			m.subMu.Unlock()
			m.emit(Event{Kind: EventVolume, Volume: v, Muted: muted})
		}
	case "mute":
		if v, ok := asBool(msg.Data); ok {
			m.subMu.Lock()
			m.lastMuted = v
			volume := m.lastVolume
			m.subMu.Unlock()
			m.emit(Event{Kind: EventVolume, Volume: volume, Muted: v})
		}
	case "speed":
		if v, ok := asFloat(msg.Data); ok {
			m.emit(Event{Kind: EventRate, Rate: v})
		}
	case "eof-reached":
		if v, ok := asBool(msg.Data); ok && v {
			m.emit(Event{Kind: EventEnded})
		}
	}
}

func (m *MPV) emit(ev Event) {
	m.subMu.Lock()
	fns := make([]func(Event), 0, len(m.subs[ev.Kind]))
	for _, fn := range m.subs[ev.Kind] {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func asFloat(data json.RawMessage) (float64, bool) {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, false
	}
	return v, true
}

func asBool(data json.RawMessage) (bool, bool) {
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return false, false
	}
	return v, true
}
