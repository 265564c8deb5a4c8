package playback

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"lecterm/internal/domain"
	"lecterm/internal/eventbus"
	"lecterm/internal/player"
)

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []eventbus.DomainEvent
}

func (b *recordingBus) Publish(e eventbus.DomainEvent) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

func (b *recordingBus) Subscribe(eventbus.EventType, eventbus.EventHandler) func() {
	return func() {}
}

func (b *recordingBus) ofType(t eventbus.EventType) []eventbus.DomainEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []eventbus.DomainEvent
	for _, e := range b.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

func (b *recordingBus) reset() {
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}

// fakeEngine implements player.Engine for testing.
type fakeEngine struct {
	mu     sync.Mutex
	nextID int
	subs   map[player.EventKind]map[int]func(player.Event)

	playErr  error
	position float64

	volume []float64
	muted  []bool
	rates  []float64
	seeks  []float64

	playCalls  int
	pauseCalls int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{subs: make(map[player.EventKind]map[int]func(player.Event))}
}

func (f *fakeEngine) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playCalls++
	return f.playErr
}

func (f *fakeEngine) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauseCalls++
	return nil
}

func (f *fakeEngine) SeekTo(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, seconds)
	return nil
}

func (f *fakeEngine) SetVolume(percent float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = append(f.volume, percent)
	return nil
}

func (f *fakeEngine) SetMuted(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = append(f.muted, muted)
	return nil
}

func (f *fakeEngine) SetRate(rate float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates = append(f.rates, rate)
	return nil
}

func (f *fakeEngine) Position() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position, nil
}

func (f *fakeEngine) Subscribe(kind player.EventKind, fn func(player.Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	m := f.subs[kind]
	if m == nil {
		m = make(map[int]func(player.Event))
		f.subs[kind] = m
	}
	m[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.subs[kind], id)
		f.mu.Unlock()
	}
}

func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) emit(ev player.Event) {
	f.mu.Lock()
	var fns []func(player.Event)
	for _, fn := range f.subs[ev.Kind] {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (f *fakeEngine) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.subs {
		n += len(m)
	}
	return n
}

func (f *fakeEngine) lastSeek() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.seeks) == 0 {
		return 0, false
	}
	return f.seeks[len(f.seeks)-1], true
}

func TestAttachReplacesPreviousBinding(t *testing.T) {
	s := NewStore(nil)
	a := newFakeEngine()
	b := newFakeEngine()

	s.Attach(a)
	require.Equal(t, 8, a.listenerCount())

	s.Attach(b)
	require.Equal(t, 0, a.listenerCount(), "old engine must hold no listeners")
	require.Equal(t, 8, b.listenerCount())

	s.Detach()
	require.Equal(t, 0, b.listenerCount())
}

func TestAttachPushesStoredState(t *testing.T) {
	s := NewStore(nil)
	s.SetVolume(80)
	s.SetPlaybackSpeed(1.5)
	s.SeekTo(5000)

	e := newFakeEngine()
	s.Attach(e)

	e.mu.Lock()
	defer e.mu.Unlock()
	require.Contains(t, e.volume, 80.0)
	require.Contains(t, e.muted, false)
	require.Contains(t, e.rates, 1.5)
	require.Contains(t, e.seeks, 5.0)
}

func TestAttachSkipsSeekAtZero(t *testing.T) {
	s := NewStore(nil)
	e := newFakeEngine()
	s.Attach(e)

	_, seeked := e.lastSeek()
	require.False(t, seeked, "no position to restore at time zero")
}

func TestSetVolumeClampsAndUnmutes(t *testing.T) {
	s := NewStore(nil)
	e := newFakeEngine()
	s.Attach(e)
	s.ToggleMute()

	s.SetVolume(150)

	require.Equal(t, 100, s.Volume())
	require.False(t, s.Muted())
	e.mu.Lock()
	defer e.mu.Unlock()
	require.Contains(t, e.volume, 100.0)
	require.Equal(t, false, e.muted[len(e.muted)-1])
}

func TestSetVolumeNegativeClampsToZero(t *testing.T) {
	s := NewStore(nil)
	s.SetVolume(-10)
	require.Equal(t, 0, s.Volume())
}

func TestAdjustVolume(t *testing.T) {
	s := NewStore(nil)
	s.SetVolume(50)
	s.AdjustVolume(5)
	require.Equal(t, 55, s.Volume())
	s.AdjustVolume(-60)
	require.Equal(t, 0, s.Volume())
}

func TestToggleMuteRestoresPreviousVolume(t *testing.T) {
	s := NewStore(nil)
	e := newFakeEngine()
	s.Attach(e)
	s.SetVolume(75)

	s.ToggleMute()
	require.True(t, s.Muted())
	require.Equal(t, 75, s.Volume(), "numeric volume survives muting")
	require.Equal(t, 0, s.EffectiveVolume())

	s.ToggleMute()
	require.False(t, s.Muted())
	require.Equal(t, 75, s.Volume())
	require.Equal(t, 75, s.EffectiveVolume())
}

func TestSeekToRejectsNonFinite(t *testing.T) {
	s := NewStore(nil)
	e := newFakeEngine()
	s.Attach(e)
	s.SeekTo(3000)

	s.SeekTo(math.NaN())
	s.SeekTo(math.Inf(1))

	require.Equal(t, 3000.0, s.CurrentTimeMs())
	last, ok := e.lastSeek()
	require.True(t, ok)
	require.Equal(t, 3.0, last)
}

func TestSeekToNegativeStoresUnclamped(t *testing.T) {
	bus := &recordingBus{}
	s := NewStore(bus)
	e := newFakeEngine()
	s.Attach(e)

	s.SeekTo(-500)

	require.Equal(t, -500.0, s.CurrentTimeMs())
	last, ok := e.lastSeek()
	require.True(t, ok)
	require.Equal(t, 0.0, last, "engine position is clamped to zero")

	events := bus.ofType(domain.EventTimeChanged)
	require.NotEmpty(t, events)
	require.Equal(t, -500.0, events[len(events)-1].(domain.TimeChangedEvent).Ms)
}

func TestEngineTimeIgnoredWhileSeeking(t *testing.T) {
	s := NewStore(nil)
	e := newFakeEngine()
	s.Attach(e)

	e.emit(player.Event{Kind: player.EventTime, Seconds: 1})
	require.Equal(t, 1000.0, s.CurrentTimeMs())

	s.StartSeeking()
	e.emit(player.Event{Kind: player.EventTime, Seconds: 9})
	require.Equal(t, 1000.0, s.CurrentTimeMs(), "engine time must not move the store mid-drag")

	e.position = 12
	s.StopSeeking()
	require.Equal(t, 12000.0, s.CurrentTimeMs(), "store resyncs from engine position")
	require.False(t, s.Seeking())
}

func TestNonFiniteDurationBecomesZero(t *testing.T) {
	s := NewStore(nil)
	e := newFakeEngine()
	s.Attach(e)

	e.emit(player.Event{Kind: player.EventDuration, Seconds: 120})
	require.Equal(t, 120000.0, s.TotalTimeMs())

	e.emit(player.Event{Kind: player.EventDuration, Seconds: math.NaN()})
	require.Equal(t, 0.0, s.TotalTimeMs())
}

func TestVolumeEchoSuppressed(t *testing.T) {
	bus := &recordingBus{}
	s := NewStore(bus)
	e := newFakeEngine()
	s.Attach(e)
	s.SetVolume(60)
	bus.reset()

	// The engine confirming the value we pushed must not feed back.
	e.emit(player.Event{Kind: player.EventVolume, Volume: 60, Muted: false})
	require.Empty(t, bus.ofType(domain.EventVolumeChanged))

	// A genuine external change does propagate.
	e.emit(player.Event{Kind: player.EventVolume, Volume: 30, Muted: false})
	require.Equal(t, 30, s.Volume())
	require.Len(t, bus.ofType(domain.EventVolumeChanged), 1)
}

func TestRateEchoSuppressed(t *testing.T) {
	bus := &recordingBus{}
	s := NewStore(bus)
	e := newFakeEngine()
	s.Attach(e)
	s.SetPlaybackSpeed(1.5)
	bus.reset()

	e.emit(player.Event{Kind: player.EventRate, Rate: 1.5})
	require.Empty(t, bus.ofType(domain.EventSpeedChanged))

	e.emit(player.Event{Kind: player.EventRate, Rate: 0.75})
	require.Equal(t, 0.75, s.Speed())
	require.Len(t, bus.ofType(domain.EventSpeedChanged), 1)
}

func TestSpeedStepsAndClamping(t *testing.T) {
	s := NewStore(nil)
	require.Equal(t, 1.0, s.Speed())

	s.SpeedUp()
	s.SpeedUp()
	s.SpeedUp()
	require.Equal(t, 1.75, s.Speed())

	s.SetPlaybackSpeed(5)
	require.Equal(t, MaxSpeed, s.Speed())
	s.SpeedUp()
	require.Equal(t, MaxSpeed, s.Speed())

	s.SetPlaybackSpeed(0.1)
	require.Equal(t, MinSpeed, s.Speed())
	s.SpeedDown()
	require.Equal(t, MinSpeed, s.Speed())

	s.ResetSpeed()
	require.Equal(t, 1.0, s.Speed())
}

func TestPlayPauseAndPhases(t *testing.T) {
	s := NewStore(nil)
	e := newFakeEngine()
	s.Attach(e)

	require.Equal(t, domain.PhasePaused, s.Phase())

	s.TogglePlayPause()
	require.Equal(t, domain.PhasePlaying, s.Phase())
	require.Equal(t, 1, e.playCalls)

	s.TogglePlayPause()
	require.Equal(t, domain.PhasePaused, s.Phase())
	require.Equal(t, 1, e.pauseCalls)

	e.emit(player.Event{Kind: player.EventEnded})
	require.Equal(t, domain.PhaseEnded, s.Phase())

	// Toggling from ended restarts.
	s.TogglePlayPause()
	require.Equal(t, domain.PhasePlaying, s.Phase())
	require.Equal(t, 2, e.playCalls)
}

func TestPlayFailureSetsErrorPhase(t *testing.T) {
	s := NewStore(nil)
	e := newFakeEngine()
	e.playErr = errors.New("backend rejected play")
	s.Attach(e)

	s.Play()
	require.Equal(t, domain.PhaseError, s.Phase())
}

func TestPlayWithoutEngine(t *testing.T) {
	s := NewStore(nil)
	s.Play()
	require.Equal(t, domain.PhasePaused, s.Phase())
}

func TestEngineErrorSetsErrorPhase(t *testing.T) {
	s := NewStore(nil)
	e := newFakeEngine()
	s.Attach(e)

	e.emit(player.Event{Kind: player.EventError, Err: errors.New("decode failed")})
	require.Equal(t, domain.PhaseError, s.Phase())
}

func TestPageCursor(t *testing.T) {
	bus := &recordingBus{}
	s := NewStore(bus)
	s.SetPageCount(5)
	require.Equal(t, 1, s.CurrentPage())

	require.False(t, s.SetPage(0), "below range")
	require.False(t, s.SetPage(6), "above range")
	require.False(t, s.SetPage(1), "already current")
	require.Empty(t, bus.ofType(domain.EventPageChanged))

	require.True(t, s.SetPage(3))
	require.Equal(t, 3, s.CurrentPage())
	require.True(t, s.NextPage())
	require.Equal(t, 4, s.CurrentPage())
	require.True(t, s.PrevPage())
	require.Equal(t, 3, s.CurrentPage())
	require.Len(t, bus.ofType(domain.EventPageChanged), 3)
}

func TestSetPageWithNoPages(t *testing.T) {
	s := NewStore(nil)
	require.False(t, s.SetPage(1))
	require.False(t, s.NextPage())
}

func TestSetPageCountResetsCursor(t *testing.T) {
	s := NewStore(nil)
	s.SetPageCount(10)
	s.SetPage(7)

	s.SetPageCount(3)
	require.Equal(t, 1, s.CurrentPage())
	require.Equal(t, 3, s.PageCount())
}
