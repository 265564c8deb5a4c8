// Package playback owns the playback control state, the live engine binding,
// and the page/time synchronization logic.
package playback

import (
	"log"
	"math"
	"sync"

	"lecterm/internal/domain"
	"lecterm/internal/eventbus"
	"lecterm/internal/player"
)

// Speed and volume policy constants.
const (
	MinSpeed  = 0.25
	MaxSpeed  = 2.0
	SpeedStep = 0.25

	// DefaultUnmuteVolume is used when unmuting with no usable previous volume.
	DefaultUnmuteVolume = 50
)

// Store owns volume, mute, speed, phase, time, the page cursor and the
// exclusive binding to the live playback engine. All engine failures are
// logged and folded into state; nothing here throws at the caller.
type Store struct {
	mu  sync.RWMutex
	bus eventbus.EventBus

	engine player.Engine
	unsubs []func()

	volume     int
	muted      bool
	prevVolume int // last nonzero volume, for unmute restore
	speed      float64

	currentTimeMs float64
	totalTimeMs   float64
	phase         domain.PlaybackPhase
	seeking       bool

	currentPage int // 1-based
	pageCount   int
}

// NewStore creates a playback store with default state.
func NewStore(bus eventbus.EventBus) *Store {
	return &Store{
		bus:         bus,
		volume:      100,
		prevVolume:  100,
		speed:       1.0,
		phase:       domain.PhasePaused,
		currentPage: 1,
	}
}

// Attach binds the store to a playback engine. Any previous binding is fully
// torn down first, so exactly one set of subscriptions is live afterwards.
// The store's volume, mute and speed are pushed onto the engine, and the
// engine position is moved to the store's current time when nonzero.
func (s *Store) Attach(engine player.Engine) {
	s.mu.Lock()
	s.teardownLocked()
	s.engine = engine
	if engine == nil {
		s.mu.Unlock()
		return
	}
	volume := s.volume
	muted := s.muted
	speed := s.speed
	timeMs := s.currentTimeMs
	s.mu.Unlock()

	// Push state before subscribing so the first notifications reflect it.
	if err := engine.SetVolume(float64(volume)); err != nil {
		log.Printf("playback: failed to push volume: %v", err)
	}
	if err := engine.SetMuted(muted); err != nil {
		log.Printf("playback: failed to push mute: %v", err)
	}
	if err := engine.SetRate(speed); err != nil {
		log.Printf("playback: failed to push speed: %v", err)
	}
	if timeMs != 0 {
		if err := engine.SeekTo(math.Max(0, timeMs/1000)); err != nil {
			log.Printf("playback: failed to restore position: %v", err)
		}
	}

	unsubs := []func(){
		engine.Subscribe(player.EventTime, s.handleTime),
		engine.Subscribe(player.EventDuration, s.handleDuration),
		engine.Subscribe(player.EventPlay, s.handlePlay),
		engine.Subscribe(player.EventPause, s.handlePause),
		engine.Subscribe(player.EventEnded, s.handleEnded),
		engine.Subscribe(player.EventError, s.handleError),
		engine.Subscribe(player.EventVolume, s.handleVolume),
		engine.Subscribe(player.EventRate, s.handleRate),
	}

	s.mu.Lock()
	if s.engine == engine {
		s.unsubs = unsubs
		s.mu.Unlock()
		return
	}
	// A concurrent Attach/Detach won the binding; drop our subscriptions.
	s.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
}

// Detach removes all engine subscriptions and clears the binding.
// Safe to call when nothing is attached.
func (s *Store) Detach() {
	s.mu.Lock()
	s.teardownLocked()
	s.mu.Unlock()
}

func (s *Store) teardownLocked() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	s.engine = nil
}

// Play starts playback. A rejected play is logged and moves the phase to
// error; it is a reported condition, not a failure surfaced to the caller.
func (s *Store) Play() {
	engine := s.currentEngine()
	if engine == nil {
		log.Printf("playback: play requested with no engine attached")
		return
	}
	if err := engine.Play(); err != nil {
		log.Printf("playback: play failed: %v", err)
		s.setPhase(domain.PhaseError)
		return
	}
	s.setPhase(domain.PhasePlaying)
}

// Pause suspends playback.
func (s *Store) Pause() {
	engine := s.currentEngine()
	if engine == nil {
		return
	}
	if err := engine.Pause(); err != nil {
		log.Printf("playback: pause failed: %v", err)
		return
	}
	s.setPhase(domain.PhasePaused)
}

// TogglePlayPause plays when paused or ended, otherwise pauses.
func (s *Store) TogglePlayPause() {
	switch s.Phase() {
	case domain.PhasePaused, domain.PhaseEnded:
		s.Play()
	default:
		s.Pause()
	}
}

// SeekTo moves the playback position to an absolute millisecond offset.
// Non-finite input is rejected. The engine position is clamped to >= 0 but
// the store's own time field keeps the requested value unclamped.
func (s *Store) SeekTo(ms float64) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return
	}
	s.mu.Lock()
	s.currentTimeMs = ms
	engine := s.engine
	s.mu.Unlock()

	if engine != nil {
		if err := engine.SeekTo(math.Max(0, ms/1000)); err != nil {
			log.Printf("playback: seek failed: %v", err)
		}
	}
	s.publish(domain.TimeChangedEvent{Ms: ms})
}

// SetVolume sets the volume, clamped to [0,100] and rounded. It always
// clears mute and records the result as the unmute restore volume when
// nonzero.
func (s *Store) SetVolume(v float64) {
	if math.IsNaN(v) {
		return
	}
	vol := int(math.Round(v))
	if vol < 0 {
		vol = 0
	}
	if vol > 100 {
		vol = 100
	}

	s.mu.Lock()
	s.volume = vol
	s.muted = false
	if vol != 0 {
		s.prevVolume = vol
	}
	engine := s.engine
	s.mu.Unlock()

	if engine != nil {
		if err := engine.SetVolume(float64(vol)); err != nil {
			log.Printf("playback: failed to set volume: %v", err)
		}
		if err := engine.SetMuted(false); err != nil {
			log.Printf("playback: failed to unmute: %v", err)
		}
	}
	s.publish(domain.VolumeChangedEvent{Volume: vol, Muted: false})
}

// AdjustVolume shifts the volume by a delta, with the same clamping and
// mute-clearing behavior as SetVolume.
func (s *Store) AdjustVolume(delta int) {
	s.mu.RLock()
	vol := s.volume
	s.mu.RUnlock()
	s.SetVolume(float64(vol + delta))
}

// ToggleMute flips the mute flag. Muting records the current volume for
// later restore when it is nonzero and leaves the engine's numeric volume
// untouched; unmuting restores the previous nonzero volume, falling back to
// the current volume and finally to a default.
func (s *Store) ToggleMute() {
	s.mu.Lock()
	var volume int
	var muted bool
	if s.muted {
		restore := s.prevVolume
		if restore == 0 {
			restore = s.volume
		}
		if restore == 0 {
			restore = DefaultUnmuteVolume
		}
		s.volume = restore
		s.muted = false
	} else {
		if s.volume != 0 {
			s.prevVolume = s.volume
		}
		s.muted = true
	}
	volume = s.volume
	muted = s.muted
	engine := s.engine
	s.mu.Unlock()

	if engine != nil {
		if !muted {
			if err := engine.SetVolume(float64(volume)); err != nil {
				log.Printf("playback: failed to restore volume: %v", err)
			}
		}
		if err := engine.SetMuted(muted); err != nil {
			log.Printf("playback: failed to set mute: %v", err)
		}
	}
	s.publish(domain.VolumeChangedEvent{Volume: volume, Muted: muted})
}

// SetPlaybackSpeed sets the rate, clamped to [MinSpeed, MaxSpeed].
func (s *Store) SetPlaybackSpeed(v float64) {
	if math.IsNaN(v) {
		return
	}
	if v < MinSpeed {
		v = MinSpeed
	}
	if v > MaxSpeed {
		v = MaxSpeed
	}

	s.mu.Lock()
	s.speed = v
	engine := s.engine
	s.mu.Unlock()

	if engine != nil {
		if err := engine.SetRate(v); err != nil {
			log.Printf("playback: failed to set speed: %v", err)
		}
	}
	s.publish(domain.SpeedChangedEvent{Speed: v})
}

// SpeedUp raises the rate by one step.
func (s *Store) SpeedUp() {
	s.SetPlaybackSpeed(s.Speed() + SpeedStep)
}

// SpeedDown lowers the rate by one step.
func (s *Store) SpeedDown() {
	s.SetPlaybackSpeed(s.Speed() - SpeedStep)
}

// ResetSpeed restores the normal playback rate.
func (s *Store) ResetSpeed() {
	s.SetPlaybackSpeed(1.0)
}

// StartSeeking suspends engine-driven time updates while the user drags the
// position control.
func (s *Store) StartSeeking() {
	s.mu.Lock()
	s.seeking = true
	s.mu.Unlock()
}

// StopSeeking re-enables time updates and resynchronizes the store time from
// the live engine position.
func (s *Store) StopSeeking() {
	s.mu.Lock()
	s.seeking = false
	engine := s.engine
	s.mu.Unlock()

	if engine == nil {
		return
	}
	pos, err := engine.Position()
	if err != nil {
		log.Printf("playback: failed to read position: %v", err)
		return
	}
	ms := pos * 1000
	s.mu.Lock()
	s.currentTimeMs = ms
	s.mu.Unlock()
	s.publish(domain.TimeChangedEvent{Ms: ms})
}

// SetPage moves the page cursor. It reports failure without mutating when
// there are no pages, the target equals the current page, or the target is
// out of [1, pageCount].
func (s *Store) SetPage(n int) bool {
	s.mu.Lock()
	if s.pageCount <= 0 || n == s.currentPage || n < 1 || n > s.pageCount {
		s.mu.Unlock()
		return false
	}
	s.currentPage = n
	total := s.pageCount
	s.mu.Unlock()

	s.publish(domain.PageChangedEvent{Page: n, Total: total})
	return true
}

// NextPage advances the page cursor.
func (s *Store) NextPage() bool {
	return s.SetPage(s.CurrentPage() + 1)
}

// PrevPage retreats the page cursor.
func (s *Store) PrevPage() bool {
	return s.SetPage(s.CurrentPage() - 1)
}

// SetPageCount installs a new page count after a content load and resets the
// cursor to the first page.
func (s *Store) SetPageCount(n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	s.pageCount = n
	changed := s.currentPage != 1
	s.currentPage = 1
	s.mu.Unlock()

	if changed && n > 0 {
		s.publish(domain.PageChangedEvent{Page: 1, Total: n})
	}
}

// Engine event handlers. These arrive from the engine's reader goroutine.

func (s *Store) handleTime(ev player.Event) {
	s.mu.Lock()
	if s.seeking {
		// The user is dragging the position control; ignore engine time.
		s.mu.Unlock()
		return
	}
	ms := ev.Seconds * 1000
	s.currentTimeMs = ms
	s.mu.Unlock()
	s.publish(domain.TimeChangedEvent{Ms: ms})
}

func (s *Store) handleDuration(ev player.Event) {
	ms := ev.Seconds * 1000
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		ms = 0
	}
	s.mu.Lock()
	s.totalTimeMs = ms
	s.mu.Unlock()
	s.publish(domain.DurationChangedEvent{Ms: ms})
}

func (s *Store) handlePlay(player.Event) {
	s.setPhase(domain.PhasePlaying)
}

func (s *Store) handlePause(player.Event) {
	s.setPhase(domain.PhasePaused)
}

func (s *Store) handleEnded(player.Event) {
	s.setPhase(domain.PhaseEnded)
}

func (s *Store) handleError(ev player.Event) {
	log.Printf("playback: engine error: %v", ev.Err)
	s.setPhase(domain.PhaseError)
}

func (s *Store) handleVolume(ev player.Event) {
	vol := int(math.Round(ev.Volume))
	if vol < 0 {
		vol = 0
	}
	if vol > 100 {
		vol = 100
	}

	s.mu.Lock()
	if vol == s.volume && ev.Muted == s.muted {
		// Echo of a store-initiated push; applying it would feed back.
		s.mu.Unlock()
		return
	}
	s.volume = vol
	s.muted = ev.Muted
	if vol != 0 {
		s.prevVolume = vol
	}
	s.mu.Unlock()
	s.publish(domain.VolumeChangedEvent{Volume: vol, Muted: ev.Muted})
}

func (s *Store) handleRate(ev player.Event) {
	s.mu.Lock()
	if math.Abs(ev.Rate-s.speed) < 0.001 {
		s.mu.Unlock()
		return
	}
	s.speed = ev.Rate
	s.mu.Unlock()
	s.publish(domain.SpeedChangedEvent{Speed: ev.Rate})
}

func (s *Store) setPhase(p domain.PlaybackPhase) {
	s.mu.Lock()
	if s.phase == p {
		s.mu.Unlock()
		return
	}
	s.phase = p
	s.mu.Unlock()
	s.publish(domain.PhaseChangedEvent{Phase: p})
}

func (s *Store) currentEngine() player.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

func (s *Store) publish(ev eventbus.DomainEvent) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

// Accessors

// Volume returns the stored numeric volume.
func (s *Store) Volume() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

// EffectiveVolume returns the volume as perceived by the user: zero while
// muted regardless of the stored value.
func (s *Store) EffectiveVolume() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.muted {
		return 0
	}
	return s.volume
}

// Muted reports whether output is suppressed.
func (s *Store) Muted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.muted
}

// Speed returns the playback rate.
func (s *Store) Speed() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.speed
}

// CurrentTimeMs returns the playback position in milliseconds.
func (s *Store) CurrentTimeMs() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentTimeMs
}

// TotalTimeMs returns the media duration in milliseconds, zero when unknown.
func (s *Store) TotalTimeMs() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalTimeMs
}

// Phase returns the playback phase.
func (s *Store) Phase() domain.PlaybackPhase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Seeking reports whether a user drag is suppressing time sync.
func (s *Store) Seeking() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seeking
}

// CurrentPage returns the 1-based page cursor.
func (s *Store) CurrentPage() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentPage
}

// PageCount returns the number of loaded pages.
func (s *Store) PageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageCount
}
