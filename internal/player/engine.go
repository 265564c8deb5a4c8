// Package player defines the abstraction over the external media playback
// engine and its mpv JSON-IPC implementation.
package player

// EventKind identifies a category of engine notification.
type EventKind int

const (
	EventTime     EventKind = iota // playback position changed
	EventDuration                  // total duration changed
	EventPlay                      // playback started or resumed
	EventPause                     // playback paused
	EventEnded                     // end of stream reached
	EventError                     // the engine reported a media error
	EventVolume                    // volume or mute state changed
	EventRate                      // playback rate changed
)

// Event carries the payload of an engine notification. Only the fields
// relevant to the kind are populated.
type Event struct {
	Kind    EventKind
	Seconds float64 // position or duration; may be NaN when unknown
	Volume  float64 // 0-100
	Muted   bool
	Rate    float64
	Err     error
}

// Engine is the required capability set of a media playback backend.
// All methods are safe to call from the event loop; notification callbacks
// may arrive from the engine's own reader goroutine.
type Engine interface {
	// Play starts or resumes playback.
	Play() error

	// Pause suspends playback.
	Pause() error

	// SeekTo moves the playback position to an absolute time in seconds.
	SeekTo(seconds float64) error

	// SetVolume sets the output volume in percent [0,100].
	SetVolume(percent float64) error

	// SetMuted suppresses or restores audible output without touching the
	// numeric volume.
	SetMuted(muted bool) error

	// SetRate sets the playback speed multiplier.
	SetRate(rate float64) error

	// Position retrieves the current playback position in seconds.
	Position() (float64, error)

	// Subscribe registers a callback for one kind of notification and
	// returns the matching unsubscribe function.
	Subscribe(kind EventKind, fn func(Event)) func()

	// Close terminates the engine binding and releases its resources.
	Close() error
}
