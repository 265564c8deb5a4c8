package domain

// Page is one slide of lecture content tied to a position in the recording.
type Page struct {
	TimestampMs int64  // position in the recording, milliseconds
	ImageRef    string // opaque thumbnail reference
	Text        string // decoded slide text, may be empty
}

// Lecture bundles the media reference with its ordered page list.
// Pages are ordered by ascending timestamp; the synchronizer relies on it.
type Lecture struct {
	Title string
	Media string // path or URL handed to the playback engine
	Pages []Page
}

// PlaybackPhase describes what the player is currently doing.
type PlaybackPhase string

const (
	PhasePaused  PlaybackPhase = "paused"
	PhasePlaying PlaybackPhase = "playing"
	PhaseEnded   PlaybackPhase = "ended"
	PhaseError   PlaybackPhase = "error"
)
