package domain

// EventType represents the type of domain event
type EventType string

// Event types
const (
	EventTimeChanged       EventType = "TimeChanged"
	EventDurationChanged   EventType = "DurationChanged"
	EventPhaseChanged      EventType = "PhaseChanged"
	EventVolumeChanged     EventType = "VolumeChanged"
	EventSpeedChanged      EventType = "SpeedChanged"
	EventPageChanged       EventType = "PageChanged"
	EventPagesLoaded       EventType = "PagesLoaded"
	EventSearchUpdated     EventType = "SearchUpdated"
	EventSearchCleared     EventType = "SearchCleared"
	EventFullscreenChanged EventType = "FullscreenChanged"
	EventControlsChanged   EventType = "ControlsChanged"
	EventConfigLoaded      EventType = "ConfigLoaded"
	EventConfigSaved       EventType = "ConfigSaved"
	EventError             EventType = "Error"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	Type() EventType
}

// TimeChangedEvent is emitted when the playback position changes
type TimeChangedEvent struct {
	Ms float64
}

func (e TimeChangedEvent) Type() EventType { return EventTimeChanged }

// DurationChangedEvent is emitted when the total media duration changes
type DurationChangedEvent struct {
	Ms float64
}

func (e DurationChangedEvent) Type() EventType { return EventDurationChanged }

// PhaseChangedEvent is emitted when the playback phase changes
type PhaseChangedEvent struct {
	Phase PlaybackPhase
}

func (e PhaseChangedEvent) Type() EventType { return EventPhaseChanged }

// VolumeChangedEvent is emitted when volume or mute state changes
type VolumeChangedEvent struct {
	Volume int
	Muted  bool
}

func (e VolumeChangedEvent) Type() EventType { return EventVolumeChanged }

// SpeedChangedEvent is emitted when the playback rate changes
type SpeedChangedEvent struct {
	Speed float64
}

func (e SpeedChangedEvent) Type() EventType { return EventSpeedChanged }

// PageChangedEvent is emitted when the current page moves
type PageChangedEvent struct {
	Page  int // 1-based
	Total int
}

func (e PageChangedEvent) Type() EventType { return EventPageChanged }

// PagesLoadedEvent is emitted when a content payload replaces the page list
type PagesLoadedEvent struct {
	Count int
}

func (e PagesLoadedEvent) Type() EventType { return EventPagesLoaded }

// SearchUpdatedEvent is emitted when the search query or cursor changes
type SearchUpdatedEvent struct {
	Query   string
	Matches int
	Cursor  int // index into the match list, -1 when there are no matches
}

func (e SearchUpdatedEvent) Type() EventType { return EventSearchUpdated }

// SearchClearedEvent is emitted when an active search is cancelled
type SearchClearedEvent struct{}

func (e SearchClearedEvent) Type() EventType { return EventSearchCleared }

// FullscreenChangedEvent is emitted when fullscreen mode toggles
type FullscreenChangedEvent struct {
	Fullscreen bool
}

func (e FullscreenChangedEvent) Type() EventType { return EventFullscreenChanged }

// ControlsChangedEvent is emitted when control visibility changes
type ControlsChangedEvent struct {
	Visible bool
}

func (e ControlsChangedEvent) Type() EventType { return EventControlsChanged }

// ConfigLoadedEvent is emitted after settings are read from disk
type ConfigLoadedEvent struct{}

func (e ConfigLoadedEvent) Type() EventType { return EventConfigLoaded }

// ConfigSavedEvent is emitted after settings are written to disk
type ConfigSavedEvent struct{}

func (e ConfigSavedEvent) Type() EventType { return EventConfigSaved }

// ErrorEvent is emitted when a recoverable error occurs
type ErrorEvent struct {
	Message string
	Err     error
}

func (e ErrorEvent) Type() EventType { return EventError }
