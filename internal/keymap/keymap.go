// Package keymap is a generalized key-combo matcher and router: prioritized
// bindings with guards, exact modifier matching, repeat policy, scoping and
// editable-element suppression.
package keymap

import (
	"runtime"
	"sort"
	"sync"
)

// RepeatPolicy controls whether a trigger matches auto-repeated key events.
type RepeatPolicy int

const (
	RepeatAllow RepeatPolicy = iota // initial presses and repeats
	RepeatDeny                      // initial presses only
	RepeatOnly                      // auto-repeats only
)

// Event is a normalized key-down event.
type Event struct {
	Key      string // logical key value ("k", " ", "left")
	Code     string // physical key code, when the host reports one
	Shift    bool
	Ctrl     bool
	Alt      bool
	Meta     bool
	Repeat   bool
	Editable bool // the focused element accepts text input
}

// Trigger describes one key combination. Modifier fields are exact
// requirements: a false field requires that modifier to be absent.
type Trigger struct {
	Key  string
	Code string

	Shift bool
	Ctrl  bool
	Alt   bool
	Meta  bool

	// Primary requests the platform-conventional shortcut modifier:
	// command on Apple platforms, control elsewhere.
	Primary bool

	Repeat RepeatPolicy
}

// Binding routes one or more triggers to a handler.
type Binding struct {
	Triggers []Trigger
	// Handler reports whether the event was consumed. Returning false
	// leaves the event unconsumed but still ends evaluation.
	Handler func(Event) bool
	// Guard, when set, must return true for the binding to be considered.
	Guard func() bool
	// Priority orders evaluation, highest first. Registration order breaks
	// ties.
	Priority int
}

// Options configure a Dispatcher.
type Options struct {
	// IgnoreEditable drops events whose target accepts text input.
	IgnoreEditable bool
	// Scope, when set, limits the dispatcher to events it accepts.
	Scope func(Event) bool
	// Capture places the dispatcher ahead of non-capture dispatchers in a
	// Router.
	Capture bool
}

// isApple is sniffed once at startup.
var isApple = runtime.GOOS == "darwin" || runtime.GOOS == "ios"

// Dispatcher evaluates bindings in priority order; the first match wins.
type Dispatcher struct {
	opts     Options
	enabled  bool
	bindings []Binding
}

// NewDispatcher creates a dispatcher over the given bindings. The binding
// list is sorted by descending priority; the sort is stable, so bindings
// with equal priority keep registration order.
func NewDispatcher(bindings []Binding, opts Options) *Dispatcher {
	sorted := make([]Binding, len(bindings))
	copy(sorted, bindings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return &Dispatcher{opts: opts, enabled: true, bindings: sorted}
}

// SetEnabled toggles the dispatcher.
func (d *Dispatcher) SetEnabled(on bool) {
	d.enabled = on
}

// Enabled reports whether the dispatcher handles events.
func (d *Dispatcher) Enabled() bool {
	return d.enabled
}

// Dispatch routes one event and reports whether it was consumed. Evaluation
// stops at the first trigger match even when its handler declines to consume.
func (d *Dispatcher) Dispatch(ev Event) bool {
	if !d.enabled {
		return false
	}
	if d.opts.Scope != nil && !d.opts.Scope(ev) {
		return false
	}
	if d.opts.IgnoreEditable && ev.Editable {
		return false
	}

	for i := range d.bindings {
		b := &d.bindings[i]
		if b.Guard != nil && !b.Guard() {
			continue
		}
		for _, t := range b.Triggers {
			if !t.matches(ev) {
				continue
			}
			if b.Handler == nil {
				return true
			}
			return b.Handler(ev)
		}
	}
	return false
}

func (t Trigger) matches(ev Event) bool {
	if t.Key == "" && t.Code == "" {
		return false
	}
	if t.Key != "" && t.Key != ev.Key {
		return false
	}
	if t.Code != "" && t.Code != ev.Code {
		return false
	}

	ctrl, meta := t.Ctrl, t.Meta
	if t.Primary {
		if isApple {
			meta = true
		} else {
			ctrl = true
		}
	}
	if ev.Shift != t.Shift || ev.Ctrl != ctrl || ev.Alt != t.Alt || ev.Meta != meta {
		return false
	}

	switch t.Repeat {
	case RepeatDeny:
		if ev.Repeat {
			return false
		}
	case RepeatOnly:
		if !ev.Repeat {
			return false
		}
	}
	return true
}

// Router fans key events out to registered dispatchers. Capture dispatchers
// run before the rest; within each group, registration order applies.
type Router struct {
	mu      sync.Mutex
	capture []*Dispatcher
	bubble  []*Dispatcher
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{}
}

// Add registers a dispatcher and returns the function that removes it again.
func (r *Router) Add(d *Dispatcher) func() {
	r.mu.Lock()
	if d.opts.Capture {
		r.capture = append(r.capture, d)
	} else {
		r.bubble = append(r.bubble, d)
	}
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.capture = remove(r.capture, d)
			r.bubble = remove(r.bubble, d)
			r.mu.Unlock()
		})
	}
}

// Dispatch offers the event to each dispatcher until one consumes it.
func (r *Router) Dispatch(ev Event) bool {
	r.mu.Lock()
	dispatchers := make([]*Dispatcher, 0, len(r.capture)+len(r.bubble))
	dispatchers = append(dispatchers, r.capture...)
	dispatchers = append(dispatchers, r.bubble...)
	r.mu.Unlock()

	for _, d := range dispatchers {
		if d.Dispatch(ev) {
			return true
		}
	}
	return false
}

func remove(list []*Dispatcher, d *Dispatcher) []*Dispatcher {
	for i, x := range list {
		if x == d {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
