package keymap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func press(key string) Event {
	return Event{Key: key}
}

func TestDispatchFirstMatchWins(t *testing.T) {
	var hits []string
	d := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "a"}}, Handler: func(Event) bool { hits = append(hits, "first"); return true }},
		{Triggers: []Trigger{{Key: "a"}}, Handler: func(Event) bool { hits = append(hits, "second"); return true }},
	}, Options{})

	require.True(t, d.Dispatch(press("a")))
	require.Equal(t, []string{"first"}, hits)
}

func TestDispatchPriorityOrder(t *testing.T) {
	var hits []string
	d := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "a"}}, Priority: 0, Handler: func(Event) bool { hits = append(hits, "low"); return true }},
		{Triggers: []Trigger{{Key: "a"}}, Priority: 100, Handler: func(Event) bool { hits = append(hits, "high"); return true }},
	}, Options{})

	d.Dispatch(press("a"))
	require.Equal(t, []string{"high"}, hits)
}

func TestDispatchStableTies(t *testing.T) {
	// Equal priority keeps registration order.
	var hits []string
	d := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "a"}}, Priority: 5, Handler: func(Event) bool { hits = append(hits, "registered-first"); return true }},
		{Triggers: []Trigger{{Key: "a"}}, Priority: 5, Handler: func(Event) bool { hits = append(hits, "registered-second"); return true }},
	}, Options{})

	d.Dispatch(press("a"))
	require.Equal(t, []string{"registered-first"}, hits)
}

func TestGuardSkipsBinding(t *testing.T) {
	active := false
	var hits []string
	d := NewDispatcher([]Binding{
		{
			Triggers: []Trigger{{Key: "n"}},
			Guard:    func() bool { return active },
			Handler:  func(Event) bool { hits = append(hits, "guarded"); return true },
		},
		{Triggers: []Trigger{{Key: "n"}}, Handler: func(Event) bool { hits = append(hits, "fallback"); return true }},
	}, Options{})

	d.Dispatch(press("n"))
	require.Equal(t, []string{"fallback"}, hits)

	active = true
	d.Dispatch(press("n"))
	require.Equal(t, []string{"fallback", "guarded"}, hits)
}

func TestHandlerDecliningStopsEvaluation(t *testing.T) {
	var hits []string
	d := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "esc"}}, Handler: func(Event) bool { hits = append(hits, "first"); return false }},
		{Triggers: []Trigger{{Key: "esc"}}, Handler: func(Event) bool { hits = append(hits, "second"); return true }},
	}, Options{})

	// The first trigger match ends evaluation even when its handler
	// declines to consume.
	require.False(t, d.Dispatch(press("esc")))
	require.Equal(t, []string{"first"}, hits)
}

func TestNilHandlerConsumes(t *testing.T) {
	d := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "x"}}},
	}, Options{})
	require.True(t, d.Dispatch(press("x")))
}

func TestExactModifierMatching(t *testing.T) {
	plain := 0
	ctrl := 0
	d := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "k", Ctrl: true}}, Handler: func(Event) bool { ctrl++; return true }},
		{Triggers: []Trigger{{Key: "k"}}, Handler: func(Event) bool { plain++; return true }},
	}, Options{})

	require.True(t, d.Dispatch(Event{Key: "k"}))
	require.Equal(t, 1, plain)
	require.Equal(t, 0, ctrl)

	require.True(t, d.Dispatch(Event{Key: "k", Ctrl: true}))
	require.Equal(t, 1, ctrl)

	// A false modifier field is a requirement that it be absent.
	require.False(t, d.Dispatch(Event{Key: "k", Alt: true}))
	require.False(t, d.Dispatch(Event{Key: "k", Ctrl: true, Shift: true}))
}

func TestCaseSensitiveKeys(t *testing.T) {
	next := 0
	prev := 0
	d := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "n"}}, Handler: func(Event) bool { next++; return true }},
		{Triggers: []Trigger{{Key: "N", Shift: true}}, Handler: func(Event) bool { prev++; return true }},
	}, Options{})

	d.Dispatch(Event{Key: "n"})
	d.Dispatch(Event{Key: "N", Shift: true})
	require.Equal(t, 1, next)
	require.Equal(t, 1, prev)
}

func TestCodeMatching(t *testing.T) {
	hits := 0
	d := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Code: "KeyF"}}, Handler: func(Event) bool { hits++; return true }},
	}, Options{})

	require.True(t, d.Dispatch(Event{Key: "f", Code: "KeyF"}))
	require.False(t, d.Dispatch(Event{Key: "f", Code: "KeyG"}))
	require.Equal(t, 1, hits)
}

func TestEmptyTriggerNeverMatches(t *testing.T) {
	d := NewDispatcher([]Binding{
		{Triggers: []Trigger{{}}, Handler: func(Event) bool { return true }},
	}, Options{})
	require.False(t, d.Dispatch(press("a")))
}

func TestPrimaryModifier(t *testing.T) {
	orig := isApple
	defer func() { isApple = orig }()

	hits := 0
	d := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "s", Primary: true}}, Handler: func(Event) bool { hits++; return true }},
	}, Options{})

	isApple = false
	require.True(t, d.Dispatch(Event{Key: "s", Ctrl: true}))
	require.False(t, d.Dispatch(Event{Key: "s", Meta: true}))

	isApple = true
	require.True(t, d.Dispatch(Event{Key: "s", Meta: true}))
	require.False(t, d.Dispatch(Event{Key: "s", Ctrl: true}))
	require.Equal(t, 2, hits)
}

func TestRepeatPolicies(t *testing.T) {
	allow := 0
	deny := 0
	only := 0
	d := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "a", Repeat: RepeatAllow}}, Handler: func(Event) bool { allow++; return true }},
		{Triggers: []Trigger{{Key: "d", Repeat: RepeatDeny}}, Handler: func(Event) bool { deny++; return true }},
		{Triggers: []Trigger{{Key: "o", Repeat: RepeatOnly}}, Handler: func(Event) bool { only++; return true }},
	}, Options{})

	d.Dispatch(Event{Key: "a"})
	d.Dispatch(Event{Key: "a", Repeat: true})
	require.Equal(t, 2, allow)

	d.Dispatch(Event{Key: "d"})
	d.Dispatch(Event{Key: "d", Repeat: true})
	require.Equal(t, 1, deny)

	d.Dispatch(Event{Key: "o"})
	d.Dispatch(Event{Key: "o", Repeat: true})
	require.Equal(t, 1, only)
}

func TestSetEnabled(t *testing.T) {
	hits := 0
	d := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "a"}}, Handler: func(Event) bool { hits++; return true }},
	}, Options{})

	d.SetEnabled(false)
	require.False(t, d.Dispatch(press("a")))
	require.Equal(t, 0, hits)

	d.SetEnabled(true)
	require.True(t, d.Dispatch(press("a")))
	require.Equal(t, 1, hits)
}

func TestIgnoreEditable(t *testing.T) {
	hits := 0
	d := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "a"}}, Handler: func(Event) bool { hits++; return true }},
	}, Options{IgnoreEditable: true})

	require.False(t, d.Dispatch(Event{Key: "a", Editable: true}))
	require.True(t, d.Dispatch(Event{Key: "a"}))
	require.Equal(t, 1, hits)
}

func TestScope(t *testing.T) {
	hits := 0
	d := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "a"}}, Handler: func(Event) bool { hits++; return true }},
	}, Options{Scope: func(ev Event) bool { return ev.Ctrl }})

	require.False(t, d.Dispatch(Event{Key: "a"}))
	require.Equal(t, 0, hits)
}

func TestRouterCaptureRunsFirst(t *testing.T) {
	var hits []string
	bubble := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "a"}}, Handler: func(Event) bool { hits = append(hits, "bubble"); return true }},
	}, Options{})
	capture := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "a"}}, Handler: func(Event) bool { hits = append(hits, "capture"); return true }},
	}, Options{Capture: true})

	r := NewRouter()
	r.Add(bubble)
	r.Add(capture)

	require.True(t, r.Dispatch(press("a")))
	require.Equal(t, []string{"capture"}, hits)
}

func TestRouterFallsThroughUnconsumed(t *testing.T) {
	var hits []string
	first := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "b"}}, Handler: func(Event) bool { hits = append(hits, "first"); return true }},
	}, Options{})
	second := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "a"}}, Handler: func(Event) bool { hits = append(hits, "second"); return true }},
	}, Options{})

	r := NewRouter()
	r.Add(first)
	r.Add(second)

	require.True(t, r.Dispatch(press("a")))
	require.Equal(t, []string{"second"}, hits)
	require.False(t, r.Dispatch(press("z")))
}

func TestRouterRemove(t *testing.T) {
	hits := 0
	d := NewDispatcher([]Binding{
		{Triggers: []Trigger{{Key: "a"}}, Handler: func(Event) bool { hits++; return true }},
	}, Options{})

	r := NewRouter()
	remove := r.Add(d)
	require.True(t, r.Dispatch(press("a")))

	remove()
	remove() // idempotent
	require.False(t, r.Dispatch(press("a")))
	require.Equal(t, 1, hits)
}
