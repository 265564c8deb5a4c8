package ui

import (
	"strings"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"

	"lecterm/internal/keymap"
)

// seekStepMs is the jump for the relative seek keys.
const seekStepMs = 10000

// buildBindings declares the shortcut catalogue. Bindings are evaluated in
// priority order; ties keep declaration order.
func (m *Model) buildBindings() []keymap.Binding {
	do := func(fn func()) func(keymap.Event) bool {
		return func(keymap.Event) bool {
			fn()
			return true
		}
	}

	return []keymap.Binding{
		{
			Triggers: []keymap.Trigger{{Key: "q"}, {Key: "c", Ctrl: true}},
			Handler:  do(func() { m.quitting = true }),
			Priority: 100,
		},
		{
			Triggers: []keymap.Trigger{{Key: "esc"}},
			Handler: func(keymap.Event) bool {
				if m.content.Query() != "" {
					m.content.CancelSearch()
					return true
				}
				if m.screen.Fullscreen() {
					m.screen.ExitFullscreen()
					return true
				}
				return false
			},
		},
		{
			Triggers: []keymap.Trigger{{Key: " "}, {Key: "k"}, {Key: "K", Shift: true}},
			Handler:  do(m.player.TogglePlayPause),
		},
		{
			Triggers: []keymap.Trigger{{Key: "left"}},
			Handler:  do(func() { m.pages.PrevPage() }),
		},
		{
			Triggers: []keymap.Trigger{{Key: "right"}},
			Handler:  do(func() { m.pages.NextPage() }),
		},
		{
			Triggers: []keymap.Trigger{{Key: "home"}},
			Handler:  do(func() { m.pages.FirstPage() }),
		},
		{
			Triggers: []keymap.Trigger{{Key: "end"}},
			Handler:  do(func() { m.pages.LastPage() }),
		},
		{
			Triggers: []keymap.Trigger{{Key: "up"}},
			Handler:  do(func() { m.player.AdjustVolume(5) }),
		},
		{
			Triggers: []keymap.Trigger{{Key: "down"}},
			Handler:  do(func() { m.player.AdjustVolume(-5) }),
		},
		{
			Triggers: []keymap.Trigger{{Key: "m"}},
			Handler:  do(m.player.ToggleMute),
		},
		{
			Triggers: []keymap.Trigger{{Key: "f"}},
			Handler:  do(m.screen.ToggleFullscreen),
		},
		{
			Triggers: []keymap.Trigger{{Key: ">"}, {Key: ">", Shift: true}},
			Handler:  do(m.player.SpeedUp),
		},
		{
			Triggers: []keymap.Trigger{{Key: "<"}, {Key: "<", Shift: true}},
			Handler:  do(m.player.SpeedDown),
		},
		{
			Triggers: []keymap.Trigger{{Key: "0"}, {Key: "="}},
			Handler:  do(m.player.ResetSpeed),
		},
		{
			Triggers: []keymap.Trigger{{Key: "j"}},
			Handler:  do(func() { m.player.SeekTo(m.player.CurrentTimeMs() - seekStepMs) }),
		},
		{
			Triggers: []keymap.Trigger{{Key: "l"}},
			Handler:  do(func() { m.player.SeekTo(m.player.CurrentTimeMs() + seekStepMs) }),
		},
		{
			Triggers: []keymap.Trigger{{Key: "/"}},
			Handler:  do(m.startSearch),
		},
		{
			Triggers: []keymap.Trigger{{Key: "n"}},
			Guard:    func() bool { return m.content.Query() != "" },
			Handler:  do(m.content.FindNext),
		},
		{
			Triggers: []keymap.Trigger{{Key: "N", Shift: true}},
			Guard:    func() bool { return m.content.Query() != "" },
			Handler:  do(m.content.FindPrev),
		},
		{
			Triggers: []keymap.Trigger{{Key: "t"}},
			Handler:  do(func() { m.queue(m.openTranscript()) }),
		},
		{
			Triggers: []keymap.Trigger{{Key: "?"}, {Key: "?", Shift: true}},
			Guard:    func() bool { return m.helpFn != nil },
			Handler:  do(func() { m.helpFn() }),
		},
	}
}

// keyEventFrom normalizes a bubbletea key message into a keymap event.
// Terminals do not report a shift flag for printable runes, so it is
// inferred from uppercase letters.
func keyEventFrom(msg tea.KeyMsg, editable bool) keymap.Event {
	ev := keymap.Event{Editable: editable}

	s := msg.String()
	for {
		switch {
		case strings.HasPrefix(s, "ctrl+"):
			ev.Ctrl = true
			s = strings.TrimPrefix(s, "ctrl+")
		case strings.HasPrefix(s, "alt+"):
			ev.Alt = true
			s = strings.TrimPrefix(s, "alt+")
		case strings.HasPrefix(s, "shift+"):
			ev.Shift = true
			s = strings.TrimPrefix(s, "shift+")
		default:
			if r := []rune(s); len(r) == 1 && unicode.IsUpper(r[0]) {
				ev.Shift = true
			}
			ev.Key = s
			return ev
		}
	}
}
