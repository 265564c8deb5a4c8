package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/noborus/ov/oviewer"

	"lecterm/internal/timefmt"
)

// transcriptPagerMsg contains the result of the transcript pager command
type transcriptPagerMsg struct {
	err error
}

// openTranscript returns a command that shows the full lecture transcript in
// the ov pager, handing the terminal over and back.
func (m *Model) openTranscript() tea.Cmd {
	content := m.renderTranscript()
	return func() tea.Msg {
		return transcriptPagerMsg{err: m.showInPager(content)}
	}
}

// renderTranscript concatenates every page's decoded text with timestamps.
func (m *Model) renderTranscript() string {
	var b strings.Builder
	if m.title != "" {
		b.WriteString(m.title)
		b.WriteString("\n\n")
	}
	for i, page := range m.content.Pages() {
		fmt.Fprintf(&b, "[%s] Page %d\n", timefmt.Format(float64(page.TimestampMs)), i+1)
		text := strings.TrimSpace(page.Text)
		if text == "" {
			text = "(no text)"
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// showInPager displays content with ov, releasing the terminal first.
func (m *Model) showInPager(content string) error {
	if m.program == nil {
		return fmt.Errorf("program not set")
	}

	if err := m.program.ReleaseTerminal(); err != nil {
		return err
	}

	// Ensure terminal is restored even if ov fails
	defer func() {
		// Small delay to ensure ov has fully exited before restoring terminal
		time.Sleep(100 * time.Millisecond)
		_ = m.program.RestoreTerminal()
	}()

	root, err := oviewer.NewRoot(strings.NewReader(content))
	if err != nil {
		return err
	}

	// Configure ov to not write on exit (to avoid messing with our screen)
	config := oviewer.NewConfig()
	config.IsWriteOnExit = false
	config.IsWriteOriginal = false
	root.SetConfig(config)

	return root.Run()
}
