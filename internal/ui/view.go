package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lecterm/internal/domain"
	"lecterm/internal/timefmt"
)

const sidebarWidth = 28

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 {
		return "starting..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	fullscreen := m.screen.Fullscreen()
	controls := m.screen.ControlsVisible()

	var b strings.Builder

	if !fullscreen {
		b.WriteString(m.renderHeader())
		b.WriteString("\n")
	}

	b.WriteString(m.renderBody(fullscreen))
	b.WriteString("\n")

	if !fullscreen || controls {
		b.WriteString(m.renderControls())
	}

	if m.searching {
		b.WriteString("\n")
		b.WriteString(m.searchInput.View())
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.status))
	}

	return b.String()
}

func (m *Model) renderHeader() string {
	title := m.title
	if title == "" {
		title = "lecterm"
	}
	return titleStyle.Render(title)
}

func (m *Model) renderBody(fullscreen bool) string {
	slideWidth := m.width - 4
	showSidebar := !fullscreen && m.cfg.Settings.SidebarStyle != "hidden" && m.width > 60
	if showSidebar {
		slideWidth -= sidebarWidth
	}
	if slideWidth < 20 {
		slideWidth = 20
	}

	slide := m.renderSlide(slideWidth)
	if !showSidebar {
		return slide
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), slide)
}

func (m *Model) renderSlide(width int) string {
	page, ok := m.content.Page(m.player.CurrentPage() - 1)
	text := ""
	if ok {
		text = page.Text
	}
	if strings.TrimSpace(text) == "" {
		text = dimStyle.Render("(no slide text)")
	}
	return slideStyle.Width(width).Render(text)
}

// renderSidebar lists the pages around the current one with timestamps and
// search-match markers.
func (m *Model) renderSidebar() string {
	pages := m.content.Pages()
	current := m.player.CurrentPage()

	visible := m.height - 8
	if visible < 3 {
		visible = 3
	}
	start := current - 1 - visible/2
	if start < 0 {
		start = 0
	}
	end := start + visible
	if end > len(pages) {
		end = len(pages)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		line := fmt.Sprintf("%3d %s %s",
			i+1,
			timefmt.Format(float64(pages[i].TimestampMs)),
			firstLine(pages[i].Text, sidebarWidth-14),
		)
		switch {
		case i+1 == current:
			line = currentPageStyle.Render("▶ " + line)
		case m.content.IsMatch(i):
			line = matchPageStyle.Render("  " + line)
		default:
			line = dimStyle.Render("  " + line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return sidebarStyle.Width(sidebarWidth).Render(b.String())
}

func (m *Model) renderControls() string {
	current := m.player.CurrentTimeMs()
	total := m.player.TotalTimeMs()

	ratio := 0.0
	if total > 0 {
		ratio = current / total
		if ratio < 0 {
			ratio = 0
		}
		if ratio > 1 {
			ratio = 1
		}
	}

	var b strings.Builder
	b.WriteString(m.seekBar.ViewAs(ratio))
	b.WriteString("\n")

	parts := []string{
		phaseIcon(m.player.Phase()),
		fmt.Sprintf("%s / %s", timefmt.Format(current), timefmt.Format(total)),
		fmt.Sprintf("page %d/%d", m.player.CurrentPage(), m.player.PageCount()),
		fmt.Sprintf("%.2fx", m.player.Speed()),
		volumeLabel(m.player.EffectiveVolume(), m.player.Muted()),
	}
	if q := m.content.Query(); q != "" {
		if n := m.content.MatchCount(); n > 0 {
			parts = append(parts, fmt.Sprintf("“%s” %d/%d", q, m.content.Cursor()+1, n))
		} else {
			parts = append(parts, fmt.Sprintf("“%s” no matches", q))
		}
	}
	b.WriteString(statusStyle.Render(strings.Join(parts, "  ·  ")))
	return b.String()
}

func phaseIcon(phase domain.PlaybackPhase) string {
	switch phase {
	case domain.PhasePlaying:
		return "▶"
	case domain.PhaseEnded:
		return "■"
	case domain.PhaseError:
		return "✕"
	default:
		return "⏸"
	}
}

func volumeLabel(volume int, muted bool) string {
	if muted {
		return "🔇"
	}
	return fmt.Sprintf("vol %d", volume)
}

func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	r := []rune(s)
	if max > 1 && len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}
