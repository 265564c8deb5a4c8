package ui

import (
	"fmt"
	"strings"
)

// renderHelp renders the shortcut catalogue.
func (m *Model) renderHelp() string {
	row := func(key, desc string) string {
		return fmt.Sprintf("  %-14s %s\n", keyStyle.Render(key), descStyle.Render(desc))
	}

	var help strings.Builder

	help.WriteString(titleStyle.Render("lecterm Help"))
	help.WriteString("\n")

	help.WriteString(sectionStyle.Render("Playback"))
	help.WriteString("\n")
	help.WriteString(row("Space, K", "Play / pause"))
	help.WriteString(row("J / L", "Seek back / forward 10s"))
	help.WriteString(row("< / >", "Slower / faster (0.25x steps)"))
	help.WriteString(row("0, =", "Reset speed to 1.0x"))

	help.WriteString(sectionStyle.Render("Pages"))
	help.WriteString("\n")
	help.WriteString(row("←/→", "Previous / next page"))
	help.WriteString(row("Home/End", "First / last page"))

	help.WriteString(sectionStyle.Render("Audio"))
	help.WriteString("\n")
	help.WriteString(row("↑/↓", "Volume up / down"))
	help.WriteString(row("M", "Mute toggle"))

	help.WriteString(sectionStyle.Render("Search"))
	help.WriteString("\n")
	help.WriteString(row("/", "Search slide text"))
	help.WriteString(row("n / N", "Next / previous match"))
	help.WriteString(row("Esc", "Cancel search"))

	help.WriteString(sectionStyle.Render("Display"))
	help.WriteString("\n")
	help.WriteString(row("F", "Fullscreen toggle"))
	help.WriteString(row("T", "Open transcript pager"))
	help.WriteString(row("?", "Toggle this help"))
	help.WriteString(row("Q", "Quit"))

	return help.String()
}
