package components

import (
	"fmt"

	"github.com/theirongolddev/aboradar/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom status bar: key hints on the left, an
// optional flash message in the middle and the data age on the right.
func RenderStatusBar(width int, message, dataAge string) string {
	t := theme.Active

	hintStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	msgStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	ageStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	left := hintStyle.Render(" [?]help  [r]efresh  [q]uit")
	if message != "" {
		left += hintStyle.Render("  ") + msgStyle.Render(message)
	}

	right := ""
	if dataAge != "" {
		right = ageStyle.Render(fmt.Sprintf("Data: %s ", dataAge))
	}

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}
	fill := lipgloss.NewStyle().Background(t.Surface).Render(fmt.Sprintf("%*s", padding, ""))

	return lipgloss.NewStyle().MaxWidth(width).Render(left + fill + right)
}
