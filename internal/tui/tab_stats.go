package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/aboradar/internal/cli"
	"github.com/theirongolddev/aboradar/internal/tui/components"
	"github.com/theirongolddev/aboradar/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// categoryColors cycles through the accent palette for category bars.
func categoryColors() []lipgloss.Color {
	t := theme.Active
	return []lipgloss.Color{t.Accent, t.Blue, t.Magenta, t.Orange, t.Green, t.Yellow, t.Cyan, t.Red}
}

func (a App) renderStatsTab(cw, h int) string {
	t := theme.Active
	s := a.summary
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	// 12-month chart
	values := make([]float64, len(s.Trailing12Months))
	labels := make([]string, len(s.Trailing12Months))
	total := 0.0
	for i, m := range s.Trailing12Months {
		values[i] = m.Cost
		labels[i] = m.Month.Format("Jan")
		total += m.Cost
	}

	chartH := max(h/2-4, 4)
	var chart strings.Builder
	chart.WriteString(components.BarChart(values, labels, t.Accent, components.CardInnerWidth(cw), chartH))
	chart.WriteString("\n\n")
	chart.WriteString(mutedStyle.Render("12-month total "))
	chart.WriteString(valueStyle.Render(cli.FormatEUR(total)))
	chart.WriteString(mutedStyle.Render("  ·  average "))
	chart.WriteString(valueStyle.Render(cli.FormatEUR(total / 12)))
	chart.WriteString(mutedStyle.Render(" per month"))

	// Category breakdown
	var cats strings.Builder
	if len(s.ByCategory) == 0 {
		cats.WriteString(mutedStyle.Render("No active subscriptions."))
	}
	maxCost := 0.0
	labelW := 8
	for _, c := range s.ByCategory {
		maxCost = max(maxCost, c.MonthlyCost)
		labelW = max(labelW, lipgloss.Width(c.Category))
	}
	labelW = min(labelW, 16)
	barW := max(components.CardInnerWidth(cw)-labelW-28, 10)

	colors := categoryColors()
	for i, c := range s.ByCategory {
		suffix := fmt.Sprintf("%10s  %7s  (%d)", cli.FormatEUR(c.MonthlyCost), cli.FormatPercent(c.SharePercent), c.Count)
		cats.WriteString(components.HBar(c.Category, labelW, c.MonthlyCost, maxCost, barW, colors[i%len(colors)], suffix))
		cats.WriteString("\n")
	}

	var b strings.Builder
	b.WriteString(components.ContentCard("Cost per month, last 12 months", chart.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("Monthly cost by category", strings.TrimRight(cats.String(), "\n"), cw))
	return b.String()
}
