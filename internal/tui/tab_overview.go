package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/aboradar/internal/cli"
	"github.com/theirongolddev/aboradar/internal/pipeline"
	"github.com/theirongolddev/aboradar/internal/tui/components"
	"github.com/theirongolddev/aboradar/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	s := a.summary

	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	costStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	warnStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Bold(true)

	if s.TotalCount == 0 {
		body := mutedStyle.Render("No subscriptions yet. Press ") +
			costStyle.Render("s") + mutedStyle.Render(" then ") +
			costStyle.Render("a") + mutedStyle.Render(" to add your first one.")
		return components.ContentCard("Overview", body, cw)
	}

	// Row 1: metric cards
	trailing := make([]float64, len(s.Trailing12Months))
	for i, m := range s.Trailing12Months {
		trailing[i] = m.Cost
	}
	var prevMonth float64
	if n := len(trailing); n >= 2 {
		prevMonth = trailing[n-2]
	}

	deadlineTone := components.ToneGood
	if len(a.warnings) > 0 {
		deadlineTone = components.ToneAlert
	}

	cards := []components.Metric{
		{Label: "Monthly", Value: cli.FormatEUR(s.MonthlyTotal), Delta: cli.FormatDelta(s.MonthlyTotal, prevMonth) + " vs last month"},
		{Label: "Yearly", Value: cli.FormatEUR(s.YearlyTotal)},
		{Label: "Active", Value: fmt.Sprintf("%d of %d", s.ActiveCount, s.TotalCount)},
		{Label: "Cancel soon", Value: fmt.Sprintf("%d", len(a.warnings)), Tone: deadlineTone,
			Delta: fmt.Sprintf("within %d days", a.cfg.General.WarningDays)},
	}
	if b := a.budget; b.MonthlyBudget != nil {
		tone := components.ToneGood
		if b.OverBudget {
			tone = components.ToneAlert
		} else if b.BudgetUsedPercent >= 90 {
			tone = components.ToneWarn
		}
		cards = append(cards, components.Metric{
			Label: "Budget left", Value: cli.FormatEUR(b.Remaining), Tone: tone,
			Delta: cli.FormatPercent(b.BudgetUsedPercent) + " used",
		})
	}

	var out strings.Builder
	out.WriteString(components.MetricCardRow(cards, cw))
	out.WriteString("\n")

	// Row 2: deadline warnings (full width, red) when any are due
	if len(a.warnings) > 0 {
		var body strings.Builder
		for i, u := range a.warnings {
			if i > 0 {
				body.WriteString("\n")
			}
			body.WriteString(warnStyle.Render("⚠ " + u.Subscription.Name))
			body.WriteString(mutedStyle.Render(fmt.Sprintf("  cancel by %s (%s), contract ends %s",
				cli.FormatDate(u.Deadline), cli.FormatDaysLeft(u.DaysLeft), cli.FormatDate(u.EndDate))))
		}
		out.WriteString(components.AlertCard("Cancellation deadlines", body.String(), cw))
		out.WriteString("\n")
	}

	// Row 3: savings + trend side by side (stacked when compact)
	var savings strings.Builder
	if len(a.savings.Expensive) == 0 {
		savings.WriteString(mutedStyle.Render(fmt.Sprintf("Nothing above %s per month.",
			cli.FormatEUR(a.savings.Threshold))))
	} else {
		for _, sub := range a.savings.Expensive {
			savings.WriteString(valueStyle.Render(fmt.Sprintf("%-22s ", truncStr(sub.Name, 22))))
			savings.WriteString(costStyle.Render(cli.FormatEUR(pipeline.MonthlyCost(sub))))
			savings.WriteString(mutedStyle.Render(" / month"))
			savings.WriteString("\n")
		}
		savings.WriteString(mutedStyle.Render("Cancelling all would save "))
		savings.WriteString(costStyle.Render(cli.FormatEUR(a.savings.MonthlyTotal * 12)))
		savings.WriteString(mutedStyle.Render(" a year"))
	}

	var trend strings.Builder
	trend.WriteString(components.Sparkline(trailing, t.Accent))
	trend.WriteString("\n")
	if len(s.Trailing12Months) > 0 {
		first := s.Trailing12Months[0].Month
		last := s.Trailing12Months[len(s.Trailing12Months)-1].Month
		trend.WriteString(mutedStyle.Render(cli.FormatMonth(first) + " – " + cli.FormatMonth(last)))
	}
	if len(s.ByCategory) > 0 {
		top := s.ByCategory[0]
		trend.WriteString("\n\n")
		trend.WriteString(mutedStyle.Render("Largest category: "))
		trend.WriteString(valueStyle.Render(top.Category))
		trend.WriteString(mutedStyle.Render(" (" + cli.FormatPercent(top.SharePercent) + ")"))
	}
	if a.budget.MonthlyBudget != nil {
		trend.WriteString("\n\n")
		trend.WriteString(components.BudgetGauge("Budget", a.budget.BudgetUsedPercent, 7, 20))
	}

	title := fmt.Sprintf("Savings potential (> %s)", cli.FormatEUR(a.savings.Threshold))
	if a.isCompactLayout() {
		out.WriteString(components.ContentCard(title, savings.String(), cw))
		out.WriteString("\n")
		out.WriteString(components.ContentCard("Last 12 months", trend.String(), cw))
	} else {
		widths := components.LayoutRow(cw, 2)
		out.WriteString(components.CardRow([]string{
			components.ContentCard(title, savings.String(), widths[0]),
			components.ContentCard("Last 12 months", trend.String(), widths[1]),
		}))
	}

	if a.dropped > 0 {
		out.WriteString("\n")
		out.WriteString(mutedStyle.Render(fmt.Sprintf(" %d invalid stored record(s) skipped", a.dropped)))
	}

	return out.String()
}
