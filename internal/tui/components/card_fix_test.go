package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/theirongolddev/aboradar/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestCardRowBackgroundFill(t *testing.T) {
	theme.SetActive("dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := len(strings.Split(shortCard, "\n"))
	tallLines := len(strings.Split(tallCard, "\n"))
	if shortLines >= tallLines {
		t.Fatal("test setup error: short card should be shorter than tall card")
	}

	lines := strings.Split(CardRow([]string{tallCard, shortCard}), "\n")
	if len(lines) != tallLines {
		t.Errorf("joined height = %d, want %d", len(lines), tallLines)
	}

	for i, line := range lines {
		if i >= shortLines && !strings.Contains(line, "\x1b[") {
			t.Errorf("line %d has no ANSI codes under the short card", i)
		}
	}
}

func TestCardRowWidthConsistency(t *testing.T) {
	theme.SetActive("dark")

	shortCard := ContentCard("Short", "A", 30)
	tallCard := ContentCard("Tall", "A\nB\nC\nD\nE\nF", 20)

	lines := strings.Split(CardRow([]string{tallCard, shortCard}), "\n")
	want := lipgloss.Width(lines[0])
	for i, line := range lines {
		if w := lipgloss.Width(line); w != want {
			t.Errorf("line %d width = %d, want %d", i, w, want)
		}
	}
	if want != 50 {
		t.Errorf("row width = %d, want 50", want)
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	theme.SetActive("dark")

	row := MetricCardRow([]Metric{
		{Label: "Monthly", Value: "42,00 €"},
		{Label: "Yearly", Value: "504,00 €", Tone: ToneGood},
		{Label: "Due", Value: "1", Tone: ToneAlert},
	}, 91)

	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 91 {
			t.Errorf("line %d width = %d, want 91", i, w)
		}
	}
}

func TestLayoutRow(t *testing.T) {
	got := LayoutRow(10, 3)
	if got[0] != 4 || got[1] != 3 || got[2] != 3 {
		t.Errorf("LayoutRow(10, 3) = %v, want [4 3 3]", got)
	}
	if LayoutRow(10, 0) != nil {
		t.Error("LayoutRow(10, 0) should be nil")
	}
}

func TestTabBar(t *testing.T) {
	theme.SetActive("dark")

	for i, tab := range Tabs {
		if got := TabIdxByKey(tab.Key); got != i {
			t.Errorf("TabIdxByKey(%q) = %d, want %d", tab.Key, got, i)
		}
	}
	if TabIdxByKey('z') != -1 {
		t.Error("unknown key should map to -1")
	}

	bar := RenderTabBar(TabStats, 120)
	if lipgloss.Height(bar) != 1 {
		t.Errorf("tab bar height = %d, want 1", lipgloss.Height(bar))
	}
	if lipgloss.Width(bar) != 120 {
		t.Errorf("tab bar width = %d, want 120", lipgloss.Width(bar))
	}
	if w := TabVisualWidth(Tabs[TabSettings], false); w != len("Settings")+2+3 {
		t.Errorf("inactive Settings width = %d", w)
	}
}

func TestBarChartFallsBackToSparkline(t *testing.T) {
	theme.SetActive("dark")

	out := BarChart([]float64{1, 2, 3}, nil, theme.Active.Accent, 10, 10)
	if lipgloss.Height(out) != 1 {
		t.Errorf("narrow chart should be a one-line sparkline, got %d lines", lipgloss.Height(out))
	}

	full := BarChart([]float64{10, 20, 30}, []string{"Jan", "Feb", "Mar"}, theme.Active.Accent, 40, 8)
	if !strings.Contains(full, "Jan") || !strings.Contains(full, "Mar") {
		t.Error("bar chart should print month labels")
	}
}
