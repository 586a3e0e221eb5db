package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/theirongolddev/aboradar/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a unicode sparkline from values.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}

	peak := 0.0
	for _, v := range values {
		peak = math.Max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	var buf strings.Builder
	for _, v := range values {
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		idx = min(max(idx, 0), len(sparkBlocks)-1)
		buf.WriteRune(sparkBlocks[idx])
	}

	return lipgloss.NewStyle().Foreground(color).Background(theme.Active.Surface).Render(buf.String())
}

// BarChart renders a vertical bar chart with a euro Y axis and one label
// per bar. It falls back to a sparkline when the area is too small.
func BarChart(values []float64, labels []string, color lipgloss.Color, width, height int) string {
	n := len(values)
	if n == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}

	t := theme.Active

	maxVal := 0.0
	for _, v := range values {
		maxVal = math.Max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	step := tickStep(maxVal)
	for math.Ceil(maxVal/step) > float64(max(2, height/2)) {
		step *= 2
	}
	intervals := int(math.Ceil(maxVal / step))
	ceiling := float64(intervals) * step

	rowsPerTick := max(2, height/intervals)
	chartH := rowsPerTick * intervals

	yLabelW := max(4, lipgloss.Width(axisLabel(ceiling))+1)
	ticks := make(map[int]string, intervals)
	for i := 1; i <= intervals; i++ {
		ticks[i*rowsPerTick] = axisLabel(step * float64(i))
	}

	chartW := width - yLabelW - 1
	barW := (chartW - (n - 1)) / n
	if barW < 1 {
		return Sparkline(values, color)
	}
	barW = min(barW, 6)
	axisLen := n*barW + (n - 1)

	surface := lipgloss.NewStyle().Background(t.Surface)
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	blocks := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		top := ceiling * float64(row) / float64(chartH)
		bottom := ceiling * float64(row-1) / float64(chartH)

		barColor := color
		if float64(row)/float64(chartH) > 0.8 {
			barColor = t.AccentBright
		}
		barStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface)

		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s│", yLabelW, ticks[row])))
		for i, v := range values {
			if i > 0 {
				b.WriteString(surface.Render(" "))
			}
			switch {
			case v >= top:
				b.WriteString(barStyle.Render(strings.Repeat("█", barW)))
			case v > bottom:
				idx := int((v - bottom) / (top - bottom) * 8)
				idx = min(max(idx, 1), 8)
				b.WriteString(barStyle.Render(strings.Repeat(string(blocks[idx]), barW)))
			default:
				b.WriteString(surface.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s└%s", yLabelW, "0", strings.Repeat("─", axisLen))))

	if len(labels) == n {
		b.WriteString("\n")
		b.WriteString(surface.Render(strings.Repeat(" ", yLabelW+1)))
		b.WriteString(axisStyle.Render(barLabels(labels, barW, axisLen)))
	}

	return b.String()
}

// barLabels places each label under its bar, skipping labels that would
// overlap the previous one.
func barLabels(labels []string, barW, axisLen int) string {
	line := []rune(strings.Repeat(" ", axisLen))
	nextFree := 0
	for i, lbl := range labels {
		pos := i * (barW + 1)
		r := []rune(lbl)
		if pos < nextFree || pos+len(r) > axisLen {
			continue
		}
		copy(line[pos:], r)
		nextFree = pos + len(r) + 1
	}
	return strings.TrimRight(string(line), " ")
}

// HBar renders a labeled horizontal bar scaled against maxValue.
func HBar(label string, labelW int, value, maxValue float64, barW int, color lipgloss.Color, suffix string) string {
	t := theme.Active

	filled := 0
	if maxValue > 0 {
		filled = int(math.Round(value / maxValue * float64(barW)))
	}
	filled = min(max(filled, 0), barW)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	restStyle := lipgloss.NewStyle().Foreground(t.Border).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	r := []rune(label)
	if len(r) > labelW {
		label = string(r[:max(labelW-1, 0)]) + "…"
	}

	return labelStyle.Render(label+strings.Repeat(" ", max(labelW-lipgloss.Width(label), 0))+" ") +
		barStyle.Render(strings.Repeat("█", filled)) +
		restStyle.Render(strings.Repeat("░", barW-filled)) +
		valueStyle.Render(" "+suffix)
}

// tickStep picks a round axis step aiming for about five ticks.
func tickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	base := math.Pow(10, math.Floor(math.Log10(rough)))
	switch frac := rough / base; {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

func axisLabel(v float64) string {
	switch {
	case v >= 1000:
		if v == math.Trunc(v/1000)*1000 {
			return fmt.Sprintf("%.0fk€", v/1000)
		}
		return strings.Replace(fmt.Sprintf("%.1fk€", v/1000), ".", ",", 1)
	case v >= 1:
		return fmt.Sprintf("%.0f€", v)
	default:
		return strings.Replace(fmt.Sprintf("%.2f€", v), ".", ",", 1)
	}
}
