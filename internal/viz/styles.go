package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title, label, value, muted, hint lipgloss.Style
	high, mid, low                   lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary).
			BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(t.Muted),
		label: lipgloss.NewStyle().Foreground(t.Muted),
		value: lipgloss.NewStyle().Bold(true).Foreground(t.Secondary),
		muted: lipgloss.NewStyle().Foreground(t.Muted),
		hint:  lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		high:  lipgloss.NewStyle().Foreground(t.High),
		mid:   lipgloss.NewStyle().Foreground(t.Accent),
		low:   lipgloss.NewStyle().Foreground(t.Low),
	}
}

// Sparkline renders values as a one-line bar chart sampled to width.
func (st styles) Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := max(len(values)/width, 1)

	var result strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / rng
		idx := min(max(int(norm*float64(len(chars)-1)), 0), len(chars)-1)

		c := string(chars[idx])
		switch {
		case norm > 0.7:
			result.WriteString(st.high.Render(c))
		case norm > 0.3:
			result.WriteString(st.mid.Render(c))
		default:
			result.WriteString(st.low.Render(c))
		}
	}
	return result.String()
}

func (st styles) Separator(width int) string {
	if width < 8 {
		return ""
	}
	mid := width / 2
	return st.muted.Render(strings.Repeat("─", mid-3) + " ◆ " + strings.Repeat("─", width-mid-3))
}
