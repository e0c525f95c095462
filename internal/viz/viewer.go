package viz

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Series is one named column of a stored run.
type Series struct {
	Name   string
	Values []float64
}

// Viewer browses the series of one run, one chart at a time.
type Viewer struct {
	title         string
	times         []float64
	series        []Series
	metrics       map[string]float64
	index         int
	theme         int
	width, height int
	quitting      bool
}

func NewViewer(title string, times []float64, series []Series, metrics map[string]float64) Viewer {
	return Viewer{
		title:   title,
		times:   times,
		series:  series,
		metrics: metrics,
		width:   80,
		height:  24,
	}
}

func (v Viewer) Init() tea.Cmd { return nil }

func (v Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		n := len(v.series)
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			v.quitting = true
			return v, tea.Quit
		case "right", "l", "tab":
			if n > 0 {
				v.index = (v.index + 1) % n
			}
		case "left", "h", "shift+tab":
			if n > 0 {
				v.index = (v.index - 1 + n) % n
			}
		case "t":
			v.theme = (v.theme + 1) % len(Themes)
		}
	case tea.WindowSizeMsg:
		v.width, v.height = msg.Width, msg.Height
	}
	return v, nil
}

// Selected returns the name of the series on screen.
func (v Viewer) Selected() string {
	if len(v.series) == 0 {
		return ""
	}
	return v.series[v.index].Name
}

func (v Viewer) Theme() Theme { return Themes[v.theme] }

func (v Viewer) View() string {
	if v.quitting {
		return ""
	}
	st := newStyles(v.Theme())

	var b strings.Builder
	b.WriteString(st.title.Render(v.title))
	b.WriteString("\n")

	if len(v.series) == 0 {
		b.WriteString(st.muted.Render("no series"))
		b.WriteString("\n")
		return b.String()
	}

	s := v.series[v.index]
	fmt.Fprintf(&b, "%s %s  %s\n",
		st.label.Render(fmt.Sprintf("series %d/%d", v.index+1, len(v.series))),
		st.value.Render(s.Name),
		st.muted.Render(v.span()),
	)

	chartWidth := max(v.width-12, 20)
	chartHeight := max(v.height-10, 5)
	b.WriteString(Plot(s.Values, s.Name, chartWidth, chartHeight))
	b.WriteString("\n")
	b.WriteString(st.Sparkline(s.Values, chartWidth))
	b.WriteString("\n")
	b.WriteString(st.Separator(chartWidth))
	b.WriteString("\n")

	names := make([]string, 0, len(v.metrics))
	for name := range v.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "%s %s  ", st.label.Render(name), st.value.Render(fmt.Sprintf("%.4g", v.metrics[name])))
	}
	if len(names) > 0 {
		b.WriteString("\n")
	}

	b.WriteString(st.hint.Render("←/→ series  t theme  q quit"))
	b.WriteString("\n")
	return b.String()
}

func (v Viewer) span() string {
	if len(v.times) == 0 {
		return ""
	}
	return fmt.Sprintf("t %g to %g", v.times[0], v.times[len(v.times)-1])
}
