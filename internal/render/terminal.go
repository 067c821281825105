package render

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wonny/fibivi/internal/contracts"
	"github.com/wonny/fibivi/internal/palette"
	"github.com/wonny/fibivi/internal/transform"
)

const (
	barRune         = "█"
	defaultBarWidth = 50
)

// TerminalOptions controls the text chart
type TerminalOptions struct {
	Width  int                      // bar area in cells
	Window *contracts.VisibleWindow // nil draws every date
}

// TerminalChart draws one horizontal bar per date, oldest first.
// Bars start at the view's y minimum (0 when unset) so small differences in
// a narrow score band stay visible.
func TerminalChart(res *transform.Result, sel palette.Selection, opts TerminalOptions) (string, error) {
	if res == nil || res.Dataset == nil {
		return "", fmt.Errorf("terminal chart: nil result")
	}

	fig, err := BuildFigure(res, sel)
	if err != nil {
		return "", err
	}

	width := opts.Width
	if width <= 0 {
		width = defaultBarWidth
	}

	lo, hi := 0.0, fig.ColorRange.Max
	if res.View.YMin != nil {
		lo = *res.View.YMin
	}
	if res.View.YMax != nil {
		hi = *res.View.YMax
	}
	if hi <= lo {
		hi = lo + 1
	}

	bars := make([]Bar, 0, len(fig.Bars))
	for _, b := range fig.Bars {
		if opts.Window != nil && !opts.Window.Contains(b.Date) {
			continue
		}
		bars = append(bars, b)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	var sb strings.Builder
	sb.WriteString(TitleStyle.Render(fig.Title))
	sb.WriteString("\n")

	if len(bars) == 0 {
		sb.WriteString(NoteStyle.Render("no data in range"))
		sb.WriteString("\n")
		return sb.String(), nil
	}

	for _, b := range bars {
		sb.WriteString(AxisStyle.Render(b.Date.String() + " │"))
		if b.Value == nil {
			sb.WriteString(MissingStyle.Render(" -"))
			sb.WriteString("\n")
			continue
		}

		n := barLength(*b.Value, lo, hi, width)
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(string(b.Color)))
		sb.WriteString(style.Render(strings.Repeat(barRune, n)))
		sb.WriteString(" ")
		sb.WriteString(ValueStyle.Render(b.Hover))
		sb.WriteString("\n")
	}

	footer := fmt.Sprintf("%s  range %s..%s  scale %s",
		fig.Column, formatValue(fig.ColorRange.Min), formatValue(fig.ColorRange.Max), fig.ColorScale)
	if fig.RandomColors {
		footer = fmt.Sprintf("%s  range %s..%s  random colors",
			fig.Column, formatValue(fig.ColorRange.Min), formatValue(fig.ColorRange.Max))
	}
	sb.WriteString(NoteStyle.Render(footer))
	sb.WriteString("\n")

	return sb.String(), nil
}

// barLength scales v in [lo, hi] onto [0, width]; values below lo draw nothing
func barLength(v, lo, hi float64, width int) int {
	n := int(math.Round((v - lo) / (hi - lo) * float64(width)))
	if n < 0 {
		return 0
	}
	if n > width {
		return width
	}
	return n
}
