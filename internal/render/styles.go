package render

import "github.com/charmbracelet/lipgloss"

// Colors used by the terminal chart.
var (
	ColorCyan    = lipgloss.Color("#00FFFF")
	ColorGray    = lipgloss.Color("#666666")
	ColorDimGray = lipgloss.Color("#444444")
	ColorYellow  = lipgloss.Color("#FFFF00")
)

// Base styles reused by the chart and the interactive view.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	AxisStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	MissingStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	NoteStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)
)
