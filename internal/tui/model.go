// Package tui is the interactive terminal chart: the calibrated window is
// shown first and the user pans through the rest of the history.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wonny/fibivi/internal/contracts"
	"github.com/wonny/fibivi/internal/palette"
	"github.com/wonny/fibivi/internal/render"
	"github.com/wonny/fibivi/internal/transform"
)

const (
	defaultWidth = 80
	// date label, separator and value text around the bar area
	chromeWidth = 20
)

// Model is the root bubbletea model for the chart view.
type Model struct {
	result    *transform.Result
	selection palette.Selection

	// Window state
	home   contracts.VisibleWindow
	window contracts.VisibleWindow

	// UI state
	width  int
	height int

	// Errors
	errorMessage string
	reloads      int
}

// New creates a model showing the calibrated window of res
func New(res *transform.Result, sel palette.Selection) Model {
	m := Model{width: defaultWidth}
	m.setResult(res, sel)
	return m
}

func (m *Model) setResult(res *transform.Result, sel palette.Selection) {
	m.result = res
	m.selection = sel
	if res != nil {
		m.home = res.Calibration.Window
		m.window = m.home
	}
}

// Window returns the currently visible window
func (m Model) Window() contracts.VisibleWindow {
	return m.window
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ResultMsg:
		// 새 데이터: 보정된 창으로 복귀
		m.setResult(msg.Result, msg.Selection)
		m.errorMessage = ""
		m.reloads++
		return m, nil

	case ReloadErrorMsg:
		m.errorMessage = msg.Err.Error()
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	span := m.spanDays()

	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		return m, tea.Quit
	case KeyLeft, KeyH:
		m.window = m.window.Shift(-panStep)
	case KeyRight, KeyL:
		m.window = m.window.Shift(panStep)
	case KeyPageUp:
		m.window = m.window.Shift(-span)
	case KeyPageDown:
		m.window = m.window.Shift(span)
	case KeyHome:
		m.window = m.home
	case KeyEnd:
		if last, ok := m.latestDate(); ok {
			m.window = contracts.VisibleWindow{Start: last.AddDays(-span), End: last}
		}
	}
	return m, nil
}

// spanDays is the window length in days
func (m Model) spanDays() int {
	days := int(m.window.End.Time().Sub(m.window.Start.Time()).Hours() / 24)
	if days <= 0 {
		return panStep
	}
	return days
}

func (m Model) latestDate() (contracts.Date, bool) {
	if m.result == nil || m.result.Dataset.Len() == 0 {
		return contracts.Date{}, false
	}
	last := m.result.Dataset.Records[0].Date
	for _, r := range m.result.Dataset.Records[1:] {
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return last, true
}

// View renders the chart for the current window
func (m Model) View() string {
	if m.result == nil {
		return render.NoteStyle.Render("no data") + "\n"
	}

	width := m.width - chromeWidth
	if width < 10 {
		width = 10
	}

	window := m.window
	chart, err := render.TerminalChart(m.result, m.selection, render.TerminalOptions{
		Width:  width,
		Window: &window,
	})
	if err != nil {
		return render.NoteStyle.Render(err.Error()) + "\n"
	}

	var sb strings.Builder
	sb.WriteString(chart)
	sb.WriteString(render.AxisStyle.Render(fmt.Sprintf("%s .. %s", m.window.Start, m.window.End)))
	sb.WriteString("\n")
	if m.errorMessage != "" {
		sb.WriteString(render.ValueStyle.Render("reload failed: " + m.errorMessage))
		sb.WriteString("\n")
	}
	sb.WriteString(render.NoteStyle.Render("←/h →/l pan  pgup/pgdn page  home reset  end latest  q quit"))
	sb.WriteString("\n")
	return sb.String()
}
