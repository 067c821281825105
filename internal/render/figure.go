// Package render turns pipeline results into something a person can look
// at: a JSON figure description for the browser and a terminal bar chart.
package render

import (
	"fmt"
	"strconv"

	"github.com/wonny/fibivi/internal/contracts"
	"github.com/wonny/fibivi/internal/palette"
	"github.com/wonny/fibivi/internal/transform"
)

// Figure layout constants
const (
	FigureHeight = 800
	BarGap       = 0.1
	DragModePan  = "pan"
)

// modebar buttons the page hides; panning is the only navigation
var modebarRemove = []string{"zoom", "lasso", "resetViewMapbox"}

// Figure is the bar chart description sent to the browser
type Figure struct {
	View         string                  `json:"view"`
	Title        string                  `json:"title"`
	Column       string                  `json:"column"`
	Bars         []Bar                   `json:"bars"`
	XRange       contracts.VisibleWindow `json:"x_range"`
	YRange       *AxisRange              `json:"y_range,omitempty"`
	ColorRange   contracts.DisplayRange  `json:"color_range"`
	ColorScale   string                  `json:"color_scale"`
	RandomColors bool                    `json:"random_colors"`
	PaletteNote  string                  `json:"palette_note,omitempty"`
	Layout       Layout                  `json:"layout"`
}

// Bar is one date on the x axis. Value is nil for a missing score.
type Bar struct {
	Date  contracts.Date       `json:"date"`
	Time  *contracts.TimeOfDay `json:"time,omitempty"`
	Value *float64             `json:"value"`
	Color contracts.Color      `json:"color,omitempty"`
	Hover string               `json:"hover"`
}

// AxisRange is a fixed y axis
type AxisRange struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Fixed bool    `json:"fixed"`
}

// Layout carries the page-level figure settings
type Layout struct {
	BarGap        float64  `json:"bargap"`
	Height        int      `json:"height"`
	DragMode      string   `json:"dragmode"`
	ModebarRemove []string `json:"modebar_remove"`
}

// BuildFigure builds the figure for one view. With a randomized selection
// bar i takes palette color i (cycling); otherwise bars are colored by value
// on the view's continuous scale against the calibrated range.
func BuildFigure(res *transform.Result, sel palette.Selection) (*Figure, error) {
	if res == nil || res.Dataset == nil {
		return nil, fmt.Errorf("build figure: nil result")
	}

	scale, err := LookupScale(res.View.ColorScale)
	if err != nil {
		return nil, fmt.Errorf("build figure: %w", err)
	}

	randomized := sel.Randomized && len(sel.Colors) > 0
	cal := res.Calibration

	bars := make([]Bar, 0, res.Dataset.Len())
	for i, rec := range res.Dataset.Records {
		bar := Bar{Date: rec.Date, Time: rec.Time}

		v, ok, err := rec.Numeric(res.View.Column)
		if err != nil {
			return nil, fmt.Errorf("build figure: %w", err)
		}
		if ok {
			value := v
			bar.Value = &value
			bar.Hover = formatValue(v)
			if randomized {
				bar.Color = sel.Colors.At(i)
			} else {
				bar.Color = scale.ForValue(v, cal.Range)
			}
		}
		bars = append(bars, bar)
	}

	fig := &Figure{
		View:         res.View.Name,
		Title:        res.View.Title,
		Column:       res.View.Column,
		Bars:         bars,
		XRange:       cal.Window,
		ColorRange:   cal.Range,
		ColorScale:   scale.Name,
		RandomColors: randomized,
		Layout: Layout{
			BarGap:        BarGap,
			Height:        FigureHeight,
			DragMode:      DragModePan,
			ModebarRemove: modebarRemove,
		},
	}
	if !randomized {
		fig.PaletteNote = sel.Reason
	}
	if res.View.YMin != nil && res.View.YMax != nil {
		fig.YRange = &AxisRange{Min: *res.View.YMin, Max: *res.View.YMax, Fixed: true}
	}

	return fig, nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
