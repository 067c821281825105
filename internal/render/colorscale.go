package render

import (
	"fmt"
	"sort"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/wonny/fibivi/internal/contracts"
)

// DefaultScale is used when a view names no color scale
const DefaultScale = "Portland_r"

const reversedSuffix = "_r"

type stop struct {
	pos   float64
	color colorful.Color
}

// ColorScale maps [0,1] onto colors by linear RGB interpolation between stops
type ColorScale struct {
	Name  string
	stops []stop
}

// plotly built-in stops
var scaleStops = map[string][]string{
	"Portland": {"#0C3383", "#0A88BA", "#F2D338", "#F28F38", "#D91E1E"},
	"Viridis": {
		"#440154", "#482878", "#3E4989", "#31688E", "#26828E",
		"#1F9E89", "#35B779", "#6ECE58", "#B5DE2B", "#FDE725",
	},
	"Greys": {"#000000", "#FFFFFF"},
}

// ScaleNames lists the accepted base names (each also accepts the _r suffix)
func ScaleNames() []string {
	names := make([]string, 0, len(scaleStops))
	for name := range scaleStops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupScale resolves a scale by name; a "_r" suffix reverses it
func LookupScale(name string) (ColorScale, error) {
	if name == "" {
		name = DefaultScale
	}

	base, reversed := strings.CutSuffix(name, reversedSuffix)
	hexes, ok := scaleStops[base]
	if !ok {
		return ColorScale{}, fmt.Errorf("unknown color scale %q (known: %s)", name, strings.Join(ScaleNames(), ", "))
	}

	stops := make([]stop, len(hexes))
	last := float64(len(hexes) - 1)
	for i, h := range hexes {
		stops[i] = stop{pos: float64(i) / last, color: colorful.MustParseHex(h)}
	}

	if reversed {
		for i, j := 0, len(stops)-1; i < j; i, j = i+1, j-1 {
			stops[i], stops[j] = stops[j], stops[i]
		}
		for i := range stops {
			stops[i].pos = 1 - stops[i].pos
		}
	}

	return ColorScale{Name: name, stops: stops}, nil
}

// At returns the color at t, clamped to [0,1]
func (s ColorScale) At(t float64) contracts.Color {
	if len(s.stops) == 0 {
		return ""
	}
	if t <= 0 {
		return toColor(s.stops[0].color)
	}
	if t >= 1 {
		return toColor(s.stops[len(s.stops)-1].color)
	}

	for i := 0; i < len(s.stops)-1; i++ {
		lo, hi := s.stops[i], s.stops[i+1]
		if t > hi.pos {
			continue
		}
		local := (t - lo.pos) / (hi.pos - lo.pos)
		return toColor(lo.color.BlendRgb(hi.color, local))
	}
	return toColor(s.stops[len(s.stops)-1].color)
}

// ForValue colors v relative to the display range.
// A degenerate range maps every value to the midpoint.
func (s ColorScale) ForValue(v float64, r contracts.DisplayRange) contracts.Color {
	span := r.Max - r.Min
	if span <= 0 {
		return s.At(0.5)
	}
	return s.At((v - r.Min) / span)
}

func toColor(c colorful.Color) contracts.Color {
	return contracts.Color(strings.ToUpper(c.Clamped().Hex()))
}
