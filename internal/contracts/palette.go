package contracts

import "regexp"

var colorPattern = regexp.MustCompile(`^#[0-9A-F]{6}$`)

// Color is an RGB value written as '#' followed by six uppercase hex digits
type Color string

// Valid reports whether c matches ^#[0-9A-F]{6}$
func (c Color) Valid() bool {
	return colorPattern.MatchString(string(c))
}

// Palette is an ordered list of colors. Entries need not be unique.
type Palette []Color

// Valid reports whether every entry is a valid Color
func (p Palette) Valid() bool {
	for _, c := range p {
		if !c.Valid() {
			return false
		}
	}
	return true
}

// At returns the color for index i, cycling through the palette
func (p Palette) At(i int) Color {
	if len(p) == 0 {
		return ""
	}
	return p[i%len(p)]
}

// Strings converts to a plain string slice
func (p Palette) Strings() []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[i] = string(c)
	}
	return out
}
