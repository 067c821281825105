package palette

import (
	"math/rand/v2"

	"github.com/wonny/fibivi/internal/contracts"
)

const hexDigits = "0123456789ABCDEF"

// Generator produces random colors. Not safe for concurrent use; the server
// creates one per connection.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator seeds a fresh generator from the runtime source
func NewGenerator() *Generator {
	return NewSeededGenerator(rand.Uint64(), rand.Uint64())
}

// NewSeededGenerator is deterministic for a given seed pair
func NewSeededGenerator(seed1, seed2 uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// Color draws six hex digits uniformly from 0-9, A-F
func (g *Generator) Color() contracts.Color {
	var b [7]byte
	b[0] = '#'
	for i := 1; i < len(b); i++ {
		b[i] = hexDigits[g.rng.IntN(len(hexDigits))]
	}
	return contracts.Color(b[:])
}

// Palette draws n independent colors (duplicates allowed)
func (g *Generator) Palette(n int) contracts.Palette {
	if n <= 0 {
		return contracts.Palette{}
	}
	out := make(contracts.Palette, n)
	for i := range out {
		out[i] = g.Color()
	}
	return out
}
