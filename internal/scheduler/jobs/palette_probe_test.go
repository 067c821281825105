package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/fibivi/internal/contracts"
	"github.com/wonny/fibivi/internal/palette"
)

type stubSource struct {
	colors contracts.Palette
	err    error
}

func (s stubSource) RequestPalette(context.Context, int) (contracts.Palette, error) {
	return s.colors, s.err
}

func TestPaletteProbeJob(t *testing.T) {
	health := palette.NewHealth()

	up := NewPaletteProbeJob(stubSource{colors: contracts.Palette{"#ABCDEF"}}, health, "*/30 * * * * *", nil)
	assert.Equal(t, "palette_probe", up.Name())
	assert.Equal(t, "*/30 * * * * *", up.Schedule())
	assert.NoError(t, up.Run(context.Background()))
	assert.Equal(t, palette.StatusUp, health.Status())

	down := NewPaletteProbeJob(stubSource{err: contracts.ErrServiceUnavailable}, health, "@every 1m", nil)
	assert.ErrorIs(t, down.Run(context.Background()), contracts.ErrServiceUnavailable)
	assert.Equal(t, palette.StatusDown, health.Status())

	short := NewPaletteProbeJob(stubSource{colors: contracts.Palette{}}, health, "@every 1m", nil)
	assert.Error(t, short.Run(context.Background()))
}
