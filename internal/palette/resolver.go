package palette

import (
	"context"
	"errors"

	"github.com/wonny/fibivi/internal/contracts"
	"github.com/wonny/fibivi/pkg/logger"
)

// Source supplies palettes; *Client is the networked implementation
type Source interface {
	RequestPalette(ctx context.Context, count int) (contracts.Palette, error)
}

// Selection is the coloring decision for one render
type Selection struct {
	Colors     contracts.Palette
	Randomized bool
	Reason     string // why the default coloring was used, empty when randomized
}

// Fallback reasons
const (
	ReasonNotRequested = "random colors not requested"
	ReasonEmpty        = "no values to color"
)

// Resolver decides between service colors and the default scale.
// A palette failure never fails the render.
// ⭐ SSOT: 랜덤 색상 fallback 정책은 여기서만
type Resolver struct {
	source   Source
	breaker  *Breaker
	health   *Health
	maxCount int
	logger   *logger.Logger
}

// NewResolver wraps source with breaker and health. breaker and health may be nil.
func NewResolver(source Source, breaker *Breaker, health *Health, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{source: source, breaker: breaker, health: health, logger: log}
}

// WithMaxCount caps how many colors one Resolve asks the source for.
// Longer datasets cycle through the palette.
func (r *Resolver) WithMaxCount(n int) *Resolver {
	r.maxCount = n
	return r
}

// Resolve returns count random colors when requested and available,
// otherwise a Selection with Randomized=false.
func (r *Resolver) Resolve(ctx context.Context, count int, random bool) Selection {
	if !random {
		return Selection{Reason: ReasonNotRequested}
	}
	if count <= 0 {
		return Selection{Reason: ReasonEmpty}
	}
	if r.maxCount > 0 && count > r.maxCount {
		count = r.maxCount
	}
	if r.source == nil {
		return Selection{Reason: contracts.ErrServiceUnavailable.Error()}
	}

	var colors contracts.Palette
	op := func(ctx context.Context) error {
		p, err := r.source.RequestPalette(ctx, count)
		if err != nil {
			return err
		}
		colors = p
		return nil
	}

	var err error
	if r.breaker != nil {
		err = r.breaker.Execute(ctx, op)
	} else {
		err = op(ctx)
	}

	if !errors.Is(err, ErrBreakerOpen) && r.health != nil {
		r.health.Record(err)
	}
	if err != nil {
		r.logger.WithError(err).WithField("count", count).Warn("Palette unavailable, using default colors")
		return Selection{Reason: err.Error()}
	}

	return Selection{Colors: colors, Randomized: true}
}
