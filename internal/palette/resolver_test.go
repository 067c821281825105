package palette

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fibivi/internal/contracts"
)

type fakeSource struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSource) RequestPalette(_ context.Context, count int) (contracts.Palette, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return NewSeededGenerator(1, 1).Palette(count), nil
}

func TestResolverNotRequested(t *testing.T) {
	src := &fakeSource{}
	sel := NewResolver(src, nil, nil, nil).Resolve(context.Background(), 5, false)

	assert.False(t, sel.Randomized)
	assert.Equal(t, ReasonNotRequested, sel.Reason)
	assert.Zero(t, src.calls.Load())
}

func TestResolverRandomized(t *testing.T) {
	health := NewHealth()
	sel := NewResolver(&fakeSource{}, nil, health, nil).Resolve(context.Background(), 4, true)

	assert.True(t, sel.Randomized)
	assert.Len(t, sel.Colors, 4)
	assert.Equal(t, StatusUp, health.Status())
}

func TestResolverFallsBackWhenUnreachable(t *testing.T) {
	health := NewHealth()
	client := NewClient(testPaletteConfig(freePort(t)))

	sel := NewResolver(client, nil, health, nil).Resolve(context.Background(), 5, true)

	assert.False(t, sel.Randomized)
	assert.Empty(t, sel.Colors)
	assert.Contains(t, sel.Reason, contracts.ErrServiceUnavailable.Error())
	assert.Equal(t, StatusDown, health.Status())
}

func TestResolverBreakerStopsCalls(t *testing.T) {
	src := &fakeSource{err: contracts.ErrServiceUnavailable}
	breaker := NewBreaker(BreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour}, nil)
	r := NewResolver(src, breaker, nil, nil)

	for i := 0; i < 5; i++ {
		sel := r.Resolve(context.Background(), 3, true)
		assert.False(t, sel.Randomized)
	}
	assert.Equal(t, int32(2), src.calls.Load())
	assert.Equal(t, BreakerOpen, breaker.State())
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(BreakerConfig{MaxFailures: 1, ResetTimeout: time.Minute}, nil)
	b.now = func() time.Time { return now }

	fail := func(context.Context) error { return errors.New("boom") }
	ok := func(context.Context) error { return nil }

	require.Error(t, b.Execute(context.Background(), fail))
	assert.Equal(t, BreakerOpen, b.State())
	assert.ErrorIs(t, b.Execute(context.Background(), ok), ErrBreakerOpen)

	now = now.Add(2 * time.Minute)
	require.Error(t, b.Execute(context.Background(), fail))
	assert.Equal(t, BreakerOpen, b.State(), "failed probe reopens")

	now = now.Add(2 * time.Minute)
	require.NoError(t, b.Execute(context.Background(), ok))
	assert.Equal(t, BreakerClosed, b.State())
}

func TestHealthSnapshot(t *testing.T) {
	h := NewHealth()
	assert.Equal(t, StatusUnknown, h.Snapshot().Status)

	h.Record(errors.New("dial refused"))
	snap := h.Snapshot()
	assert.Equal(t, StatusDown, snap.Status)
	assert.Equal(t, "dial refused", snap.LastError)
	assert.False(t, snap.CheckedAt.IsZero())

	h.Record(nil)
	assert.Equal(t, StatusUp, h.Status())
	assert.Empty(t, h.Snapshot().LastError)
}

func TestResolverCapsCountAtServerLimit(t *testing.T) {
	cfg := startServer(t, nil)
	require.Equal(t, 1024, cfg.MaxCount)

	r := NewResolver(NewClient(cfg), nil, nil, nil).WithMaxCount(cfg.MaxCount)

	sel := r.Resolve(context.Background(), 1100, true)
	require.True(t, sel.Randomized, sel.Reason)
	assert.Len(t, sel.Colors, 1024)

	// every record still gets a color
	assert.Equal(t, sel.Colors[0], sel.Colors.At(1024))

	sel = r.Resolve(context.Background(), 1000, true)
	require.True(t, sel.Randomized, sel.Reason)
	assert.Len(t, sel.Colors, 1000)
}
