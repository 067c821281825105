package palette

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wonny/fibivi/pkg/logger"
)

// ErrBreakerOpen is returned without contacting the server while the
// breaker is open
var ErrBreakerOpen = errors.New("palette breaker is open")

// BreakerState is the circuit state
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls when the breaker trips
type BreakerConfig struct {
	MaxFailures  int
	ResetTimeout time.Duration
}

// DefaultBreakerConfig trips after 3 consecutive failures for 15s
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{MaxFailures: 3, ResetTimeout: 15 * time.Second}
}

// Breaker fast-fails palette requests after repeated failures so a dead
// server does not cost every render a dial timeout.
type Breaker struct {
	cfg    BreakerConfig
	logger *logger.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
}

// NewBreaker creates a closed breaker
func NewBreaker(cfg BreakerConfig, log *logger.Logger) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Breaker{cfg: cfg, logger: log, now: time.Now}
}

// Execute runs op unless the breaker is open. After ResetTimeout one call is
// let through half-open; its outcome closes or reopens the breaker.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	if b.state == BreakerOpen {
		if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		b.state = BreakerHalfOpen
		b.logger.Info("Palette breaker half-open, probing")
	} else if b.state == BreakerHalfOpen {
		// 다른 호출이 이미 probe 중
		b.mu.Unlock()
		return ErrBreakerOpen
	}
	b.mu.Unlock()

	err := op(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		if b.state != BreakerClosed {
			b.logger.Info("Palette breaker closed")
		}
		b.state = BreakerClosed
		b.failures = 0
		return nil
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.cfg.MaxFailures {
		if b.state != BreakerOpen {
			b.logger.WithField("failures", b.failures).Warn("Palette breaker opened")
		}
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
	return err
}

// State returns the current state
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
