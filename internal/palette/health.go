package palette

import (
	"sync"
	"time"
)

// Status is the last known palette service availability
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusUp      Status = "up"
	StatusDown    Status = "down"
)

// Health records probe outcomes. Safe for concurrent use.
type Health struct {
	mu        sync.RWMutex
	status    Status
	lastErr   string
	checkedAt time.Time
}

// HealthSnapshot is a point-in-time copy of Health
type HealthSnapshot struct {
	Status    Status    `json:"status"`
	LastError string    `json:"last_error,omitempty"`
	CheckedAt time.Time `json:"checked_at,omitempty"`
}

// NewHealth starts in StatusUnknown
func NewHealth() *Health {
	return &Health{status: StatusUnknown}
}

// Record stores the result of one probe
func (h *Health) Record(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checkedAt = time.Now()
	if err != nil {
		h.status = StatusDown
		h.lastErr = err.Error()
		return
	}
	h.status = StatusUp
	h.lastErr = ""
}

// Status returns the current status
func (h *Health) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Snapshot returns a copy of the current state
func (h *Health) Snapshot() HealthSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HealthSnapshot{Status: h.status, LastError: h.lastErr, CheckedAt: h.checkedAt}
}
