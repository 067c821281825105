package handlers

import (
	"net/http"

	"github.com/wonny/fibivi/internal/palette"
	"github.com/wonny/fibivi/internal/scheduler"
)

// ServiceName is reported by the health endpoint
const ServiceName = "fibivi-api"

// JobStatsSource reports scheduled job outcomes; *scheduler.Scheduler
type JobStatsSource interface {
	Stats() map[string]scheduler.JobStats
}

// HealthHandler reports API liveness, the last known palette status and
// the probe job record behind it
type HealthHandler struct {
	health *palette.Health
	jobs   JobStatsSource
}

// NewHealthHandler creates a new health handler. jobs may be nil.
func NewHealthHandler(health *palette.Health, jobs JobStatsSource) *HealthHandler {
	return &HealthHandler{health: health, jobs: jobs}
}

// Get returns server health status
// GET /health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	status := palette.StatusUnknown
	if h.health != nil {
		status = h.health.Status()
	}

	body := map[string]interface{}{
		"status":  "ok",
		"service": ServiceName,
		"palette": status,
	}
	if h.jobs != nil {
		body["jobs"] = h.jobs.Stats()
	}

	respondJSON(w, http.StatusOK, body)
}
