package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/fibivi/internal/scheduler"
	"github.com/wonny/fibivi/pkg/logger"
)

// JobsHandler exposes the scheduler's jobs
type JobsHandler struct {
	scheduler *scheduler.Scheduler
	logger    *logger.Logger
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(s *scheduler.Scheduler, log *logger.Logger) *JobsHandler {
	return &JobsHandler{scheduler: s, logger: log}
}

// List returns stats for every job, by name
// GET /api/jobs
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	stats := h.scheduler.Stats()

	out := make([]scheduler.JobStats, 0, len(stats))
	for _, name := range h.scheduler.Jobs() {
		if st, ok := stats[name]; ok {
			out = append(out, st)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  out,
		"count": len(out),
	})
}

// History returns one job's recent runs
// GET /api/jobs/{job}/history
func (h *JobsHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.scheduler.History(mux.Vars(r)["job"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// Run triggers a job outside its schedule
// POST /api/jobs/{job}/run
func (h *JobsHandler) Run(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["job"]
	if err := h.scheduler.RunJob(name); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.logger.WithField("job", name).Info("Job triggered via API")
	respondJSON(w, http.StatusAccepted, map[string]string{
		"job":    name,
		"status": "started",
	})
}
