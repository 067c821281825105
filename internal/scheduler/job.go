package scheduler

import (
	"context"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Run executes one attempt; the scheduler handles retries
	Run(ctx context.Context) error

	// Schedule is a six-field cron expression, seconds first
	// ("*/30 * * * * *"), or a descriptor ("@every 1m")
	Schedule() string
}

// JobResult is the outcome of one run, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// historyLimit bounds the results kept per job
const historyLimit = 100

// JobHistory is a bounded, oldest-first run log
type JobHistory struct {
	Results []JobResult `json:"results"`
}

// Add appends a result, dropping the oldest past historyLimit
func (h *JobHistory) Add(result JobResult) {
	h.Results = append(h.Results, result)
	if over := len(h.Results) - historyLimit; over > 0 {
		h.Results = h.Results[over:]
	}
}

// Latest returns up to n most recent results, oldest first
func (h *JobHistory) Latest(n int) []JobResult {
	n = min(n, len(h.Results))
	out := make([]JobResult, n)
	copy(out, h.Results[len(h.Results)-n:])
	return out
}

// LastFailure returns the most recent failed run, or nil
func (h *JobHistory) LastFailure() *JobResult {
	for i := len(h.Results) - 1; i >= 0; i-- {
		if !h.Results[i].Success {
			r := h.Results[i]
			return &r
		}
	}
	return nil
}

// Failures counts failed runs
func (h *JobHistory) Failures() int {
	n := 0
	for _, r := range h.Results {
		if !r.Success {
			n++
		}
	}
	return n
}

// SuccessRate is in [0, 1]; 0 when nothing ran yet
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}
	return float64(len(h.Results)-h.Failures()) / float64(len(h.Results))
}
