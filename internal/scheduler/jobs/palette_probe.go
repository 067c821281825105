package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/fibivi/internal/palette"
	"github.com/wonny/fibivi/pkg/logger"
)

// probeTimeout bounds one probe regardless of the client's own deadlines
const probeTimeout = 10 * time.Second

// PaletteProbeJob asks the palette service for one color and records
// whether it answered
type PaletteProbeJob struct {
	source   palette.Source
	health   *palette.Health
	schedule string
	logger   *logger.Logger
}

// NewPaletteProbeJob creates a new palette probe job
func NewPaletteProbeJob(source palette.Source, health *palette.Health, schedule string, log *logger.Logger) *PaletteProbeJob {
	if log == nil {
		log = logger.Nop()
	}
	return &PaletteProbeJob{
		source:   source,
		health:   health,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *PaletteProbeJob) Name() string {
	return "palette_probe"
}

// Schedule returns the cron schedule (seconds field first)
func (j *PaletteProbeJob) Schedule() string {
	return j.schedule
}

// Run executes one probe
func (j *PaletteProbeJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	colors, err := j.source.RequestPalette(ctx, 1)
	if err == nil && len(colors) != 1 {
		err = fmt.Errorf("probe: got %d colors, want 1", len(colors))
	}

	previous := j.health.Status()
	j.health.Record(err)

	if err != nil {
		if previous != palette.StatusDown {
			j.logger.WithError(err).Warn("Palette service is down")
		}
		return err
	}

	if previous != palette.StatusUp {
		j.logger.Info("Palette service is up")
	}
	return nil
}
