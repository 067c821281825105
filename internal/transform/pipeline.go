package transform

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/wonny/fibivi/internal/contracts"
	"github.com/wonny/fibivi/internal/ingest"
	"github.com/wonny/fibivi/pkg/config"
	"github.com/wonny/fibivi/pkg/logger"
)

// Pipeline runs decode → normalize → dedup → calibrate for one view.
// It holds no per-call state and is safe for concurrent use.
// ⭐ SSOT: 업로드 → Cleaned Dataset 변환은 이 파이프라인에서만
type Pipeline struct {
	opts     CalibrateOptions
	logger   *logger.Logger
	progress func(Stage)
}

// Stage marks pipeline progress for callers that report it
type Stage int

const (
	StageReading   Stage = iota // before the table is parsed
	StageRead                   // table parsed, before normalization
	StageFormatted              // cleaned and calibrated
)

// Result is what a rendering collaborator consumes
type Result struct {
	View        config.ViewSpec       `json:"view"`
	Dataset     *contracts.Dataset    `json:"dataset"`
	Calibration contracts.Calibration `json:"calibration"`
}

// New creates a pipeline
func New(opts CalibrateOptions, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{opts: opts, logger: log}
}

// WithProgress returns a copy of p that reports each stage to fn
func (p *Pipeline) WithProgress(fn func(Stage)) *Pipeline {
	cp := *p
	cp.progress = fn
	return &cp
}

func (p *Pipeline) report(s Stage) {
	if p.progress != nil {
		p.progress(s)
	}
}

// NewFromConfig creates a pipeline from the view section of the config
func NewFromConfig(cfg *config.Config, log *logger.Logger) *Pipeline {
	return New(CalibrateOptions{
		LookbackDays: cfg.View.LookbackDays,
		Anchor:       cfg.View.Anchor,
	}, log)
}

// Run processes an enveloped upload for one view
func (p *Pipeline) Run(payload []byte, view config.ViewSpec) (*Result, error) {
	content, err := ingest.DecodeEnvelope(payload)
	if err != nil {
		return nil, err
	}
	return p.RunTable(bytes.NewReader(content), view)
}

// RunTable processes raw delimited text for one view
func (p *Pipeline) RunTable(r io.Reader, view config.ViewSpec) (*Result, error) {
	start := time.Now()

	p.report(StageReading)
	raw, err := ingest.ParseTable(r)
	if err != nil {
		return nil, fmt.Errorf("parse table: %w", err)
	}
	p.report(StageRead)

	mode, err := contracts.ParseTimestampMode(view.TimestampMode)
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", view.Name, err)
	}

	cleaned, err := Clean(raw, mode)
	if err != nil {
		return nil, err
	}

	cal, err := Calibrate(cleaned, view.Column, p.opts)
	if err != nil {
		return nil, fmt.Errorf("calibrate %s: %w", view.Column, err)
	}
	p.report(StageFormatted)

	p.logger.WithFields(map[string]interface{}{
		"view":     view.Name,
		"rows":     raw.Len(),
		"kept":     cleaned.Len(),
		"min":      cal.Range.Min,
		"max":      cal.Range.Max,
		"window":   cal.Window.Start.String() + ".." + cal.Window.End.String(),
		"duration": time.Since(start),
	}).Debug("Pipeline completed")

	return &Result{View: view, Dataset: cleaned, Calibration: cal}, nil
}

// Clean normalizes timestamps and drops same-day duplicates
func Clean(raw *contracts.Dataset, mode contracts.TimestampMode) (*contracts.Dataset, error) {
	normalized, err := Normalize(raw, mode)
	if err != nil {
		return nil, fmt.Errorf("normalize timestamps: %w", err)
	}

	normalized.Records = Dedup(normalized.Records)
	return normalized, nil
}
