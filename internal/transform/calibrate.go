package transform

import (
	"fmt"
	"math"

	"github.com/wonny/fibivi/internal/contracts"
	"github.com/wonny/fibivi/pkg/config"
)

// CalibrateOptions controls the visible window
type CalibrateOptions struct {
	LookbackDays int
	Anchor       string // config.AnchorFirst or config.AnchorLatest
}

// DefaultCalibrateOptions anchors on the first record, 120 days back
func DefaultCalibrateOptions() CalibrateOptions {
	return CalibrateOptions{LookbackDays: 120, Anchor: config.AnchorFirst}
}

// Calibrate computes the display range of column and the visible window.
// The dataset is read only.
func Calibrate(ds *contracts.Dataset, column string, opts CalibrateOptions) (contracts.Calibration, error) {
	rng, err := DisplayRange(ds, column)
	if err != nil {
		return contracts.Calibration{}, err
	}

	win, err := Window(ds, opts)
	if err != nil {
		return contracts.Calibration{}, err
	}

	return contracts.Calibration{Range: rng, Window: win}, nil
}

// DisplayRange returns (min, max) of column over non-missing values
func DisplayRange(ds *contracts.Dataset, column string) (contracts.DisplayRange, error) {
	if !ds.HasColumn(column) {
		return contracts.DisplayRange{}, fmt.Errorf("%w: %q", contracts.ErrUnknownColumn, column)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	seen := 0

	for _, rec := range ds.Records {
		v, ok, err := rec.Numeric(column)
		if err != nil {
			return contracts.DisplayRange{}, err
		}
		if !ok || math.IsNaN(v) {
			continue
		}
		seen++
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if seen == 0 {
		return contracts.DisplayRange{}, fmt.Errorf("%w: column %q has no values", contracts.ErrEmptyRange, column)
	}

	return contracts.DisplayRange{Column: column, Min: lo, Max: hi}, nil
}

// Window returns (anchor - LookbackDays, anchor).
// AnchorFirst takes the first record's date in current order; AnchorLatest
// takes the maximum date.
func Window(ds *contracts.Dataset, opts CalibrateOptions) (contracts.VisibleWindow, error) {
	if ds.Len() == 0 {
		return contracts.VisibleWindow{}, fmt.Errorf("%w: no records", contracts.ErrEmptyRange)
	}

	lookback := opts.LookbackDays
	if lookback <= 0 {
		lookback = DefaultCalibrateOptions().LookbackDays
	}

	end := ds.Records[0].Date
	if opts.Anchor == config.AnchorLatest {
		for _, rec := range ds.Records[1:] {
			if rec.Date.After(end) {
				end = rec.Date
			}
		}
	}

	return contracts.VisibleWindow{Start: end.AddDays(-lookback), End: end}, nil
}
