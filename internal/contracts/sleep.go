package contracts

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Column names of the sleep score export
const (
	ColEntryID             = "sleep_log_entry_id"
	ColTimestamp           = "timestamp"
	ColOverallScore        = "overall_score"
	ColCompositionScore    = "composition_score"
	ColRevitalizationScore = "revitalization_score"
	ColDurationScore       = "duration_score"
	ColDeepSleepMinutes    = "deep_sleep_in_minutes"
	ColRestingHeartRate    = "resting_heart_rate"
	ColRestlessness        = "restlessness"
)

// RequiredColumns lists the fixed column contract. Order in the file is free.
var RequiredColumns = []string{
	ColEntryID,
	ColTimestamp,
	ColOverallScore,
	ColCompositionScore,
	ColRevitalizationScore,
	ColDurationScore,
	ColDeepSleepMinutes,
	ColRestingHeartRate,
	ColRestlessness,
}

// TimestampMode selects which derived fields the normalizer attaches
type TimestampMode int

const (
	ModeDate TimestampMode = iota
	ModeDateTime
)

func (m TimestampMode) String() string {
	if m == ModeDateTime {
		return "datetime"
	}
	return "date"
}

// ParseTimestampMode maps "date" / "datetime"
func ParseTimestampMode(s string) (TimestampMode, error) {
	switch strings.ToLower(s) {
	case "date", "":
		return ModeDate, nil
	case "datetime", "date-time", "date_time":
		return ModeDateTime, nil
	default:
		return ModeDate, fmt.Errorf("unknown timestamp mode %q", s)
	}
}

// Field is an unknown extra column carried through untouched
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SleepRecord is one row of the sleep score export plus derived fields.
// Nil numeric pointers are missing values.
type SleepRecord struct {
	EntryID             int64    `json:"sleep_log_entry_id"`
	Timestamp           string   `json:"timestamp"`
	OverallScore        *int     `json:"overall_score"`
	CompositionScore    *int     `json:"composition_score"`
	RevitalizationScore *int     `json:"revitalization_score"`
	DurationScore       *int     `json:"duration_score"`
	DeepSleepMinutes    *int     `json:"deep_sleep_in_minutes"`
	RestingHeartRate    *int     `json:"resting_heart_rate"`
	Restlessness        *float64 `json:"restlessness"`
	Extra               []Field  `json:"extra,omitempty"`

	// Derived (never read from input)
	Date    Date       `json:"date"`
	Time    *TimeOfDay `json:"time,omitempty"`
	Instant time.Time  `json:"-"`
}

// Numeric returns the value of a numeric column.
// ok is false when the value is missing; err is ErrUnknownColumn when the
// record has no such column at all.
func (r SleepRecord) Numeric(column string) (value float64, ok bool, err error) {
	switch column {
	case ColEntryID:
		return float64(r.EntryID), true, nil
	case ColOverallScore:
		return intValue(r.OverallScore)
	case ColCompositionScore:
		return intValue(r.CompositionScore)
	case ColRevitalizationScore:
		return intValue(r.RevitalizationScore)
	case ColDurationScore:
		return intValue(r.DurationScore)
	case ColDeepSleepMinutes:
		return intValue(r.DeepSleepMinutes)
	case ColRestingHeartRate:
		return intValue(r.RestingHeartRate)
	case ColRestlessness:
		if r.Restlessness == nil {
			return 0, false, nil
		}
		return *r.Restlessness, true, nil
	}

	// Extra columns: numeric when parseable, missing otherwise
	for _, f := range r.Extra {
		if f.Name != column {
			continue
		}
		v, perr := strconv.ParseFloat(strings.TrimSpace(f.Value), 64)
		if perr != nil {
			return 0, false, nil
		}
		return v, true, nil
	}

	return 0, false, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
}

func intValue(p *int) (float64, bool, error) {
	if p == nil {
		return 0, false, nil
	}
	return float64(*p), true, nil
}

// Dataset is an ordered record sequence with the header it was read from.
// After deduplication it is the Cleaned Dataset: at most one record per Date.
type Dataset struct {
	Header  []string      `json:"header"`
	Records []SleepRecord `json:"records"`
	Mode    TimestampMode `json:"-"`
}

// Len returns the number of records
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// HasColumn reports whether the header carries the column
func (d *Dataset) HasColumn(name string) bool {
	for _, h := range d.Header {
		if h == name {
			return true
		}
	}
	return false
}

// DisplayRange is advisory (min, max) for a column's color/axis scale.
// It never filters the dataset.
type DisplayRange struct {
	Column string  `json:"column"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// VisibleWindow is the initial visible date span of a view
type VisibleWindow struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains reports whether d falls inside the window (inclusive)
func (w VisibleWindow) Contains(d Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Shift moves both ends by n days
func (w VisibleWindow) Shift(n int) VisibleWindow {
	return VisibleWindow{Start: w.Start.AddDays(n), End: w.End.AddDays(n)}
}

// Calibration is the per-view output of the range calibrator
type Calibration struct {
	Range  DisplayRange  `json:"range"`
	Window VisibleWindow `json:"window"`
}
