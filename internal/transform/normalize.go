package transform

import (
	"time"

	"github.com/wonny/fibivi/internal/contracts"
)

// timestampLayouts is the accepted timestamp grammar, tried in order.
// Offsets in the source are kept as parsed; nothing is converted.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseTimestamp parses one raw timestamp value
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Normalize attaches the derived date (and, in ModeDateTime, time-of-day)
// to every record. The input dataset is left untouched.
func Normalize(ds *contracts.Dataset, mode contracts.TimestampMode) (*contracts.Dataset, error) {
	out := &contracts.Dataset{
		Header:  ds.Header,
		Records: make([]contracts.SleepRecord, len(ds.Records)),
		Mode:    mode,
	}

	for i, rec := range ds.Records {
		ts, ok := ParseTimestamp(rec.Timestamp)
		if !ok {
			return nil, &contracts.TimestampError{Row: i, Value: rec.Timestamp}
		}

		rec.Instant = ts
		rec.Date = contracts.DateOf(ts)
		rec.Time = nil
		if mode == contracts.ModeDateTime {
			tod := contracts.TimeOfDayOf(ts)
			rec.Time = &tod
		}

		out.Records[i] = rec
	}

	return out, nil
}
