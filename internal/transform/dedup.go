package transform

import "github.com/wonny/fibivi/internal/contracts"

// Dedup keeps one record per Date: the last one in sequence order.
// Survivors keep their relative order. Never fails; empty in, empty out.
func Dedup(records []contracts.SleepRecord) []contracts.SleepRecord {
	last := make(map[contracts.Date]int, len(records))
	for i, rec := range records {
		last[rec.Date] = i
	}

	out := make([]contracts.SleepRecord, 0, len(last))
	for i, rec := range records {
		if last[rec.Date] == i {
			out = append(out, rec)
		}
	}
	return out
}
