package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/wonny/fibivi/internal/contracts"
)

// Decode turns an enveloped upload into records
func Decode(payload []byte) (*contracts.Dataset, error) {
	content, err := DecodeEnvelope(payload)
	if err != nil {
		return nil, err
	}
	return ParseTable(bytes.NewReader(content))
}

// ParseTable reads delimited text with a header row.
// Every required column must appear in the header; unknown columns are kept
// in Extra in header order. Empty numeric cells are missing values.
func ParseTable(r io.Reader) (*contracts.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0 // header defines the column count
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &contracts.TableError{Message: "missing header row"}
	}
	if err != nil {
		return nil, csvError(err)
	}

	header = normalizeHeader(header)
	index, err := indexHeader(header)
	if err != nil {
		return nil, err
	}

	ds := &contracts.Dataset{Header: header}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}

		line, _ := reader.FieldPos(0)
		rec, err := parseRow(row, header, index, line)
		if err != nil {
			return nil, err
		}
		ds.Records = append(ds.Records, rec)
	}

	return ds, nil
}

// normalizeHeader trims spaces and a UTF-8 BOM from column names
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func indexHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if name == "" {
			return nil, &contracts.TableError{Line: 1, Message: fmt.Sprintf("empty column name at position %d", i+1)}
		}
		if _, dup := index[name]; dup {
			return nil, &contracts.TableError{Line: 1, Column: name, Message: "duplicate column"}
		}
		index[name] = i
	}

	for _, col := range contracts.RequiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &contracts.TableError{Line: 1, Column: col, Message: "required column missing"}
		}
	}

	return index, nil
}

var knownColumns = func() map[string]bool {
	m := make(map[string]bool, len(contracts.RequiredColumns))
	for _, c := range contracts.RequiredColumns {
		m[c] = true
	}
	return m
}()

func parseRow(row, header []string, index map[string]int, line int) (contracts.SleepRecord, error) {
	var rec contracts.SleepRecord
	var err error

	cell := func(col string) string { return strings.TrimSpace(row[index[col]]) }

	idText := cell(contracts.ColEntryID)
	if idText == "" {
		return rec, &contracts.TableError{Line: line, Column: contracts.ColEntryID, Message: "value required"}
	}
	rec.EntryID, err = strconv.ParseInt(idText, 10, 64)
	if err != nil {
		return rec, &contracts.TableError{Line: line, Column: contracts.ColEntryID, Message: fmt.Sprintf("not an integer: %q", idText)}
	}

	rec.Timestamp = cell(contracts.ColTimestamp)
	if rec.Timestamp == "" {
		return rec, &contracts.TableError{Line: line, Column: contracts.ColTimestamp, Message: "value required"}
	}

	ints := []struct {
		col string
		dst **int
	}{
		{contracts.ColOverallScore, &rec.OverallScore},
		{contracts.ColCompositionScore, &rec.CompositionScore},
		{contracts.ColRevitalizationScore, &rec.RevitalizationScore},
		{contracts.ColDurationScore, &rec.DurationScore},
		{contracts.ColDeepSleepMinutes, &rec.DeepSleepMinutes},
		{contracts.ColRestingHeartRate, &rec.RestingHeartRate},
	}
	for _, f := range ints {
		v, err := parseOptionalInt(cell(f.col))
		if err != nil {
			return rec, &contracts.TableError{Line: line, Column: f.col, Message: err.Error()}
		}
		*f.dst = v
	}

	rec.Restlessness, err = parseOptionalFloat(cell(contracts.ColRestlessness))
	if err != nil {
		return rec, &contracts.TableError{Line: line, Column: contracts.ColRestlessness, Message: err.Error()}
	}

	for i, name := range header {
		if knownColumns[name] {
			continue
		}
		rec.Extra = append(rec.Extra, contracts.Field{Name: name, Value: row[i]})
	}

	return rec, nil
}

// parseOptionalInt accepts "80" and the integral float form "80.0" that
// spreadsheet tools write once a column has gaps.
func parseOptionalInt(s string) (*int, error) {
	if isMissing(s) {
		return nil, nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return nil, fmt.Errorf("not an integer: %q", s)
	}
	if math.Abs(f) > math.MaxInt32 {
		return nil, fmt.Errorf("integer out of range: %q", s)
	}
	v := int(f)
	return &v, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	if isMissing(s) {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	return &f, nil
}

func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "na", "null":
		return true
	}
	return false
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &contracts.TableError{Line: pe.Line, Message: pe.Err.Error()}
	}
	return &contracts.TableError{Message: err.Error()}
}
