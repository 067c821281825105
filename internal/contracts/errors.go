package contracts

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the pipeline, the palette service and its callers.
// ⭐ SSOT: 에러 종류는 여기서만 정의, 호출자는 errors.Is 로 판별
var (
	ErrMalformedEnvelope     = errors.New("malformed envelope")
	ErrMalformedTable        = errors.New("malformed table")
	ErrUnparsableTimestamp   = errors.New("unparsable timestamp")
	ErrEmptyRange            = errors.New("empty range")
	ErrUnknownColumn         = errors.New("unknown column")
	ErrServiceUnavailable    = errors.New("palette service unavailable")
	ErrServiceTimeout        = errors.New("palette service timeout")
	ErrMalformedPaletteReply = errors.New("malformed palette reply")
	ErrInvalidCountRequest   = errors.New("invalid count request")
)

// TableError locates a structural problem in the tabular input.
// Line is 1-based and counts the header as line 1.
type TableError struct {
	Line    int
	Column  string
	Message string
}

func (e *TableError) Error() string {
	switch {
	case e.Line > 0 && e.Column != "":
		return fmt.Sprintf("%s: line %d, column %q: %s", ErrMalformedTable, e.Line, e.Column, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("%s: line %d: %s", ErrMalformedTable, e.Line, e.Message)
	default:
		return fmt.Sprintf("%s: %s", ErrMalformedTable, e.Message)
	}
}

func (e *TableError) Unwrap() error { return ErrMalformedTable }

// TimestampError names the offending row (0-based record index) and raw value.
type TimestampError struct {
	Row   int
	Value string
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("%s: row %d: %q", ErrUnparsableTimestamp, e.Row, e.Value)
}

func (e *TimestampError) Unwrap() error { return ErrUnparsableTimestamp }
