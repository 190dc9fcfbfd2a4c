package domain

import (
	"errors"
	"fmt"
)

// ErrLayoutParse marks a record layout that produced no usable field descriptions.
var ErrLayoutParse = errors.New("layout yields no usable fields")

// LayoutParseError reports a layout description that matched no wanted fields.
// It is fatal for the input file it describes.
type LayoutParseError struct {
	Source string
}

func (e *LayoutParseError) Error() string {
	if e.Source == "" {
		return ErrLayoutParse.Error()
	}
	return fmt.Sprintf("%s: %v", e.Source, ErrLayoutParse)
}

// Unwrap allows errors.Is(err, ErrLayoutParse).
func (e *LayoutParseError) Unwrap() error { return ErrLayoutParse }

// RecordDecodeError reports a fixed-width line whose field could not be parsed.
// Only the offending record is dropped.
type RecordDecodeError struct {
	Line  int
	Field string
	Err   error
}

func (e *RecordDecodeError) Error() string {
	return fmt.Sprintf("line %d: field %s: %v", e.Line, e.Field, e.Err)
}

func (e *RecordDecodeError) Unwrap() error { return e.Err }

// PlanError reports a malformed aggregation plan.
type PlanError struct {
	Plan   string
	Reason string
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("plan %s: %s", e.Plan, e.Reason)
}
