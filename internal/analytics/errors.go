package analytics

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	// ErrInvalidInput is returned when a required column is missing or unparseable.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUndefinedScore is returned when a derived ratio or score would divide by zero.
	ErrUndefinedScore = errors.New("undefined score")

	// ErrInsufficientData is returned when too few rows remain for a meaningful result.
	ErrInsufficientData = errors.New("insufficient data")
)

// InvalidInputError describes a missing or unparseable input column.
// Row is the 1-based data row, 0 when the whole column is at fault.
type InvalidInputError struct {
	Column string
	Row    int
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("invalid input: column %q row %d (%q): %s", e.Column, e.Row, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid input: column %q: %s", e.Column, e.Reason)
}

// Is reports whether target is ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// UndefinedScoreError identifies the key (date, address or date range)
// whose score has a zero denominator.
type UndefinedScoreError struct {
	Analysis string
	Key      string
	Reason   string
}

func (e *UndefinedScoreError) Error() string {
	return fmt.Sprintf("undefined score: %s[%s]: %s", e.Analysis, e.Key, e.Reason)
}

// Is reports whether target is ErrUndefinedScore.
func (e *UndefinedScoreError) Is(target error) bool {
	return target == ErrUndefinedScore
}

// InsufficientDataError reports that an analysis had fewer rows than it needs.
type InsufficientDataError struct {
	Analysis string
	Have     int
	Need     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s needs at least %d row(s), have %d", e.Analysis, e.Need, e.Have)
}

// Is reports whether target is ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// AnalysisError wraps a failure with the name of the pass that produced it.
type AnalysisError struct {
	Pass string
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s analysis failed: %v", e.Pass, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies err for metrics and HTTP mapping.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUndefinedScore):
		return "undefined_score"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	default:
		return "internal"
	}
}
