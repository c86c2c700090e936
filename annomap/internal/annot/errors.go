// Package annot reads the tables produced around an annotation comparison:
// transcript tracking, gene universes, similarity-search hits and domain
// intervals.
package annot

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is reported, never returned, when a table has no data rows.
var ErrEmptyInput = errors.New("input has no data rows")

// MalformedRecordError names a row that could not be parsed.
type MalformedRecordError struct {
	Source string
	Line   int64
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: row %d: %s", e.Source, e.Line, e.Reason)
}

func malformed(source string, line int64, format string, args ...any) error {
	return &MalformedRecordError{Source: source, Line: line, Reason: fmt.Sprintf(format, args...)}
}
