package core

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.  The HTTP layer maps kinds to status
// codes; the audit log stores them as the run status.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindUpstream     Kind = "upstream_unavailable"
	KindParse        Kind = "parse_failure"
	KindSchema       Kind = "schema_validation_failed"
	KindInternal     Kind = "internal"
)

// Error is returned by Summarize for every failure.  Field is set for
// KindSchema and names the offending path.
type Error struct {
	Kind  Kind
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or KindInternal for errors that did not
// come from the pipeline.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ErrEmptyTranscript is wrapped in a KindInvalidInput error.
var ErrEmptyTranscript = errors.New("transcript must not be empty")
