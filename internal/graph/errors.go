package graph

import (
	"errors"
	"fmt"
)

// ErrCycle is returned alongside a partial result when a parent chain loops.
var ErrCycle = errors.New("graph: cycle in parent chain")

// ValidationError is a caller-correctable problem with a mutation request.
// It is raised before any remote write is attempted.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
	Hint   string // optional, e.g. a near-miss name
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// WarningKind classifies a consistency warning.
type WarningKind string

const (
	WarnDanglingEdge    WarningKind = "dangling-edge"
	WarnDanglingParent  WarningKind = "dangling-parent"
	WarnDuplicateSystem WarningKind = "duplicate-system"
	WarnDuplicateChild  WarningKind = "duplicate-child"
	WarnCycle           WarningKind = "cycle"
)

// Warning is a non-fatal inconsistency found while building or checking a
// graph. Loading never aborts because of a warning.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Subject string      `json:"subject"`
	Detail  string      `json:"detail"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Kind, w.Subject, w.Detail)
}
