package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSuperseded is returned by a mutation whose in-flight store call was
// cancelled because a newer mutation on the same subject started.
var ErrSuperseded = errors.New("engine: superseded by a newer request")

// StoreError reports a store write that failed. The graph was not changed.
// Intent is the caller's original input, unmodified, so the request can be
// retried as is. For multi-step writes Applied lists the steps the store
// confirmed before the failure; they are not rolled back.
type StoreError struct {
	Op      string
	Intent  any
	Applied []string
	Err     error
}

func (e *StoreError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: store: %v", e.Op, e.Err)
	if len(e.Applied) > 0 {
		fmt.Fprintf(&b, " (already applied: %s)", strings.Join(e.Applied, ", "))
	}
	return b.String()
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreError reports whether err is, or wraps, a *StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
