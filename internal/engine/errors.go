package engine

import (
	"errors"
	"fmt"
)

// ErrConflict is returned when a transition is attempted on a record that
// already reached a terminal status. The call performs no mutation.
var ErrConflict = errors.New("request already handled")

// ErrNotFound is returned when the referenced record id does not exist.
var ErrNotFound = errors.New("record not found")

// ValidationError is an admission-control rejection: the request never
// produced a persisted record and the reason is user-visible.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
