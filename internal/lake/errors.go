package lake

import (
	"errors"
	"fmt"

	"github.com/roach88/statelake/internal/value"
)

// ErrorCode categorizes write errors.
type ErrorCode string

const (
	// ErrCodeNotContainer indicates the write needs an ancestor holding a
	// primitive (or an array asked for a non-index key) to store a key.
	ErrCodeNotContainer ErrorCode = "NOT_CONTAINER"

	// ErrCodeUpdaterFailed indicates the updater passed to Update returned an error.
	ErrCodeUpdaterFailed ErrorCode = "UPDATER_FAILED"
)

// PathError represents a rejected write. A rejected write mutates nothing
// and notifies nobody.
type PathError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the write operation ("set", "apply", "update", "delete").
	Op string

	// Path locates the branch the error refers to.
	Path []string

	// Message is a human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Op, value.FormatPath(e.Path), e.Code, msg)
}

// Unwrap returns the underlying error.
func (e *PathError) Unwrap() error {
	return e.Err
}

// IsNotContainer returns true if the error is a NOT_CONTAINER rejection.
// Uses errors.As to handle wrapped errors.
func IsNotContainer(err error) bool {
	var pe *PathError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeNotContainer
	}
	return false
}

// IsUpdaterFailed returns true if the error came from a failing updater.
// Uses errors.As to handle wrapped errors.
func IsUpdaterFailed(err error) bool {
	var pe *PathError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeUpdaterFailed
	}
	return false
}

func newNotContainerError(op string, path []string, key string, holder value.Value) *PathError {
	return &PathError{
		Code:    ErrCodeNotContainer,
		Op:      op,
		Path:    path,
		Message: fmt.Sprintf("cannot store key %q in %s", key, value.KindOf(holder)),
	}
}

func newUpdaterError(op string, path []string, err error) *PathError {
	return &PathError{
		Code:    ErrCodeUpdaterFailed,
		Op:      op,
		Path:    path,
		Message: "updater failed",
		Err:     err,
	}
}
