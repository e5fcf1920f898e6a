package store

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by the store and the engines above it. Callers match
// with errors.Is; the wrapped message carries the detail.
var (
	// ErrInvalidInput marks malformed or out-of-range caller data. Never retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidReference marks a write naming an absent quest or adventurer.
	// It matches ErrNotFound as well.
	ErrInvalidReference = fmt.Errorf("invalid reference: %w", ErrNotFound)
	// ErrDuplicateIdentity marks an adventurer name collision on creation.
	ErrDuplicateIdentity = errors.New("duplicate identity")
	// ErrConflict marks a lost optimistic-concurrency race. Reload and retry.
	ErrConflict = errors.New("conflict: quest was changed by someone else")
	// ErrStoreUnavailable marks a backend connectivity problem. Retry later.
	ErrStoreUnavailable = errors.New("store unavailable")
)

var taxonomy = []error{
	ErrInvalidInput,
	ErrNotFound,
	ErrDuplicateIdentity,
	ErrConflict,
	ErrStoreUnavailable,
}

// Retryable reports whether the caller may retry the same operation: after a
// reload for ErrConflict, after a delay for ErrStoreUnavailable.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrStoreUnavailable)
}

// Invalid wraps a validation failure.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func classified(err error) bool {
	for _, e := range taxonomy {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
