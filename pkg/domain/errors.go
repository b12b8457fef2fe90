package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Every typed error below matches exactly one of them
// through errors.Is so callers can branch without knowing the concrete type.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("version conflict")
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")
)

// NotFoundError reports an ID (or a version of it) that does not resolve to a
// live record.
type NotFoundError struct {
	Entity  EntityType
	ID      string
	Version int
}

func (e NotFoundError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("%s %s version %d not found", e.Entity, e.ID, e.Version)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is matches ErrNotFound.
func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports an optimistic concurrency failure. Current is the
// authoritative stored version the caller must refetch.
type ConflictError struct {
	Entity   EntityType
	ID       string
	Expected int
	Current  int
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s %s: expected version %d, current version is %d", e.Entity, e.ID, e.Expected, e.Current)
}

// Is matches ErrConflict.
func (e ConflictError) Is(target error) bool { return target == ErrConflict }

// ValidationError reports malformed input rejected before any mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is matches ErrValidation.
func (e ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError with a formatted message.
func Invalid(field, format string, args ...any) ValidationError {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StorageError wraps a backend failure. It is the only error kind that is
// logged as unexpected.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	if e.Err == nil {
		return "storage: " + e.Op
	}
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e StorageError) Unwrap() error { return e.Err }

// Is matches ErrStorage.
func (e StorageError) Is(target error) bool { return target == ErrStorage }

// IsExpected reports whether err is an outcome surfaced verbatim to callers
// (not found, conflict, validation) rather than a backend failure.
func IsExpected(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrValidation)
}
