// Package shared holds the error kinds every domain package builds its errors from.
package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Domain errors unwrap to exactly one of these.
var (
	ErrValidation     = errors.New("validation failed")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrMalformedQuery = errors.New("malformed query")
	ErrStorage        = errors.New("storage failure")
)

// DomainError is a domain-specific error carrying its kind.
type DomainError struct {
	Domain  string // e.g. "project", "logbook"
	Kind    error  // one of the kinds above
	Message string
}

// New returns a DomainError for the given domain and kind.
func New(domain string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Kind: kind, Message: message}
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Domain, e.Message)
}

// Unwrap exposes the kind to errors.Is.
func (e *DomainError) Unwrap() error {
	return e.Kind
}

// Detail wraps err with extra context while keeping it matchable.
func Detail(err error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))
}

// KindOf returns the kind err belongs to, or nil if it has none.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrForbidden, ErrNotFound, ErrConflict, ErrMalformedQuery, ErrStorage} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
