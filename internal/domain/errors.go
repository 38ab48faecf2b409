// Package domain provides shared domain-level sentinel errors.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound indicates the requested entity does not exist or belongs to another tenant.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the request conflicts with current state.
var ErrConflict = errors.New("conflict")

// ErrValidation indicates malformed input.
var ErrValidation = errors.New("validation failed")

// ErrForbidden indicates the caller may not perform the action.
var ErrForbidden = errors.New("forbidden")

// FieldErrors maps input fields to validation messages.
type FieldErrors map[string]string

// Error implements error.
func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes FieldErrors match ErrValidation.
func (f FieldErrors) Is(target error) bool { return target == ErrValidation }

// Add records msg for field and returns f for chaining.
func (f FieldErrors) Add(field, msg string) FieldErrors {
	f[field] = msg
	return f
}

// OrNil returns nil when no field failed.
func (f FieldErrors) OrNil() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

// Invalid returns a single-field validation error.
func Invalid(field, msg string) error {
	return FieldErrors{field: msg}
}

// Conflictf wraps ErrConflict with a user-facing message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Message strips the sentinel prefix from err for display.
func Message(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrConflict, ErrNotFound, ErrForbidden} {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}
	return msg
}
