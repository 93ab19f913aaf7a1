/*
Package fault defines the error taxonomy shared across the backend.

PURPOSE:
  Every domain error unwraps to exactly one of the sentinel categories
  below. Domain packages wrap a sentinel with context; the API layer
  classifies with errors.Is and picks the HTTP status. No error is
  inspected by string matching anywhere.

CATEGORIES:
  ErrNotFound      user/branch/leave/record absent
  ErrPrecondition  missing time zone, unconfigured weekends,
                   already punched in/out
  ErrValidation    malformed input, insufficient balance, overlap
  ErrForbidden     acting on another user's leave, cancel window closed
  ErrUpstream      reverse-geocoding (or other dependency) unavailable

USAGE:
  return fmt.Errorf("branch %q: %w", name, fault.ErrNotFound)

  if errors.Is(err, fault.ErrPrecondition) { ... }

SEE ALSO:
  - api/errors.go: category → HTTP status mapping
*/
package fault

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL CATEGORIES - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPrecondition indicates the operation is not valid in the current
	// state (e.g. punching out before punching in).
	ErrPrecondition = errors.New("precondition failed")

	// ErrValidation indicates the input itself is unacceptable.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden indicates the caller is not allowed to perform the
	// operation on this resource.
	ErrForbidden = errors.New("forbidden")

	// ErrUpstream indicates a dependency (geocoder, etc.) is unavailable.
	ErrUpstream = errors.New("upstream unavailable")
)

// Wrap attaches a stable, caller-facing message to a category.
func Wrap(category error, format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, category)...)
}

// =============================================================================
// HELPERS
// =============================================================================

// IsClientError reports whether the error is the caller's fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrPrecondition) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrForbidden)
}

// IsNotFound reports whether the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable reports whether the operation might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstream)
}
