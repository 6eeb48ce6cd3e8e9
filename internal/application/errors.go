package application

import (
	"errors"
	"fmt"

	"github.com/example/briefings/internal/persistence"
)

var (
	// ErrUnauthorized is returned when the admin credentials do not match.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when a token or event does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrExpired is returned when a proposal's confirmed date already passed.
	ErrExpired = errors.New("application: confirmed date is in the past")
	// ErrDateUnavailable is returned when the chosen date is not bookable for the proposal.
	ErrDateUnavailable = errors.New("application: date unavailable")
	// ErrStoreFailure wraps unexpected persistence failures.
	ErrStoreFailure = errors.New("application: store failure")
	// ErrNotifierFailure wraps a failed notifier channel. It is only returned
	// when a channel is run on request; confirmations never return it.
	ErrNotifierFailure = errors.New("application: notifier failure")
	// ErrChannelDisabled marks a notifier channel that is not configured.
	ErrChannelDisabled = errors.New("application: notifier channel disabled")
	// ErrInvalidCredentials is returned when a password does not match its hash.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// storeFailure wraps err so that it matches both ErrStoreFailure and err.
func storeFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreFailure, err)
}

// mapLookupError translates repository read errors.
func mapLookupError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	default:
		return storeFailure(err)
	}
}

// mapReservationError translates a failed commit. Losing a race for the slot
// and a proposal changing underneath the caller both mean the date can no
// longer be booked.
func mapReservationError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate), errors.Is(err, persistence.ErrConflict):
		return ErrDateUnavailable
	default:
		return storeFailure(err)
	}
}
