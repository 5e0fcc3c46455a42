package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the scheduling taxonomy. Callers classify with
// errors.Is; construction goes through the helpers below so every error
// carries context alongside its category.
var (
	// ErrValidation - malformed input; fatal to the operation, surfaced as a
	// corrective prompt. Never retried.
	ErrValidation = errors.New("validation error")

	// ErrExternalService - collaborator (calendar, NLU, transport) unreachable
	// after retries have been exhausted.
	ErrExternalService = errors.New("external service error")

	// ErrConflict - slot taken between offer and confirmation. Triggers a
	// re-offer of refreshed slots, not a hard failure.
	ErrConflict = errors.New("slot conflict")

	// ErrBookingFailed - book-source event creation failed after retries;
	// the reservation was released and nothing was persisted.
	ErrBookingFailed = errors.New("booking failed")

	// ErrRateLimited - sender exceeded the per-sender token bucket. The
	// message is dropped with a throttle notice; no state change.
	ErrRateLimited = errors.New("rate limited")

	// ErrSessionExpired - session passed its inactivity window. Reset to idle
	// transparently on the next message.
	ErrSessionExpired = errors.New("session expired")

	// ErrNotFound - unknown booking or rule id.
	ErrNotFound = errors.New("not found")

	// ErrInternal - anything unclassified. Logged with full context and
	// converted to a generic apology at the surface.
	ErrInternal = errors.New("internal error")
)

// Wrap adds context without changing the error's category.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func Validation(message string) error {
	return fmt.Errorf("%s: %w", message, ErrValidation)
}

func Validationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

func ExternalService(message string) error {
	return fmt.Errorf("%s: %w", message, ErrExternalService)
}

func Conflict(message string) error {
	return fmt.Errorf("%s: %w", message, ErrConflict)
}

func BookingFailed(message string) error {
	return fmt.Errorf("%s: %w", message, ErrBookingFailed)
}

func NotFound(message string) error {
	return fmt.Errorf("%s: %w", message, ErrNotFound)
}

func Internal(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInternal)
}

// IsCategory reports whether err belongs to the given sentinel category.
func IsCategory(err, category error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, category)
}
