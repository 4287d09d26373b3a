// Package booking implements the capacity allocation core: the atomic
// reservation transaction, the confirmation code issuer, the validation
// token state machine and the advisory capacity read.  All shared state
// lives in the durable store; the store's own locking is the only
// concurrency control relied upon.
package booking

import (
	"errors"
	"fmt"
	"time"
)

// Logical rejections.  These are expected business outcomes: they are
// returned as values, never panics, and the core never retries them.
// Handlers must map each one to its own user-facing message.
var (
	// ErrInvalidRequest signals a request that fails the minimal sanity
	// checks (non-positive quantity, blank name, malformed email).  The
	// web layer validates properly; this is only a backstop.
	ErrInvalidRequest = errors.New("invalid reservation request")

	// ErrDateNotFound is returned when the requested day has no
	// event_dates row.
	ErrDateNotFound = errors.New("event date not found")

	// ErrDateUnavailable is returned when the night exists but the
	// administrative is_available switch is off.
	ErrDateUnavailable = errors.New("event date is not open for sale")

	// ErrDuplicateReservation is returned when a confirmed reservation
	// already exists for the same email and date.
	ErrDuplicateReservation = errors.New("a confirmed reservation already exists for this email and date")

	// ErrSoldOut is returned when zero tickets remain for the night.
	ErrSoldOut = errors.New("event date is sold out")

	// ErrReservationNotFound is returned by Cancel when no confirmed
	// reservation carries the given id.
	ErrReservationNotFound = errors.New("confirmed reservation not found")

	// ErrTokenNotFound is returned when a scanned token does not exist.
	ErrTokenNotFound = errors.New("validation token not found")

	// ErrTokenExpired is returned when a token's expiry has passed.
	// Expired tokens are never redeemable, races included.
	ErrTokenExpired = errors.New("validation token expired")
)

// InsufficientCapacityError rejects a request for more tickets than
// remain.  Remaining is actionable for the purchaser and must reach the
// user-facing message.
type InsufficientCapacityError struct {
	Remaining int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("only %d tickets remain for this date", e.Remaining)
}

// PerReservationLimitError rejects a request above the night's
// per-purchase cap.
type PerReservationLimitError struct {
	Limit int
}

func (e *PerReservationLimitError) Error() string {
	return fmt.Sprintf("at most %d tickets may be reserved at once", e.Limit)
}

// AlreadyRedeemedError rejects a second redemption of a token and
// carries the original timestamp for the door-staff display
// ("already used at ...").
type AlreadyRedeemedError struct {
	RedeemedAt time.Time
}

func (e *AlreadyRedeemedError) Error() string {
	return fmt.Sprintf("token already redeemed at %s", e.RedeemedAt.UTC().Format(time.RFC3339))
}

// StorageError wraps any transactional failure of the underlying store.
// It is opaque to callers: the outcome of the attempt is unknown, so the
// caller, never the core, decides whether to retry the whole purchase,
// and should do so at most once.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// IsRejection reports whether err is one of the logical rejections as
// opposed to a storage failure.  Used by handlers and metrics to split
// business outcomes from infrastructure trouble.
func IsRejection(err error) bool {
	var insufficient *InsufficientCapacityError
	var perLimit *PerReservationLimitError
	var redeemed *AlreadyRedeemedError
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrDateNotFound),
		errors.Is(err, ErrDateUnavailable),
		errors.Is(err, ErrDuplicateReservation),
		errors.Is(err, ErrSoldOut),
		errors.Is(err, ErrReservationNotFound),
		errors.Is(err, ErrTokenNotFound),
		errors.Is(err, ErrTokenExpired):
		return true
	case errors.As(err, &insufficient), errors.As(err, &perLimit), errors.As(err, &redeemed):
		return true
	}
	return false
}
