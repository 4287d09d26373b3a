package booking

import (
	"context"
	"errors"
	"time"

	"github.com/hollowhill/haunt-ticketing/internal/model"
)

// ErrCodeConflict is returned by ReservationTx.Insert when the
// generated confirmation code collides with an existing row's unique
// index.  The authority regenerates and retries a bounded number of
// times before giving up.
var ErrCodeConflict = errors.New("confirmation code already in use")

// Store is the durable backend of the reservation authority.  The MySQL
// implementation lives in internal/repository; tests substitute an
// in-memory store that mirrors the same locking semantics.
type Store interface {
	// InReservationTx opens one storage transaction, locks the
	// event_dates row for day exclusively, and invokes fn with the
	// locked row.  The lock is held until fn returns and the transaction
	// commits (fn == nil error) or rolls back (any error).  Every
	// concurrent attempt for the same day queues on this lock; attempts
	// for different days must not contend.  Returns ErrDateNotFound
	// without invoking fn when the day has no row.
	InReservationTx(ctx context.Context, day string, fn func(date *model.EventDate, tx ReservationTx) error) error

	// RemainingByDay computes capacity minus the sum of confirmed
	// quantities outside any lock.  Advisory only: it must never gate a
	// commit decision.
	RemainingByDay(ctx context.Context, day string) (int, error)

	// FindByIdempotencyKey returns the confirmed reservation carrying
	// key for the given day, or nil when none exists.
	FindByIdempotencyKey(ctx context.Context, day, key string) (*model.Reservation, error)

	// CancelReservation transitions a confirmed reservation to cancelled
	// and returns the day it was for.  Returns ErrReservationNotFound
	// when no confirmed row carries the id.
	CancelReservation(ctx context.Context, reservationID string) (day string, err error)

	// ReservationSummary returns the display fields of a reservation
	// joined with its event date.
	ReservationSummary(ctx context.Context, reservationID string) (*ReservationSummary, error)
}

// ReservationTx is the set of operations available while the event date
// row lock is held.  Implementations must scope every operation to the
// transaction that took the lock.
type ReservationTx interface {
	// ConfirmedQuantity sums quantity over confirmed reservations for
	// the locked date.
	ConfirmedQuantity(ctx context.Context) (int, error)

	// ConfirmedByEmail returns the confirmed reservation for the locked
	// date and the given email, or nil when there is none.
	ConfirmedByEmail(ctx context.Context, email string) (*model.Reservation, error)

	// Insert writes the reservation row.  Returns ErrCodeConflict when
	// the confirmation code is already taken.
	Insert(ctx context.Context, r *model.Reservation) error
}

// TokenStore persists validation tokens.  Redeem is the single atomic
// conditional operation of the token state machine.
type TokenStore interface {
	Insert(ctx context.Context, t *model.ValidationToken) error

	// ByValue returns the token row or ErrTokenNotFound.
	ByValue(ctx context.Context, token string) (*model.ValidationToken, error)

	// ByReservation returns the token bound to a reservation, or
	// ErrTokenNotFound when none was issued.
	ByReservation(ctx context.Context, reservationID string) (*model.ValidationToken, error)

	// Redeem sets redeemed_at = at for the token if and only if it is
	// still unredeemed, as one indivisible storage operation.  The
	// boolean reports whether this call won the transition.
	Redeem(ctx context.Context, token string, at time.Time) (bool, error)
}

// ReservationSummary is what the door-staff UI shows after a successful
// scan, and what confirmation lookups return.
type ReservationSummary struct {
	ReservationID    string `json:"reservation_id"`
	ConfirmationCode string `json:"confirmation_code"`
	Day              string `json:"day"`
	GuestName        string `json:"guest_name"`
	GuestEmail       string `json:"guest_email"`
	Quantity         int    `json:"quantity"`
}
