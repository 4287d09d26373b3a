package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hollowhill/haunt-ticketing/internal/booking"
	"github.com/hollowhill/haunt-ticketing/internal/model"
)

// Store adapts the MySQL repositories to booking.Store.  The row lock
// taken by GetByDayForUpdateTx is the only serialization mechanism the
// booking path relies on; no in-process state is involved, so any
// number of server instances may share the database.
type Store struct {
	db           *sql.DB
	dates        *EventDateRepo
	reservations *ReservationRepo
}

// NewStore builds the Store and its repositories from one DB handle.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		dates:        NewEventDateRepo(db),
		reservations: NewReservationRepo(db),
	}
}

// Dates exposes the event date repository for admin handlers.
func (s *Store) Dates() *EventDateRepo { return s.dates }

// Reservations exposes the reservation repository for admin handlers.
func (s *Store) Reservations() *ReservationRepo { return s.reservations }

// InReservationTx implements the locked unit of work described by
// booking.Store.  The transaction begins, the event date row is locked
// with SELECT ... FOR UPDATE, fn runs with the lock held, and the
// transaction commits only when fn returns nil.  Any error, logical
// rejection or storage failure alike, rolls back everything, so a rejected
// attempt leaves zero rows behind.
func (s *Store) InReservationTx(ctx context.Context, day string, fn func(date *model.EventDate, tx booking.ReservationTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	date, err := s.dates.GetByDayForUpdateTx(ctx, tx, day)
	if err != nil {
		return err
	}
	if err := fn(date, &reservationTx{tx: tx, repo: s.reservations, dateID: date.ID}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// reservationTx scopes booking.ReservationTx operations to the locked
// transaction and date.
type reservationTx struct {
	tx     *sql.Tx
	repo   *ReservationRepo
	dateID uint64
}

func (t *reservationTx) ConfirmedQuantity(ctx context.Context) (int, error) {
	return t.repo.SumConfirmedTx(ctx, t.tx, t.dateID)
}

func (t *reservationTx) ConfirmedByEmail(ctx context.Context, email string) (*model.Reservation, error) {
	return t.repo.ConfirmedByEmailTx(ctx, t.tx, t.dateID, email)
}

func (t *reservationTx) Insert(ctx context.Context, r *model.Reservation) error {
	return t.repo.InsertTx(ctx, t.tx, r)
}

// RemainingByDay computes the advisory remaining count in one query,
// outside any lock.
func (s *Store) RemainingByDay(ctx context.Context, day string) (int, error) {
	const q = `SELECT d.capacity - COALESCE(SUM(CASE WHEN r.status = 'CONFIRMED' THEN r.quantity ELSE 0 END), 0)
	           FROM event_dates d
	           LEFT JOIN reservations r ON r.event_date_id = d.id
	           WHERE d.day = ?
	           GROUP BY d.id, d.capacity`
	var remaining int
	err := s.db.QueryRowContext(ctx, q, day).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, booking.ErrDateNotFound
	}
	return remaining, err
}

// CancelReservation voids a confirmed reservation and reports the day
// whose capacity it frees.
func (s *Store) CancelReservation(ctx context.Context, reservationID string) (string, error) {
	day, err := s.reservations.Cancel(ctx, reservationID)
	if errors.Is(err, ErrNotFound) {
		return "", booking.ErrReservationNotFound
	}
	return day, err
}

// FindByIdempotencyKey implements the pre-transaction replay lookup.
func (s *Store) FindByIdempotencyKey(ctx context.Context, day, key string) (*model.Reservation, error) {
	return s.reservations.FindConfirmedByIdempotencyKey(ctx, day, key)
}

// ReservationSummary joins a reservation with its event date for
// display.
func (s *Store) ReservationSummary(ctx context.Context, reservationID string) (*booking.ReservationSummary, error) {
	const q = `SELECT r.id, r.confirmation_code, DATE_FORMAT(d.day, '%Y-%m-%d'), r.guest_name, r.guest_email, r.quantity
	           FROM reservations r
	           JOIN event_dates d ON d.id = r.event_date_id
	           WHERE r.id = ?`
	var sum booking.ReservationSummary
	err := s.db.QueryRowContext(ctx, q, reservationID).Scan(
		&sum.ReservationID, &sum.ConfirmationCode, &sum.Day, &sum.GuestName, &sum.GuestEmail, &sum.Quantity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sum, nil
}
