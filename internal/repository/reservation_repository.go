package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hollowhill/haunt-ticketing/internal/booking"
	"github.com/hollowhill/haunt-ticketing/internal/model"
)

// ReservationRepo provides access to the reservations table.  The
// write path (InsertTx and the Tx-scoped checks) always runs inside the
// transaction that holds the event date row lock; the plain methods are
// reads for admin screens and lookups.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, event_date_id, quantity, guest_name, guest_email, status,
       confirmation_code, COALESCE(idempotency_key, ''), created_at`

// reservationColumnsQ is the same list qualified with the r alias, for
// queries that join event_dates.
const reservationColumnsQ = `r.id, r.event_date_id, r.quantity, r.guest_name, r.guest_email, r.status,
       r.confirmation_code, COALESCE(r.idempotency_key, ''), r.created_at`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var r model.Reservation
	if err := row.Scan(
		&r.ID, &r.EventDateID, &r.Quantity, &r.GuestName, &r.GuestEmail, &r.Status,
		&r.ConfirmationCode, &r.IdempotencyKey, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &r, nil
}

// SumConfirmedTx sums quantity over confirmed reservations for an event
// date.  Must run inside the transaction holding the date's row lock;
// the result is the authoritative sold count for the commit decision.
func (r *ReservationRepo) SumConfirmedTx(ctx context.Context, tx *sql.Tx, eventDateID uint64) (int, error) {
	const q = `SELECT COALESCE(SUM(quantity), 0) FROM reservations
	           WHERE event_date_id = ? AND status = 'CONFIRMED'`
	var sold int
	err := tx.QueryRowContext(ctx, q, eventDateID).Scan(&sold)
	return sold, err
}

// ConfirmedByEmailTx returns the confirmed reservation for an email on
// an event date, or nil when there is none.  Cancelled reservations do
// not block a re-purchase.
func (r *ReservationRepo) ConfirmedByEmailTx(ctx context.Context, tx *sql.Tx, eventDateID uint64, email string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
	           WHERE event_date_id = ? AND guest_email = ? AND status = 'CONFIRMED' LIMIT 1`
	res, err := scanReservation(tx.QueryRowContext(ctx, q, eventDateID, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

// InsertTx writes a new reservation row inside the locked transaction.
// A collision on the confirmation code's unique index is reported as
// booking.ErrCodeConflict so the authority can regenerate and retry.
func (r *ReservationRepo) InsertTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations
	           (id, event_date_id, quantity, guest_name, guest_email, status, confirmation_code, idempotency_key)
	           VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''))`
	_, err := tx.ExecContext(ctx, q,
		res.ID, res.EventDateID, res.Quantity, res.GuestName, res.GuestEmail,
		res.Status, res.ConfirmationCode, res.IdempotencyKey,
	)
	if err != nil {
		if isDuplicateKeyOn(err, "uq_reservations_code") {
			return booking.ErrCodeConflict
		}
		return err
	}
	return nil
}

// FindConfirmedByIdempotencyKey returns the confirmed reservation that
// carries the given idempotency key for a day, or nil when none exists.
// Used before the locked transaction so a client retrying after a
// timeout receives its original confirmation.
func (r *ReservationRepo) FindConfirmedByIdempotencyKey(ctx context.Context, day, key string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumnsQ + ` FROM reservations r
	           JOIN event_dates d ON d.id = r.event_date_id
	           WHERE d.day = ? AND r.idempotency_key = ? AND r.status = 'CONFIRMED' LIMIT 1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, day, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

// GetByID fetches one reservation.  Returns ErrNotFound when no row
// matches.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return res, err
}

// GetByCode fetches one reservation by confirmation code, the lookup
// guests read over the phone.
func (r *ReservationRepo) GetByCode(ctx context.Context, code string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE confirmation_code = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return res, err
}

// ListByDay returns all reservations for a calendar day, newest first,
// for the admin dashboard.
func (r *ReservationRepo) ListByDay(ctx context.Context, day string) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumnsQ + ` FROM reservations r
	           JOIN event_dates d ON d.id = r.event_date_id
	           WHERE d.day = ? ORDER BY r.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// Cancel transitions a reservation from CONFIRMED to CANCELLED and
// returns the day it was for.  The freed capacity becomes sellable
// again implicitly, because every sold count filters on status.
// Cancelling an already-cancelled or unknown reservation returns
// ErrNotFound.
func (r *ReservationRepo) Cancel(ctx context.Context, id string) (string, error) {
	const qDay = `SELECT DATE_FORMAT(d.day, '%Y-%m-%d')
	              FROM reservations r
	              JOIN event_dates d ON d.id = r.event_date_id
	              WHERE r.id = ?`
	var day string
	if err := r.db.QueryRowContext(ctx, qDay, id).Scan(&day); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}

	const q = `UPDATE reservations SET status = 'CANCELLED' WHERE id = ? AND status = 'CONFIRMED'`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return "", err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", ErrNotFound
	}
	return day, nil
}
