package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hollowhill/haunt-ticketing/internal/booking"
	"github.com/hollowhill/haunt-ticketing/internal/model"
)

// TokenRepo persists validation tokens.  It implements
// booking.TokenStore.  Tokens are insert-once rows whose only mutation
// is the single conditional redeemed_at transition; they are never
// deleted so scans remain auditable.
type TokenRepo struct {
	db *sql.DB
}

// NewTokenRepo returns a TokenRepo bound to the given database.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

func scanToken(row interface{ Scan(...any) error }) (*model.ValidationToken, error) {
	var t model.ValidationToken
	var redeemedAt, expiresAt sql.NullTime
	if err := row.Scan(&t.Token, &t.ReservationID, &redeemedAt, &expiresAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	if redeemedAt.Valid {
		v := redeemedAt.Time.UTC()
		t.RedeemedAt = &v
	}
	if expiresAt.Valid {
		v := expiresAt.Time.UTC()
		t.ExpiresAt = &v
	}
	return &t, nil
}

// Insert stores a freshly issued token with redeemed_at NULL.
func (r *TokenRepo) Insert(ctx context.Context, t *model.ValidationToken) error {
	const q = `INSERT INTO validation_tokens (token, reservation_id, expires_at) VALUES (?, ?, ?)`
	var expires any
	if t.ExpiresAt != nil {
		expires = t.ExpiresAt.UTC()
	}
	_, err := r.db.ExecContext(ctx, q, t.Token, t.ReservationID, expires)
	return err
}

// ByValue fetches a token row.  Returns booking.ErrTokenNotFound when
// the value is unknown.
func (r *TokenRepo) ByValue(ctx context.Context, token string) (*model.ValidationToken, error) {
	const q = `SELECT token, reservation_id, redeemed_at, expires_at, created_at
	           FROM validation_tokens WHERE token = ?`
	t, err := scanToken(r.db.QueryRowContext(ctx, q, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrTokenNotFound
	}
	return t, err
}

// ByReservation fetches the token issued for a reservation.
func (r *TokenRepo) ByReservation(ctx context.Context, reservationID string) (*model.ValidationToken, error) {
	const q = `SELECT token, reservation_id, redeemed_at, expires_at, created_at
	           FROM validation_tokens WHERE reservation_id = ? LIMIT 1`
	t, err := scanToken(r.db.QueryRowContext(ctx, q, reservationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrTokenNotFound
	}
	return t, err
}

// Redeem performs the atomic unredeemed-to-redeemed transition.  The
// precondition check and the write are one statement: the UPDATE only
// matches while redeemed_at is still NULL, and the affected-row count
// decides the outcome.  Two simultaneous scans therefore serialize on
// the row; exactly one sees an affected row.
func (r *TokenRepo) Redeem(ctx context.Context, token string, at time.Time) (bool, error) {
	const q = `UPDATE validation_tokens SET redeemed_at = ? WHERE token = ? AND redeemed_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, at.UTC(), token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
