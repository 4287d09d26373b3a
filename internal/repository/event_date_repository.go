package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hollowhill/haunt-ticketing/internal/booking"
	"github.com/hollowhill/haunt-ticketing/internal/model"
)

// EventDateRepo provides access to the event_dates table.  Event dates
// are created and edited by administrators and read by the booking
// path; the booking path itself never mutates them.
type EventDateRepo struct {
	db *sql.DB
}

// NewEventDateRepo returns an EventDateRepo bound to the given database.
func NewEventDateRepo(db *sql.DB) *EventDateRepo { return &EventDateRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *EventDateRepo) DB() *sql.DB { return r.db }

const eventDateColumns = `id, DATE_FORMAT(day, '%Y-%m-%d'), starts_at, ends_at, capacity,
       max_per_reservation, is_available, notes, created_at, updated_at`

func scanEventDate(row interface{ Scan(...any) error }) (*model.EventDate, error) {
	var d model.EventDate
	var startsAt, endsAt sql.NullString
	var notes sql.NullString
	if err := row.Scan(
		&d.ID, &d.Day, &startsAt, &endsAt, &d.Capacity,
		&d.MaxPerReservation, &d.IsAvailable, &notes, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if startsAt.Valid {
		v := startsAt.String
		d.StartsAt = &v
	}
	if endsAt.Valid {
		v := endsAt.String
		d.EndsAt = &v
	}
	if notes.Valid {
		d.Notes = notes.String
	}
	return &d, nil
}

// GetByDay fetches the event date for a calendar day without locking.
// Returns booking.ErrDateNotFound when the day has no row.
func (r *EventDateRepo) GetByDay(ctx context.Context, day string) (*model.EventDate, error) {
	const q = `SELECT ` + eventDateColumns + ` FROM event_dates WHERE day = ?`
	d, err := scanEventDate(r.db.QueryRowContext(ctx, q, day))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrDateNotFound
	}
	return d, err
}

// GetByDayForUpdateTx fetches the event date row inside tx while taking
// an exclusive row lock.  This is the serialization point of the whole
// reservation path: every concurrent purchase attempt for the same day
// queues here until the owning transaction commits or rolls back.
// Attempts for different days lock different rows and proceed in
// parallel.
func (r *EventDateRepo) GetByDayForUpdateTx(ctx context.Context, tx *sql.Tx, day string) (*model.EventDate, error) {
	const q = `SELECT ` + eventDateColumns + ` FROM event_dates WHERE day = ? FOR UPDATE`
	d, err := scanEventDate(tx.QueryRowContext(ctx, q, day))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrDateNotFound
	}
	return d, err
}

// Create inserts a new event date and populates the generated ID.
// Returns ErrConflict when the day already exists.
func (r *EventDateRepo) Create(ctx context.Context, d *model.EventDate) error {
	const q = `INSERT INTO event_dates (day, starts_at, ends_at, capacity, max_per_reservation, is_available, notes)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, d.Day, d.StartsAt, d.EndsAt, d.Capacity, d.MaxPerReservation, d.IsAvailable, d.Notes)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

// Update edits an existing event date.  Capacity edits never touch
// committed reservations; shrinking capacity below the sold count
// simply means the night shows as oversubscribed until cancellations
// catch up.
func (r *EventDateRepo) Update(ctx context.Context, d *model.EventDate) error {
	const q = `UPDATE event_dates
	           SET starts_at = ?, ends_at = ?, capacity = ?, max_per_reservation = ?, is_available = ?, notes = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, d.StartsAt, d.EndsAt, d.Capacity, d.MaxPerReservation, d.IsAvailable, d.Notes, d.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrDateNotFound
	}
	return nil
}

// List returns all event dates ordered by day ascending.
func (r *EventDateRepo) List(ctx context.Context) ([]model.EventDate, error) {
	const q = `SELECT ` + eventDateColumns + ` FROM event_dates ORDER BY day ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.EventDate, 0)
	for rows.Next() {
		d, err := scanEventDate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Delete removes an event date only when it has no reservations at all;
// otherwise ErrConflict is returned.  Nights with history are switched
// off via is_available instead of deleted.
func (r *EventDateRepo) Delete(ctx context.Context, id uint64) error {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE event_date_id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM event_dates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return booking.ErrDateNotFound
	}
	return nil
}
