package booking

import (
	"context"
	"sync"
	"time"

	"github.com/hollowhill/haunt-ticketing/internal/model"
)

// memStore is a mutex-guarded in-memory Store used by the tests.  The
// mutex held for the whole of InReservationTx mirrors the row lock the
// SQL store takes: attempts for the same night run strictly one after
// another, and an error from fn discards the pending insert.
type memStore struct {
	mu     sync.Mutex
	nextID uint64
	dates  map[string]*model.EventDate   // keyed by day
	res    map[string]*model.Reservation // keyed by reservation ID

	// failInserts makes the next N inserts report a confirmation code
	// collision, to exercise the regeneration loop.
	failInserts int
}

func newMemStore() *memStore {
	return &memStore{
		dates: map[string]*model.EventDate{},
		res:   map[string]*model.Reservation{},
	}
}

func (m *memStore) addDate(day string, capacity, maxPer int, available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.dates[day] = &model.EventDate{
		ID:                m.nextID,
		Day:               day,
		Capacity:          capacity,
		MaxPerReservation: maxPer,
		IsAvailable:       available,
	}
}

func (m *memStore) InReservationTx(ctx context.Context, day string, fn func(date *model.EventDate, tx ReservationTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	date, ok := m.dates[day]
	if !ok {
		return ErrDateNotFound
	}
	cp := *date
	tx := &memTx{store: m, dateID: date.ID}
	if err := fn(&cp, tx); err != nil {
		return err
	}
	if tx.pending != nil {
		m.res[tx.pending.ID] = tx.pending
	}
	return nil
}

func (m *memStore) RemainingByDay(ctx context.Context, day string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	date, ok := m.dates[day]
	if !ok {
		return 0, ErrDateNotFound
	}
	return date.Capacity - m.soldLocked(date.ID), nil
}

func (m *memStore) FindByIdempotencyKey(ctx context.Context, day, key string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	date, ok := m.dates[day]
	if !ok {
		return nil, nil
	}
	for _, r := range m.res {
		if r.EventDateID == date.ID && r.Status == model.ReservationConfirmed && r.IdempotencyKey == key {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) CancelReservation(ctx context.Context, reservationID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.res[reservationID]
	if !ok || r.Status != model.ReservationConfirmed {
		return "", ErrReservationNotFound
	}
	r.Status = model.ReservationCancelled
	for day, ed := range m.dates {
		if ed.ID == r.EventDateID {
			return day, nil
		}
	}
	return "", ErrReservationNotFound
}

func (m *memStore) ReservationSummary(ctx context.Context, reservationID string) (*ReservationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.res[reservationID]
	if !ok {
		return nil, ErrDateNotFound
	}
	var day string
	for d, ed := range m.dates {
		if ed.ID == r.EventDateID {
			day = d
		}
	}
	return &ReservationSummary{
		ReservationID:    r.ID,
		ConfirmationCode: r.ConfirmationCode,
		Day:              day,
		GuestName:        r.GuestName,
		GuestEmail:       r.GuestEmail,
		Quantity:         r.Quantity,
	}, nil
}

func (m *memStore) soldLocked(dateID uint64) int {
	sold := 0
	for _, r := range m.res {
		if r.EventDateID == dateID && r.Status == model.ReservationConfirmed {
			sold += r.Quantity
		}
	}
	return sold
}

func (m *memStore) soldFor(day string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.soldLocked(m.dates[day].ID)
}

type memTx struct {
	store   *memStore
	dateID  uint64
	pending *model.Reservation
}

func (t *memTx) ConfirmedQuantity(ctx context.Context) (int, error) {
	return t.store.soldLocked(t.dateID), nil
}

func (t *memTx) ConfirmedByEmail(ctx context.Context, email string) (*model.Reservation, error) {
	for _, r := range t.store.res {
		if r.EventDateID == t.dateID && r.Status == model.ReservationConfirmed && r.GuestEmail == email {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *memTx) Insert(ctx context.Context, r *model.Reservation) error {
	if t.store.failInserts > 0 {
		t.store.failInserts--
		return ErrCodeConflict
	}
	for _, existing := range t.store.res {
		if existing.ConfirmationCode == r.ConfirmationCode {
			return ErrCodeConflict
		}
	}
	cp := *r
	t.pending = &cp
	return nil
}

// memTokens is a mutex-guarded in-memory TokenStore.  Redeem performs
// the same conditional transition the SQL store does: it succeeds only
// when the token is still unredeemed.
type memTokens struct {
	mu     sync.Mutex
	tokens map[string]*model.ValidationToken
}

func newMemTokens() *memTokens {
	return &memTokens{tokens: map[string]*model.ValidationToken{}}
}

func (m *memTokens) Insert(ctx context.Context, t *model.ValidationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tokens[t.Token] = &cp
	return nil
}

func (m *memTokens) ByValue(ctx context.Context, token string) (*model.ValidationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTokens) ByReservation(ctx context.Context, reservationID string) (*model.ValidationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.ReservationID == reservationID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrTokenNotFound
}

func (m *memTokens) Redeem(ctx context.Context, token string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok || t.RedeemedAt != nil {
		return false, nil
	}
	stamp := at
	t.RedeemedAt = &stamp
	return true, nil
}
