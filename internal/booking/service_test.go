package booking

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^HHM-\d{8}-[0-9A-Z]{4}$`)

type recordingNotifier struct {
	mu    sync.Mutex
	confs []Confirmation
}

func (n *recordingNotifier) ReservationConfirmed(_ context.Context, conf Confirmation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confs = append(n.confs, conf)
}

func newTestService(store *memStore, tokens TokenStore) *Service {
	return NewService(store, tokens, nil, nil, "HHM", 0, 15*time.Second, zerolog.Nop())
}

func TestBookConfirmsReservation(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-31", 100, 8, true)
	tokens := newMemTokens()
	svc := newTestService(store, tokens)

	conf, err := svc.Book(context.Background(), Request{
		Day:        "2026-10-31",
		Quantity:   4,
		GuestName:  "Mina Harker",
		GuestEmail: "Mina@example.com",
	})
	require.NoError(t, err)
	require.NotNil(t, conf)

	assert.NotEmpty(t, conf.ReservationID)
	assert.Regexp(t, codePattern, conf.ConfirmationCode)
	assert.Len(t, conf.Token, 32)
	assert.Equal(t, "mina@example.com", conf.GuestEmail)
	assert.Equal(t, 4, conf.Quantity)
	assert.False(t, conf.Replayed)

	remaining, err := svc.RemainingCapacity(context.Background(), "2026-10-31")
	require.NoError(t, err)
	assert.Equal(t, 96, remaining)

	// The token is persisted and bound to the reservation.
	tok, err := tokens.ByReservation(context.Background(), conf.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, conf.Token, tok.Token)
	assert.Nil(t, tok.RedeemedAt)
}

func TestBookValidatesInput(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-31", 10, 4, true)
	svc := newTestService(store, newMemTokens())

	cases := []Request{
		{Day: "2026-10-31", Quantity: 0, GuestName: "A", GuestEmail: "a@b.c"},
		{Day: "2026-10-31", Quantity: -2, GuestName: "A", GuestEmail: "a@b.c"},
		{Day: "2026-10-31", Quantity: 1, GuestName: "  ", GuestEmail: "a@b.c"},
		{Day: "2026-10-31", Quantity: 1, GuestName: "A", GuestEmail: "not-an-email"},
		{Day: "2026-10-31", Quantity: 1, GuestName: "A", GuestEmail: "@b.c"},
	}
	for _, req := range cases {
		_, err := svc.Book(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidRequest, "request %+v", req)
	}
}

func TestBookUnknownDate(t *testing.T) {
	svc := newTestService(newMemStore(), newMemTokens())
	_, err := svc.Book(context.Background(), Request{Day: "2026-12-24", Quantity: 1, GuestName: "A", GuestEmail: "a@b.c"})
	assert.ErrorIs(t, err, ErrDateNotFound)
}

func TestBookClosedDate(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-31", 100, 8, false)
	svc := newTestService(store, newMemTokens())
	_, err := svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 1, GuestName: "A", GuestEmail: "a@b.c"})
	assert.ErrorIs(t, err, ErrDateUnavailable)
}

func TestBookDuplicateEmail(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-31", 100, 8, true)
	svc := newTestService(store, newMemTokens())

	_, err := svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 2, GuestName: "A", GuestEmail: "guest@example.com"})
	require.NoError(t, err)

	// Same email, different casing: still one reservation per night.
	_, err = svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 1, GuestName: "B", GuestEmail: "GUEST@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateReservation)
	assert.Equal(t, 2, store.soldFor("2026-10-31"))
}

func TestBookSoldOut(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-31", 3, 3, true)
	svc := newTestService(store, newMemTokens())

	_, err := svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 3, GuestName: "A", GuestEmail: "a@b.c"})
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 1, GuestName: "B", GuestEmail: "b@b.c"})
	assert.ErrorIs(t, err, ErrSoldOut)
}

func TestBookInsufficientCapacity(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-31", 10, 10, true)
	svc := newTestService(store, newMemTokens())

	_, err := svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 7, GuestName: "A", GuestEmail: "a@b.c"})
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 5, GuestName: "B", GuestEmail: "b@b.c"})
	var insufficient *InsufficientCapacityError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 3, insufficient.Remaining)

	// Partial fulfilment is never offered; nothing was committed.
	assert.Equal(t, 7, store.soldFor("2026-10-31"))
}

func TestBookPerReservationLimit(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-31", 100, 6, true)
	svc := newTestService(store, newMemTokens())

	_, err := svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 7, GuestName: "A", GuestEmail: "a@b.c"})
	var perLimit *PerReservationLimitError
	require.ErrorAs(t, err, &perLimit)
	assert.Equal(t, 6, perLimit.Limit)
}

func TestBookCapacityCheckedBeforeLimit(t *testing.T) {
	// When the quantity violates both the remaining capacity and the
	// per-reservation cap, the capacity rejection wins.
	store := newMemStore()
	store.addDate("2026-10-31", 10, 4, true)
	svc := newTestService(store, newMemTokens())

	_, err := svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 8, GuestName: "A", GuestEmail: "a@b.c"})
	var perLimit *PerReservationLimitError
	require.ErrorAs(t, err, &perLimit)

	_, err = svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 4, GuestName: "B", GuestEmail: "b@b.c"})
	require.NoError(t, err)
	_, err = svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 4, GuestName: "C", GuestEmail: "c@b.c"})
	require.NoError(t, err)

	// 2 remain; asking for 8 violates both checks.
	_, err = svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 8, GuestName: "D", GuestEmail: "d@b.c"})
	var insufficient *InsufficientCapacityError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Remaining)
}

func TestBookNeverOversells(t *testing.T) {
	const capacity = 50
	const attempts = 120

	store := newMemStore()
	store.addDate("2026-10-31", capacity, 8, true)
	svc := newTestService(store, newMemTokens())

	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Book(context.Background(), Request{
				Day:        "2026-10-31",
				Quantity:   1,
				GuestName:  fmt.Sprintf("Guest %d", i),
				GuestEmail: fmt.Sprintf("guest%d@example.com", i),
			})
			results[i] = err
		}(i)
	}
	wg.Wait()

	confirmed := 0
	for _, err := range results {
		if err == nil {
			confirmed++
			continue
		}
		require.True(t, IsRejection(err), "unexpected failure: %v", err)
	}
	assert.Equal(t, capacity, confirmed)
	assert.Equal(t, capacity, store.soldFor("2026-10-31"))
}

func TestBookExactBoundary(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-30", 5, 5, true)
	store.addDate("2026-10-31", 5, 6, true)
	svc := newTestService(store, newMemTokens())

	// Taking exactly the full capacity succeeds.
	_, err := svc.Book(context.Background(), Request{Day: "2026-10-30", Quantity: 5, GuestName: "A", GuestEmail: "a@b.c"})
	require.NoError(t, err)
	_, err = svc.Book(context.Background(), Request{Day: "2026-10-30", Quantity: 1, GuestName: "B", GuestEmail: "b@b.c"})
	assert.ErrorIs(t, err, ErrSoldOut)

	// Asking capacity+1 on an untouched date reports all 5 remaining.
	_, err = svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 6, GuestName: "C", GuestEmail: "c@b.c"})
	var insufficient *InsufficientCapacityError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Remaining)
}

func TestBookConcurrentDuplicateEmail(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-31", 100, 8, true)
	svc := newTestService(store, newMemTokens())

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Book(context.Background(), Request{
				Day: "2026-10-31", Quantity: 1, GuestName: "Same Guest", GuestEmail: "same@example.com",
			})
		}(i)
	}
	wg.Wait()

	confirmed := 0
	for _, err := range errs {
		if err == nil {
			confirmed++
			continue
		}
		require.ErrorIs(t, err, ErrDuplicateReservation)
	}
	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 1, store.soldFor("2026-10-31"))
}

func TestRemainingCapacityStableBetweenBookings(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-31", 20, 8, true)
	svc := newTestService(store, newMemTokens())

	a, err := svc.RemainingCapacity(context.Background(), "2026-10-31")
	require.NoError(t, err)
	b, err := svc.RemainingCapacity(context.Background(), "2026-10-31")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 6, GuestName: "A", GuestEmail: "a@b.c"})
	require.NoError(t, err)

	after, err := svc.RemainingCapacity(context.Background(), "2026-10-31")
	require.NoError(t, err)
	assert.Equal(t, a-6, after)
}

func TestBookIdempotentReplay(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-31", 100, 8, true)
	svc := newTestService(store, newMemTokens())

	req := Request{
		Day:            "2026-10-31",
		Quantity:       3,
		GuestName:      "Jonathan",
		GuestEmail:     "jonathan@example.com",
		IdempotencyKey: "retry-abc-123",
	}
	first, err := svc.Book(context.Background(), req)
	require.NoError(t, err)

	second, err := svc.Book(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.ReservationID, second.ReservationID)
	assert.Equal(t, first.ConfirmationCode, second.ConfirmationCode)
	assert.Equal(t, first.Token, second.Token)

	// Exactly one reservation was committed.
	assert.Equal(t, 3, store.soldFor("2026-10-31"))

	// Same email without the key is an ordinary duplicate.
	req.IdempotencyKey = ""
	_, err = svc.Book(context.Background(), req)
	assert.ErrorIs(t, err, ErrDuplicateReservation)
}

func TestBookRetriesCodeCollision(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-31", 10, 4, true)
	store.failInserts = 2
	svc := newTestService(store, newMemTokens())

	conf, err := svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 1, GuestName: "A", GuestEmail: "a@b.c"})
	require.NoError(t, err)
	assert.Regexp(t, codePattern, conf.ConfirmationCode)
}

func TestBookCodeSpaceExhausted(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-31", 10, 4, true)
	store.failInserts = codeInsertAttempts
	svc := newTestService(store, newMemTokens())

	_, err := svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 1, GuestName: "A", GuestEmail: "a@b.c"})
	var storage *StorageError
	require.ErrorAs(t, err, &storage)

	// Nothing committed.
	assert.Equal(t, 0, store.soldFor("2026-10-31"))
}

func TestBookNotifiesAfterCommit(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-31", 10, 4, true)
	notifier := &recordingNotifier{}
	svc := NewService(store, newMemTokens(), nil, notifier, "HHM", 0, 15*time.Second, zerolog.Nop())

	conf, err := svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 2, GuestName: "A", GuestEmail: "a@b.c"})
	require.NoError(t, err)

	require.Len(t, notifier.confs, 1)
	assert.Equal(t, conf.ReservationID, notifier.confs[0].ReservationID)

	// Rejections never notify.
	_, err = svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 1, GuestName: "A", GuestEmail: "a@b.c"})
	require.Error(t, err)
	assert.Len(t, notifier.confs, 1)
}

func TestBookRejectionRollsBackEverything(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-31", 5, 5, true)
	tokens := newMemTokens()
	svc := newTestService(store, tokens)

	_, err := svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 5, GuestName: "A", GuestEmail: "a@b.c"})
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 1, GuestName: "B", GuestEmail: "b@b.c"})
	require.ErrorIs(t, err, ErrSoldOut)

	// The rejected attempt issued no token.
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	assert.Len(t, tokens.tokens, 1)
}

func TestCancelFreesCapacity(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-31", 10, 8, true)
	svc := newTestService(store, newMemTokens())

	conf, err := svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 4, GuestName: "A", GuestEmail: "a@b.c"})
	require.NoError(t, err)

	remaining, err := svc.RemainingCapacity(context.Background(), "2026-10-31")
	require.NoError(t, err)
	require.Equal(t, 6, remaining)

	require.NoError(t, svc.Cancel(context.Background(), conf.ReservationID))

	remaining, err = svc.RemainingCapacity(context.Background(), "2026-10-31")
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)

	// The same email may book again once the cancellation freed the slot.
	_, err = svc.Book(context.Background(), Request{Day: "2026-10-31", Quantity: 2, GuestName: "A", GuestEmail: "a@b.c"})
	assert.NoError(t, err)
}

func TestCancelUnknownReservation(t *testing.T) {
	store := newMemStore()
	store.addDate("2026-10-31", 10, 8, true)
	svc := newTestService(store, newMemTokens())

	err := svc.Cancel(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrReservationNotFound)
	assert.True(t, IsRejection(err))
}

func TestStorageErrorIsNotRejection(t *testing.T) {
	err := &StorageError{Op: "x", Err: errors.New("boom")}
	assert.False(t, IsRejection(err))
	assert.True(t, IsRejection(&InsufficientCapacityError{Remaining: 1}))
	assert.True(t, IsRejection(ErrSoldOut))
}
