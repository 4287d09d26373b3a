package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hollowhill/haunt-ticketing/internal/model"
)

// codeInsertAttempts bounds regeneration when a confirmation code
// collides with the unique index.
const codeInsertAttempts = 5

// Request carries one purchase attempt.  Day selects the event date,
// IdempotencyKey is optional: a client that timed out may retry with
// the same key and receive the original confirmation instead of a
// DuplicateReservation rejection.
type Request struct {
	Day            string
	Quantity       int
	GuestName      string
	GuestEmail     string
	IdempotencyKey string
}

// Confirmation is the successful outcome of Book.  Token is the entry
// secret issued immediately after commit; on an idempotent replay it is
// the originally issued token.
type Confirmation struct {
	ReservationID    string `json:"reservation_id"`
	ConfirmationCode string `json:"confirmation_code"`
	Token            string `json:"token"`
	Day              string `json:"day"`
	GuestName        string `json:"guest_name"`
	GuestEmail       string `json:"guest_email"`
	Quantity         int    `json:"quantity"`
	Replayed         bool   `json:"-"`
}

// Redemption is the successful outcome of Redeem: the bound
// reservation's display fields for the door-staff UI.
type Redemption struct {
	ReservationID    string    `json:"reservation_id"`
	ConfirmationCode string    `json:"confirmation_code"`
	Day              string    `json:"day"`
	GuestName        string    `json:"guest_name"`
	Quantity         int       `json:"quantity"`
	RedeemedAt       time.Time `json:"redeemed_at"`
}

// Notifier is invoked after a reservation commits so an external
// collaborator can render email/PDF artifacts.  Implementations must
// never fail the purchase: the ticket is already validly sold.
type Notifier interface {
	ReservationConfirmed(ctx context.Context, conf Confirmation)
}

// Service wires the reservation authority, the confirmation issuer, the
// validation token service and the advisory capacity read to one
// durable store.
type Service struct {
	store      Store
	tokens     TokenStore
	cache      *redis.Client // advisory capacity cache, may be nil
	notifier   Notifier      // may be nil
	log        zerolog.Logger
	codePrefix string
	tokenTTL   time.Duration // 0 means tokens never expire
	cacheTTL   time.Duration
	now        func() time.Time
}

// NewService constructs the booking service.  cache and notifier are
// optional; pass nil to disable the advisory cache or post-commit
// notifications.
func NewService(store Store, tokens TokenStore, cache *redis.Client, notifier Notifier, codePrefix string, tokenTTL, cacheTTL time.Duration, log zerolog.Logger) *Service {
	if codePrefix == "" {
		codePrefix = "HHM"
	}
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Second
	}
	return &Service{
		store:      store,
		tokens:     tokens,
		cache:      cache,
		notifier:   notifier,
		log:        log,
		codePrefix: codePrefix,
		tokenTTL:   tokenTTL,
		cacheTTL:   cacheTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Book is the reservation authority: one atomic check-and-commit
// against the capacity ledger.  The event date row lock taken by the
// store is the serialization point; every check below runs while it is
// held, so concurrent attempts for the same night cannot both observe
// the same remaining capacity.  On any rejection the transaction rolls
// back with no side effect.
//
// Token issuance, cache invalidation and notification dispatch happen
// strictly after commit, never inside the locked section, so a slow
// collaborator cannot stall other purchasers of the same night.
func (s *Service) Book(ctx context.Context, req Request) (*Confirmation, error) {
	req.GuestEmail = strings.ToLower(strings.TrimSpace(req.GuestEmail))
	req.GuestName = strings.TrimSpace(req.GuestName)
	if req.Quantity <= 0 || req.GuestName == "" || !plausibleEmail(req.GuestEmail) {
		return nil, ErrInvalidRequest
	}

	// A retried request that already committed must return the original
	// confirmation, not a duplicate rejection.  This read is outside the
	// lock on purpose: the race where two identical keys arrive at once
	// is still closed by the duplicate-email check inside the
	// transaction below.
	if req.IdempotencyKey != "" {
		prior, err := s.store.FindByIdempotencyKey(ctx, req.Day, req.IdempotencyKey)
		if err != nil {
			return nil, &StorageError{Op: "idempotency lookup", Err: err}
		}
		if prior != nil {
			return s.replayConfirmation(ctx, req.Day, prior)
		}
	}

	var committed *model.Reservation
	var replayed *model.Reservation
	err := s.store.InReservationTx(ctx, req.Day, func(date *model.EventDate, tx ReservationTx) error {
		if !date.IsAvailable {
			return ErrDateUnavailable
		}
		existing, err := tx.ConfirmedByEmail(ctx, req.GuestEmail)
		if err != nil {
			return err
		}
		if existing != nil {
			if req.IdempotencyKey != "" && existing.IdempotencyKey == req.IdempotencyKey {
				replayed = existing
				return nil
			}
			return ErrDuplicateReservation
		}
		sold, err := tx.ConfirmedQuantity(ctx)
		if err != nil {
			return err
		}
		remaining := date.Capacity - sold
		if remaining <= 0 {
			return ErrSoldOut
		}
		if req.Quantity > remaining {
			return &InsufficientCapacityError{Remaining: remaining}
		}
		if req.Quantity > date.MaxPerReservation {
			return &PerReservationLimitError{Limit: date.MaxPerReservation}
		}
		for attempt := 0; attempt < codeInsertAttempts; attempt++ {
			code, err := newConfirmationCode(s.codePrefix, s.now())
			if err != nil {
				return err
			}
			r := &model.Reservation{
				ID:               uuid.NewString(),
				EventDateID:      date.ID,
				Quantity:         req.Quantity,
				GuestName:        req.GuestName,
				GuestEmail:       req.GuestEmail,
				Status:           model.ReservationConfirmed,
				ConfirmationCode: code,
				IdempotencyKey:   req.IdempotencyKey,
				CreatedAt:        s.now(),
			}
			if err := tx.Insert(ctx, r); err != nil {
				if errors.Is(err, ErrCodeConflict) {
					continue
				}
				return err
			}
			committed = r
			return nil
		}
		return fmt.Errorf("confirmation code space exhausted after %d attempts", codeInsertAttempts)
	})
	if err != nil {
		if IsRejection(err) {
			return nil, err
		}
		return nil, &StorageError{Op: "reservation transaction", Err: err}
	}
	if replayed != nil {
		return s.replayConfirmation(ctx, req.Day, replayed)
	}

	conf := &Confirmation{
		ReservationID:    committed.ID,
		ConfirmationCode: committed.ConfirmationCode,
		Day:              req.Day,
		GuestName:        committed.GuestName,
		GuestEmail:       committed.GuestEmail,
		Quantity:         committed.Quantity,
	}
	token, err := s.IssueToken(ctx, committed.ID)
	if err != nil {
		// The reservation is committed and stands; the guest can be
		// re-issued a token through support.  Surface the sale.
		s.log.Error().Err(err).Str("reservation_id", committed.ID).Msg("token issuance failed after commit")
	} else {
		conf.Token = token
	}
	s.invalidateCapacity(ctx, req.Day)
	if s.notifier != nil {
		s.notifier.ReservationConfirmed(ctx, *conf)
	}
	s.log.Info().
		Str("reservation_id", committed.ID).
		Str("day", req.Day).
		Int("quantity", committed.Quantity).
		Msg("reservation confirmed")
	return conf, nil
}

// replayConfirmation rebuilds the original confirmation for an
// idempotent retry, including the token issued the first time.
func (s *Service) replayConfirmation(ctx context.Context, day string, r *model.Reservation) (*Confirmation, error) {
	conf := &Confirmation{
		ReservationID:    r.ID,
		ConfirmationCode: r.ConfirmationCode,
		Day:              day,
		GuestName:        r.GuestName,
		GuestEmail:       r.GuestEmail,
		Quantity:         r.Quantity,
		Replayed:         true,
	}
	tok, err := s.tokens.ByReservation(ctx, r.ID)
	if err == nil {
		conf.Token = tok.Token
	} else if !errors.Is(err, ErrTokenNotFound) {
		return nil, &StorageError{Op: "token lookup", Err: err}
	}
	return conf, nil
}

// Cancel voids a confirmed reservation, freeing its quantity for new
// purchases.  The cancelled night's advisory cache entry is dropped so
// the next availability read reflects the freed tickets immediately.
func (s *Service) Cancel(ctx context.Context, reservationID string) error {
	day, err := s.store.CancelReservation(ctx, reservationID)
	if err != nil {
		if IsRejection(err) {
			return err
		}
		return &StorageError{Op: "cancel reservation", Err: err}
	}
	s.invalidateCapacity(ctx, day)
	s.log.Info().
		Str("reservation_id", reservationID).
		Str("day", day).
		Msg("reservation cancelled")
	return nil
}

// Summary exposes a reservation's display fields, used by callers that
// timed out and re-query by confirmation artifacts.
func (s *Service) Summary(ctx context.Context, reservationID string) (*ReservationSummary, error) {
	return s.store.ReservationSummary(ctx, reservationID)
}

// plausibleEmail is the minimal sanity check the core applies; the web
// layer owns real validation.
func plausibleEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}
