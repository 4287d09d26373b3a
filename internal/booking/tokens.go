package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/hollowhill/haunt-ticketing/internal/model"
)

// tokenBytes gives 128 bits of entropy per token (32 hex characters).
const tokenBytes = 16

// newTokenValue generates the opaque entry secret.
func newTokenValue() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// IssueToken creates and stores the single-use validation token bound
// to a committed reservation.  Called once per reservation, immediately
// after the booking transaction commits.
func (s *Service) IssueToken(ctx context.Context, reservationID string) (string, error) {
	value, err := newTokenValue()
	if err != nil {
		return "", err
	}
	t := &model.ValidationToken{
		Token:         value,
		ReservationID: reservationID,
		CreatedAt:     s.now(),
	}
	if s.tokenTTL > 0 {
		exp := s.now().Add(s.tokenTTL)
		t.ExpiresAt = &exp
	}
	if err := s.tokens.Insert(ctx, t); err != nil {
		return "", &StorageError{Op: "token insert", Err: err}
	}
	return value, nil
}

// Redeem flips a token from unredeemed to redeemed exactly once and
// returns the bound reservation's display data.  The check and the
// write are one conditional storage operation: of N concurrent scans of
// the same token exactly one observes success, the rest get
// AlreadyRedeemedError carrying the original timestamp.  Expiry is
// checked before the atomic attempt; an expired token is never
// redeemable regardless of races.
func (s *Service) Redeem(ctx context.Context, token string) (*Redemption, error) {
	tok, err := s.tokens.ByValue(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, &StorageError{Op: "token lookup", Err: err}
	}
	now := s.now()
	if tok.ExpiresAt != nil && now.After(*tok.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	won, err := s.tokens.Redeem(ctx, token, now)
	if err != nil {
		return nil, &StorageError{Op: "token redeem", Err: err}
	}
	if !won {
		// Zero rows updated: somebody else redeemed first.  Re-read for
		// the original timestamp; the row cannot transition again.
		cur, err := s.tokens.ByValue(ctx, token)
		if err != nil {
			return nil, &StorageError{Op: "token re-read", Err: err}
		}
		if cur.RedeemedAt == nil {
			return nil, &StorageError{Op: "token redeem", Err: errors.New("conditional update lost without redemption")}
		}
		return nil, &AlreadyRedeemedError{RedeemedAt: *cur.RedeemedAt}
	}

	sum, err := s.store.ReservationSummary(ctx, tok.ReservationID)
	if err != nil {
		return nil, &StorageError{Op: "reservation summary", Err: err}
	}
	s.log.Info().
		Str("reservation_id", tok.ReservationID).
		Str("day", sum.Day).
		Msg("token redeemed")
	return &Redemption{
		ReservationID:    sum.ReservationID,
		ConfirmationCode: sum.ConfirmationCode,
		Day:              sum.Day,
		GuestName:        sum.GuestName,
		Quantity:         sum.Quantity,
		RedeemedAt:       now,
	}, nil
}
