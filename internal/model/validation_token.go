package model

import "time"

// ValidationToken is the single-use secret that proves a reservation's
// right of entry at the door.  RedeemedAt transitions from nil to a
// timestamp at most once; the transition is performed by a conditional
// UPDATE so that two simultaneous scans produce exactly one success.
// Tokens are never deleted; they double as the entry audit trail.
//
// Fields:
//  Token         – high-entropy opaque secret (unique, 128 bits).
//  ReservationID – the owning reservation.
//  RedeemedAt    – when the token was scanned; nil means unused.
//  ExpiresAt     – optional hard expiry; nil means the token never expires.
type ValidationToken struct {
	Token         string     // validation_tokens.token
	ReservationID string     // validation_tokens.reservation_id
	RedeemedAt    *time.Time // validation_tokens.redeemed_at (nullable)
	ExpiresAt     *time.Time // validation_tokens.expires_at (nullable)
	CreatedAt     time.Time  // validation_tokens.created_at
}
