package model

import "time"

// Reservation statuses.  A reservation is created CONFIRMED by the
// booking transaction and only ever transitions to CANCELLED through an
// administrative action.  Rows are never deleted while the event date
// is economically relevant.
const (
	ReservationConfirmed = "CONFIRMED"
	ReservationCancelled = "CANCELLED"
)

// Reservation is a committed ticket purchase consuming Quantity seats
// of one EventDate's capacity.  Tickets are free of charge, so there is
// no payment state here.
//
// Fields:
//  ID               – opaque UUID assigned at insert time.
//  EventDateID      – the night the tickets are for.
//  Quantity         – number of tickets (> 0).
//  GuestName        – purchaser display name.
//  GuestEmail       – purchaser email, lowercased; at most one CONFIRMED
//                     reservation may exist per (email, date) pair.
//  Status           – CONFIRMED or CANCELLED.
//  ConfirmationCode – unique human-readable lookup code.
//  IdempotencyKey   – optional client-supplied retry key (empty = none).
//  CreatedAt        – creation timestamp.
type Reservation struct {
	ID               string    // reservations.id
	EventDateID      uint64    // reservations.event_date_id
	Quantity         int       // reservations.quantity
	GuestName        string    // reservations.guest_name
	GuestEmail       string    // reservations.guest_email
	Status           string    // reservations.status
	ConfirmationCode string    // reservations.confirmation_code
	IdempotencyKey   string    // reservations.idempotency_key (nullable)
	CreatedAt        time.Time // reservations.created_at
}
