// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationConfirmedEvent is published after a reservation commits.
// It carries enough information for downstream consumers to send guest
// notifications or feed analytics without querying the primary database.
type ReservationConfirmedEvent struct {
	ReservationID    string `json:"reservation_id"`
	ConfirmationCode string `json:"confirmation_code"`
	Day              string `json:"day"`
	GuestName        string `json:"guest_name"`
	GuestEmail       string `json:"guest_email"`
	Quantity         int    `json:"quantity"`
	ConfirmedAt      string `json:"confirmed_at"`
}
