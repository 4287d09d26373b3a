package model

import "time"

// EventDate represents one calendar night on which the attraction
// operates.  Capacity is the hard ceiling of tickets ever sellable for
// the night; editing it never touches reservations that have already
// committed.  IsAvailable is an administrative on/off switch that is
// independent of remaining capacity.
//
// Fields:
//  ID                – primary key identifier.
//  Day               – calendar day in "2006-01-02" form (unique).
//  StartsAt / EndsAt – optional opening and closing times ("HH:MM").
//  Capacity          – maximum tickets sellable for this night (> 0).
//  MaxPerReservation – per-purchase ticket cap (> 0, <= Capacity).
//  IsAvailable       – whether the night is open for sale.
//  Notes             – free-text operator notes.
type EventDate struct {
	ID                uint64    // event_dates.id
	Day               string    // event_dates.day
	StartsAt          *string   // event_dates.starts_at (nullable)
	EndsAt            *string   // event_dates.ends_at (nullable)
	Capacity          int       // event_dates.capacity
	MaxPerReservation int       // event_dates.max_per_reservation
	IsAvailable       bool      // event_dates.is_available
	Notes             string    // event_dates.notes
	CreatedAt         time.Time // event_dates.created_at
	UpdatedAt         time.Time // event_dates.updated_at
}
