package model

import "time"

// Staff roles.  ADMIN manages event dates and reservations; SCANNER may
// only redeem validation tokens at the door.
const (
	RoleAdmin   = "ADMIN"
	RoleScanner = "SCANNER"
)

// StaffUser mirrors the staff_users table.  Purchasers are anonymous
// guests and never have accounts; staff accounts exist only to gate the
// scan and admin endpoints.
type StaffUser struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
