// Package repository provides raw-SQL data access for the ticketing
// core.  Repositories expose plain methods for single-statement reads
// and ...Tx methods for statements that must run inside a caller-owned
// transaction.  Sentinel errors defined here let handlers distinguish
// failure scenarios without string matching.
package repository

import "errors"

// ErrConflict is returned when a delete or update cannot proceed
// because of dependent rows, such as removing an event date that
// already has reservations.  Handlers translate this to HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned by lookups that matched no row and have no
// more specific sentinel.
var ErrNotFound = errors.New("not found")
