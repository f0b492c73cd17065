// Package repository contains the data access layer.  Every table is owned
// by exactly one repository and no other package touches database/sql
// directly.  The sentinel errors below let higher layers distinguish failure
// scenarios with errors.Is without parsing driver messages.
package repository

import "errors"

// ErrDuplicateUser is returned when an insert collides with the unique
// username or email index.  Uniqueness is enforced by the index itself, so
// two concurrent registrations of the same name resolve atomically: one
// insert wins, the other observes this error.
var ErrDuplicateUser = errors.New("duplicate user")

// ErrDuplicatePlate is returned when a car insert or update collides with
// the unique license-plate index.
var ErrDuplicatePlate = errors.New("duplicate license plate")

// ErrNotFound is returned when a lookup or targeted update matches no row.
// Handlers translate this into an HTTP 404 (or a generic 401 on the
// credential path, where existence must not leak).
var ErrNotFound = errors.New("not found")
