// Package repository holds the MySQL-backed booking ledger.  Sentinel errors
// defined here let handlers tell a missing row apart from a database failure.
package repository

import "errors"

// ErrBookingNotFound is returned when a ledger lookup yields no rows.
// Handlers should translate this into an HTTP 404 response.
var ErrBookingNotFound = errors.New("booking not found")
