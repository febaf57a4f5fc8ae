// Package repository holds the data access layer for reservations.  This
// file defines sentinel error values shared across the package so that
// handlers can distinguish failure scenarios with errors.Is instead of
// inspecting driver-specific errors.
package repository

import "errors"

// ErrReservationNotFound is returned when an operation references a
// reservation that does not exist.  Handlers should translate this into an
// HTTP 404 response.
var ErrReservationNotFound = errors.New("reservation not found")
