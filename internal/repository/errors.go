// Package repository implements the record-store side of the seat hold
// subsystem: events, seats, holds, bookings, idempotency keys, plus the
// kept auth tables (users, refresh_tokens). These sentinel values let
// higher layers such as the orchestrator and handlers distinguish
// failure scenarios without string matching on error text.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot proceed because of
// conflicting state, e.g. a guarded UPDATE affected zero rows.
var ErrConflict = errors.New("conflict")

// ErrEventNotFound is returned when an event id does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrSeatNotFound is returned when a seat id does not exist.
var ErrSeatNotFound = errors.New("seat not found")

// ErrHoldNotFound is returned when a hold token or id does not match
// any row.
var ErrHoldNotFound = errors.New("hold not found")

// ErrBookingNotFound is returned when a booking id or reference does
// not match any row.
var ErrBookingNotFound = errors.New("booking not found")

// ErrSeatsUnavailable is returned by the guarded hold-placement query
// when one or more requested seats are not all AVAILABLE at the time
// of the UPDATE; the caller should treat this as a normal contention
// outcome, not a server error.
var ErrSeatsUnavailable = errors.New("one or more seats are not available")

// ErrHoldNotActive is returned when a confirm or cancel targets a hold
// that is not currently ACTIVE, or whose seats are not all still HELD
// (the seat guard checks status only, not which hold holds them). Distinguishing this from ErrSeatsUnavailable lets the
// orchestrator report "hold expired" rather than "seats taken".
var ErrHoldNotActive = errors.New("hold is not active")

// ErrIdempotencyKeyReused reports that an idempotency key was already
// recorded for a different request body than the one presented.
var ErrIdempotencyKeyReused = errors.New("idempotency key reused with a different request")
