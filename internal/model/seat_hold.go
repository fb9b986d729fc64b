package model

import "time"

// SeatHold status values. A hold starts ACTIVE and transitions to exactly
// one terminal status: EXPIRED, CONFIRMED or CANCELLED.
const (
	HoldActive    = "ACTIVE"
	HoldExpired   = "EXPIRED"
	HoldConfirmed = "CONFIRMED"
	HoldCancelled = "CANCELLED"
)

// SeatHold is a time-bounded reservation over a specific seat set held by a
// specific customer. At most one ACTIVE hold may reference any given seat
// id at any time; this is enforced by the per-seat lock plus the DB guard
// in the record store, not by a database constraint.
//
// Fields:
//
//	ID         – primary key identifier.
//	HoldToken  – opaque token returned to the client, unique.
//	CustomerID – customer placing the hold.
//	EventID    – event the seat set belongs to; all seats share one event.
//	SeatIDs    – ordered set of seat ids, 1..MaxSeatsPerHold.
//	Status     – ACTIVE | EXPIRED | CONFIRMED | CANCELLED.
//	ExpiresAt  – expiry timestamp; always after CreatedAt.
//	CreatedAt  – creation timestamp.
//	UpdatedAt  – last update timestamp.
type SeatHold struct {
	ID         uint64
	HoldToken  string
	CustomerID uint64
	EventID    uint64
	SeatIDs    []uint64
	Status     string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Active reports whether the hold is still usable for confirmation, i.e.
// its status is ACTIVE and it has not passed its expiry timestamp.
func (h SeatHold) Active(now time.Time) bool {
	return h.Status == HoldActive && now.Before(h.ExpiresAt)
}
