package model

import "time"

// Seat status values. A seat is totalizable over exactly these three
// values; no other transitions exist (spec §4.8.4).
const (
	SeatAvailable = "AVAILABLE"
	SeatHeld      = "HELD"
	SeatBooked    = "BOOKED"
)

// Seat describes a single sellable seat for an event. (event_id, row_label,
// seat_number) is unique; price is display/authoritative for totals.
//
// Fields:
//
//	ID         – primary key identifier.
//	EventID    – owning event.
//	Section    – display-only seating section.
//	RowLabel   – display-only row letter.
//	SeatNumber – display-only seat number within the row.
//	PriceCents – price in fixed-scale minor units (cents); always >= 0.
//	Status     – AVAILABLE | HELD | BOOKED.
//	Version    – optimistic-locking counter, bumped on every status change.
//	CreatedAt  – creation timestamp.
//	UpdatedAt  – last update timestamp.
type Seat struct {
	ID         uint64
	EventID    uint64
	Section    string
	RowLabel   string
	SeatNumber uint32
	PriceCents int64
	Status     string
	Version    uint32
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
