package model

import "time"

// Booking status values. CONFIRMED is reached only through
// orchestrator.ConfirmBooking; CANCELLED/REFUNDED are out of scope for
// this core's write path (refunds are handled by an external collaborator)
// but are modeled here since the column exists in the persisted schema.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
	BookingRefunded  = "REFUNDED"
)

// Booking is the terminal record created when a hold is successfully
// converted into a purchase. It is immutable once CONFIRMED for this core;
// BOOKED is a terminal seat status with no further transitions defined here.
//
// Fields:
//
//	ID               – primary key identifier.
//	BookingReference – opaque, unique, 8-character alphanumeric reference.
//	CustomerID       – customer who purchased the booking.
//	EventID          – event the seats belong to.
//	SeatIDs          – seat ids included in the booking.
//	TotalAmountCents – sum of the booked seats' prices in cents.
//	Status           – CONFIRMED | CANCELLED | REFUNDED.
//	PaymentID        – external payment reference supplied by the caller.
//	HoldToken        – the hold token this booking was confirmed from.
//	ConfirmedAt      – when the booking was confirmed.
//	CreatedAt        – creation timestamp.
//	UpdatedAt        – last update timestamp.
type Booking struct {
	ID               uint64
	BookingReference string
	CustomerID       uint64
	EventID          uint64
	SeatIDs          []uint64
	TotalAmountCents int64
	Status           string
	PaymentID        string
	HoldToken        string
	ConfirmedAt      time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
