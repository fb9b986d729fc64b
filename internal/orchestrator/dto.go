package orchestrator

import "time"

// HoldResponse is the DTO returned by PlaceHold, matching spec.md §4.8.1
// step 5 and the HoldResponse fields in spec.md §6.
type HoldResponse struct {
	HoldToken    string    `json:"holdToken"`
	CustomerID   uint64    `json:"customerId"`
	EventID      uint64    `json:"eventId"`
	EventTitle   string    `json:"eventTitle"`
	SeatIDs      []uint64  `json:"seatIds"`
	SeatCount    int       `json:"seatCount"`
	TotalAmount  int64     `json:"totalAmountCents"`
	Status       string    `json:"status"`
	ExpiresAt    time.Time `json:"expiresAt"`
	CreatedAt    time.Time `json:"createdAt"`
	Degraded     bool      `json:"degraded"`
	Message      string    `json:"message,omitempty"`
}

// BookingDto is the DTO returned by ConfirmBooking.
type BookingDto struct {
	BookingReference string    `json:"bookingReference"`
	CustomerID       uint64    `json:"customerId"`
	EventID          uint64    `json:"eventId"`
	SeatIDs          []uint64  `json:"seatIds"`
	TotalAmount      int64     `json:"totalAmountCents"`
	Status           string    `json:"status"`
	PaymentID        string    `json:"paymentId"`
	HoldToken        string    `json:"holdToken"`
	ConfirmedAt      time.Time `json:"confirmedAt"`
}

// SeatHoldDto is the DTO returned by the hold-lookup read endpoint.
type SeatHoldDto struct {
	HoldToken  string    `json:"holdToken"`
	CustomerID uint64    `json:"customerId"`
	EventID    uint64    `json:"eventId"`
	SeatIDs    []uint64  `json:"seatIds"`
	Status     string    `json:"status"`
	ExpiresAt  time.Time `json:"expiresAt"`
	CreatedAt  time.Time `json:"createdAt"`
}
