package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/seathold/seat-hold-service/internal/model"
)

func TestBookingToDtoCopiesFields(t *testing.T) {
	confirmedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := model.Booking{
		ID:               7,
		BookingReference: "ABCD2345",
		CustomerID:       42,
		EventID:          9,
		SeatIDs:          []uint64{1, 2},
		TotalAmountCents: 5000,
		Status:           model.BookingConfirmed,
		PaymentID:        "pay_123",
		HoldToken:        "HOLD_xyz",
		ConfirmedAt:      confirmedAt,
	}

	dto := bookingToDto(b)

	assert.Equal(t, b.BookingReference, dto.BookingReference)
	assert.Equal(t, b.CustomerID, dto.CustomerID)
	assert.Equal(t, b.EventID, dto.EventID)
	assert.Equal(t, b.SeatIDs, dto.SeatIDs)
	assert.Equal(t, b.TotalAmountCents, dto.TotalAmount)
	assert.Equal(t, b.Status, dto.Status)
	assert.Equal(t, b.PaymentID, dto.PaymentID)
	assert.Equal(t, b.HoldToken, dto.HoldToken)
	assert.True(t, confirmedAt.Equal(dto.ConfirmedAt))
}
