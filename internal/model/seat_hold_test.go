package model

import (
	"testing"
	"time"
)

func TestSeatHoldActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		status string
		expiry time.Time
		want   bool
	}{
		{"active and not expired", HoldActive, now.Add(time.Minute), true},
		{"active but expired", HoldActive, now.Add(-time.Minute), false},
		{"active at exact boundary", HoldActive, now, false},
		{"confirmed, future expiry", HoldConfirmed, now.Add(time.Minute), false},
		{"cancelled, future expiry", HoldCancelled, now.Add(time.Minute), false},
		{"expired status", HoldExpired, now.Add(time.Minute), false},
	}
	for _, c := range cases {
		h := SeatHold{Status: c.status, ExpiresAt: c.expiry}
		if got := h.Active(now); got != c.want {
			t.Errorf("%s: Active() = %v, want %v", c.name, got, c.want)
		}
	}
}
