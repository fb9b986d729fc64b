// Package readmodel is the read assembler (C9): it merges the seat rows
// MySQL considers authoritative with the Redis overlay that the write
// path updates after each transaction commits, degrading to a DB-only
// view when the overlay is unavailable. Grounded on the
// teacher's ShowSeatHandler.ListAvailableSeats, generalized to merge a
// second data source instead of reading seats alone.
package readmodel

import (
	"context"
	"log/slog"

	"github.com/seathold/seat-hold-service/internal/lockstore"
	"github.com/seathold/seat-hold-service/internal/repository"
)

// SeatView is one seat as shown to a client browsing an event.
type SeatView struct {
	ID         uint64 `json:"id"`
	Section    string `json:"section"`
	RowLabel   string `json:"rowLabel"`
	SeatNumber uint32 `json:"seatNumber"`
	PriceCents int64  `json:"priceCents"`
	Status     string `json:"status"`
}

// EventSeatMap is the full response for GET /api/events/{id}/seats.
type EventSeatMap struct {
	EventID  uint64     `json:"eventId"`
	Seats    []SeatView `json:"seats"`
	Degraded bool       `json:"degraded"`
}

// Assembler reads from C2 and C3 and merges them. Locks may be nil, in
// which case every call runs DB-only.
type Assembler struct {
	seats *repository.SeatRepo
	locks *lockstore.Store
	log   *slog.Logger
}

func New(seats *repository.SeatRepo, locks *lockstore.Store, log *slog.Logger) *Assembler {
	return &Assembler{seats: seats, locks: locks, log: log}
}

// EventSeats returns every seat for eventID with its best-known status:
// MySQL's column replaced by the Redis overlay's value whenever the
// overlay has an entry for that seat. A failed overlay read degrades to
// the DB's own view rather than failing the request.
func (a *Assembler) EventSeats(ctx context.Context, eventID uint64) (EventSeatMap, error) {
	rows, err := a.seats.FindByEventIdWithSeats(ctx, eventID)
	if err != nil {
		return EventSeatMap{}, err
	}

	overlay := map[uint64]string(nil)
	degraded := a.locks == nil
	if !degraded {
		o, err := a.locks.GetEventOverlay(ctx, eventID)
		if lockstore.IsConnError(err) {
			a.log.Warn("overlay read failed, degrading to DB-only seat view", "error", err, "event_id", eventID)
			degraded = true
		} else {
			overlay = o
		}
	}

	views := make([]SeatView, 0, len(rows))
	for _, s := range rows {
		status := s.Status
		if overlay != nil {
			if overlayStatus, ok := overlay[s.ID]; ok {
				status = overlayStatus
			}
		}
		views = append(views, SeatView{
			ID: s.ID, Section: s.Section, RowLabel: s.RowLabel, SeatNumber: s.SeatNumber,
			PriceCents: s.PriceCents, Status: status,
		})
	}
	return EventSeatMap{EventID: eventID, Seats: views, Degraded: degraded}, nil
}
