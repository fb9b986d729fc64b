package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/seathold/seat-hold-service/internal/model"
)

// SeatRepo provides conditional-update access to the seats table. Every
// state-changing method is a guarded `UPDATE ... WHERE status = ?`
// statement: the number of rows affected is the concurrency-safety
// signal, not a prior SELECT. This mirrors the teacher's
// ShowSeatRepo.BulkUpdateStatusTx, generalized to check RowsAffected
// against the expected count instead of ignoring it.
type SeatRepo struct {
	db *sql.DB
}

func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// HoldSeatsGuardedTx transitions the given seats from AVAILABLE to HELD,
// scoped to one event. It returns ErrSeatsUnavailable if fewer rows were
// affected than seats requested, meaning at least one seat was not
// AVAILABLE at the moment of the UPDATE.
func (r *SeatRepo) HoldSeatsGuardedTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64) error {
	return r.guardedTransitionTx(ctx, tx, eventID, seatIDs, model.SeatAvailable, model.SeatHeld)
}

// BookSeatsTx transitions the given seats from HELD to BOOKED, scoped to
// one event. Returns ErrHoldNotActive if any seat was not HELD.
func (r *SeatRepo) BookSeatsTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64) error {
	err := r.guardedTransitionTx(ctx, tx, eventID, seatIDs, model.SeatHeld, model.SeatBooked)
	if err == ErrSeatsUnavailable {
		return ErrHoldNotActive
	}
	return err
}

// ReleaseSeatsTx transitions the given seats from HELD back to AVAILABLE,
// scoped to one event. Unlike HoldSeatsGuardedTx and BookSeatsTx this is
// not treated as an error when fewer rows are affected than requested:
// a seat already released by a concurrent expiry/cancel path is not a
// failure, it is the idempotency cut described in the consumer protocol.
func (r *SeatRepo) ReleaseSeatsTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64) (int64, error) {
	return r.transitionTx(ctx, tx, eventID, seatIDs, model.SeatHeld, model.SeatAvailable)
}

func (r *SeatRepo) guardedTransitionTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64, from, to string) error {
	affected, err := r.transitionTx(ctx, tx, eventID, seatIDs, from, to)
	if err != nil {
		return err
	}
	if affected != int64(len(seatIDs)) {
		if from == model.SeatAvailable {
			return ErrSeatsUnavailable
		}
		return ErrHoldNotActive
	}
	return nil
}

func (r *SeatRepo) transitionTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64, from, to string) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(seatIDs))
	args := make([]any, 0, len(seatIDs)+3)
	args = append(args, to)
	for i, id := range seatIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	args = append(args, eventID, from)

	query := `UPDATE seats SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
              WHERE id IN (` + strings.Join(placeholders, ",") + `) AND event_id = ? AND status = ?`

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindAvailableSeatsByEvent returns every AVAILABLE seat for an event.
// The read assembler does not use it; it reads all seats, on both its
// normal and degraded paths, through FindByEventIdWithSeats.
func (r *SeatRepo) FindAvailableSeatsByEvent(ctx context.Context, eventID uint64) ([]model.Seat, error) {
	return r.listByEvent(ctx, eventID, `AND status = 'AVAILABLE'`)
}

// FindByEventIdWithSeats returns every seat for an event regardless of
// status, for assembling a full seat map.
func (r *SeatRepo) FindByEventIdWithSeats(ctx context.Context, eventID uint64) ([]model.Seat, error) {
	return r.listByEvent(ctx, eventID, "")
}

// LockSeatsForUpdateTx takes a row-level write lock on the given seats,
// used by the orchestrator's degraded path (spec.md §4.8.1 step 4) when
// the lock store is unreachable and the DB predicate has to carry the
// whole anti-double-book guarantee on its own.
func (r *SeatRepo) LockSeatsForUpdateTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	placeholders := make([]string, len(seatIDs))
	args := make([]any, len(seatIDs)+1)
	args[0] = eventID
	for i, id := range seatIDs {
		placeholders[i] = "?"
		args[i+1] = id
	}
	query := `SELECT id FROM seats WHERE event_id = ? AND id IN (` + strings.Join(placeholders, ",") + `) ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *SeatRepo) listByEvent(ctx context.Context, eventID uint64, extra string) ([]model.Seat, error) {
	query := `SELECT id, event_id, section, row_label, seat_number, price_cents, status, version, created_at, updated_at
               FROM seats WHERE event_id = ? ` + extra + ` ORDER BY section, row_label, seat_number`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.EventID, &s.Section, &s.RowLabel, &s.SeatNumber,
			&s.PriceCents, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FindByIDsTx returns the seats matching the given ids within a
// transaction, used to fetch prices when computing a booking's total.
func (r *SeatRepo) FindByIDsTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64) ([]model.Seat, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(seatIDs))
	args := make([]any, len(seatIDs))
	for i, id := range seatIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := `SELECT id, event_id, section, row_label, seat_number, price_cents, status, version, created_at, updated_at
               FROM seats WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.EventID, &s.Section, &s.RowLabel, &s.SeatNumber,
			&s.PriceCents, &s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
