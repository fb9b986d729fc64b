package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/seathold/seat-hold-service/internal/model"
)

// HoldRepo provides data access to the seat_holds table. seat_ids is
// stored as a JSON array column (spec.md §6.5); this repository hides
// the marshal/unmarshal from callers. Grounded on the teacher's
// SeatHoldRepo, generalized from one-row-per-seat to one-row-per-hold
// with a JSON seat set, since a hold here always covers a seat group.
type HoldRepo struct {
	db *sql.DB
}

func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

// CreateTx inserts a new ACTIVE hold row and returns its id.
func (r *HoldRepo) CreateTx(ctx context.Context, tx *sql.Tx, h model.SeatHold) (uint64, error) {
	seatIDsJSON, err := json.Marshal(h.SeatIDs)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO seat_holds (hold_token, customer_id, event_id, seat_ids, status, expires_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		h.HoldToken, h.CustomerID, h.EventID, seatIDsJSON, model.HoldActive, h.ExpiresAt.UTC())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindByHoldToken reads a hold by its opaque token using the repo's own
// *sql.DB (autocommit read), for the read path that doesn't need a tx.
func (r *HoldRepo) FindByHoldToken(ctx context.Context, token string) (model.SeatHold, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, findByTokenQuery, token))
}

// FindByHoldTokenForUpdateTx reads a hold by token with a row lock, for
// use inside ConfirmBooking/CancelHold transactions where the
// orchestrator needs a consistent view before issuing the guarded seat
// UPDATE.
func (r *HoldRepo) FindByHoldTokenForUpdateTx(ctx context.Context, tx *sql.Tx, token string) (model.SeatHold, error) {
	return r.scanOne(tx.QueryRowContext(ctx, findByTokenQuery+" FOR UPDATE", token))
}

const findByTokenQuery = `SELECT id, hold_token, customer_id, event_id, seat_ids, status, expires_at, created_at, updated_at
                           FROM seat_holds WHERE hold_token = ? LIMIT 1`

func (r *HoldRepo) scanOne(row *sql.Row) (model.SeatHold, error) {
	var h model.SeatHold
	var seatIDsJSON []byte
	err := row.Scan(&h.ID, &h.HoldToken, &h.CustomerID, &h.EventID, &seatIDsJSON,
		&h.Status, &h.ExpiresAt, &h.CreatedAt, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.SeatHold{}, ErrHoldNotFound
	}
	if err != nil {
		return model.SeatHold{}, err
	}
	if err := json.Unmarshal(seatIDsJSON, &h.SeatIDs); err != nil {
		return model.SeatHold{}, err
	}
	return h, nil
}

// MarkStatusTx transitions a hold from ACTIVE to a terminal status
// (CONFIRMED, CANCELLED or EXPIRED), guarded by the current status so a
// concurrent transition cannot double-apply. Returns ErrHoldNotActive
// when the hold was not ACTIVE.
func (r *HoldRepo) MarkStatusTx(ctx context.Context, tx *sql.Tx, holdID uint64, newStatus string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE seat_holds SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		newStatus, holdID, model.HoldActive)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrHoldNotActive
	}
	return nil
}

// FindExpiredHolds returns ACTIVE holds whose expires_at has passed, for
// the reconciler's sweep. limit bounds the batch size per tick.
func (r *HoldRepo) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.SeatHold, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, hold_token, customer_id, event_id, seat_ids, status, expires_at, created_at, updated_at
         FROM seat_holds WHERE status = ? AND expires_at <= ? ORDER BY expires_at LIMIT ?`,
		model.HoldActive, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	return scanHolds(rows)
}

// FindExpiredHoldsForSeat returns ACTIVE holds that reference seatID and
// have already expired, used by the consumer's per-seat reconciliation
// step when handling a SEAT_HOLD_EXPIRED event. Since seat_ids is a JSON
// array the match is done with MySQL's JSON_CONTAINS against the scalar.
func (r *HoldRepo) FindExpiredHoldsForSeat(ctx context.Context, eventID, seatID uint64, now time.Time) ([]model.SeatHold, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, hold_token, customer_id, event_id, seat_ids, status, expires_at, created_at, updated_at
         FROM seat_holds
         WHERE event_id = ? AND status = ? AND expires_at <= ? AND JSON_CONTAINS(seat_ids, CAST(? AS JSON))`,
		eventID, model.HoldActive, now.UTC(), seatID)
	if err != nil {
		return nil, err
	}
	return scanHolds(rows)
}

func scanHolds(rows *sql.Rows) ([]model.SeatHold, error) {
	defer rows.Close()
	var out []model.SeatHold
	for rows.Next() {
		var h model.SeatHold
		var seatIDsJSON []byte
		if err := rows.Scan(&h.ID, &h.HoldToken, &h.CustomerID, &h.EventID, &seatIDsJSON,
			&h.Status, &h.ExpiresAt, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(seatIDsJSON, &h.SeatIDs); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ActiveHoldsByCustomerAndEventTx mirrors the teacher's
// ActiveHoldsByUserAndShowTx: active holds a customer has on an event,
// read inside the given transaction. Nothing in this repository calls it.
func (r *HoldRepo) ActiveHoldsByCustomerAndEventTx(ctx context.Context, tx *sql.Tx, customerID, eventID uint64) ([]model.SeatHold, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, hold_token, customer_id, event_id, seat_ids, status, expires_at, created_at, updated_at
         FROM seat_holds WHERE customer_id = ? AND event_id = ? AND status = ? AND expires_at > UTC_TIMESTAMP()`,
		customerID, eventID, model.HoldActive)
	if err != nil {
		return nil, err
	}
	return scanHolds(rows)
}
