package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/seathold/seat-hold-service/internal/model"
)

// BookingRepo persists the terminal record created when a hold converts
// into a purchase. Grounded on the teacher's ReservationRepo.CreateTx,
// generalized to a JSON seat_ids column (matching HoldRepo) instead of a
// separate junction table, since bookings here are created once and
// never partially modified.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// isDuplicateKey reports whether err is a MySQL duplicate-key violation
// (error 1062), following the teacher's string-matching convention in
// UserRepo.Create.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}

// CreateTx inserts a new CONFIRMED booking row and returns its id. The
// caller is responsible for retrying with a fresh reference on a
// duplicate-key error (see idgen.NewBookingReference / orchestrator's
// bounded retry loop).
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b model.Booking) (uint64, error) {
	seatIDsJSON, err := json.Marshal(b.SeatIDs)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (booking_reference, customer_id, event_id, seat_ids, total_amount_cents, status, payment_id, hold_token, confirmed_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.BookingReference, b.CustomerID, b.EventID, seatIDsJSON, b.TotalAmountCents,
		model.BookingConfirmed, b.PaymentID, b.HoldToken, b.ConfirmedAt.UTC())
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindByReference reads a booking by its public reference.
func (r *BookingRepo) FindByReference(ctx context.Context, reference string) (model.Booking, error) {
	const q = `SELECT id, booking_reference, customer_id, event_id, seat_ids, total_amount_cents, status, payment_id, hold_token, confirmed_at, created_at, updated_at
               FROM bookings WHERE booking_reference = ? LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, reference))
}

// FindByHoldTokenTx reads a booking created from the given hold token,
// used by ConfirmBooking to return the existing booking for a hold that
// was already confirmed.
func (r *BookingRepo) FindByHoldTokenTx(ctx context.Context, tx *sql.Tx, holdToken string) (model.Booking, error) {
	const q = `SELECT id, booking_reference, customer_id, event_id, seat_ids, total_amount_cents, status, payment_id, hold_token, confirmed_at, created_at, updated_at
               FROM bookings WHERE hold_token = ? LIMIT 1`
	var b model.Booking
	var seatIDsJSON []byte
	err := tx.QueryRowContext(ctx, q, holdToken).Scan(&b.ID, &b.BookingReference, &b.CustomerID, &b.EventID,
		&seatIDsJSON, &b.TotalAmountCents, &b.Status, &b.PaymentID, &b.HoldToken, &b.ConfirmedAt, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	if err := json.Unmarshal(seatIDsJSON, &b.SeatIDs); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepo) scanOne(row *sql.Row) (model.Booking, error) {
	var b model.Booking
	var seatIDsJSON []byte
	err := row.Scan(&b.ID, &b.BookingReference, &b.CustomerID, &b.EventID,
		&seatIDsJSON, &b.TotalAmountCents, &b.Status, &b.PaymentID, &b.HoldToken, &b.ConfirmedAt, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	if err := json.Unmarshal(seatIDsJSON, &b.SeatIDs); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// ListByCustomer returns the customer's bookings, newest first, mirroring
// the teacher's ReservationRepo.ListByUser ordering convention.
func (r *BookingRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Booking, error) {
	const q = `SELECT id, booking_reference, customer_id, event_id, seat_ids, total_amount_cents, status, payment_id, hold_token, confirmed_at, created_at, updated_at
               FROM bookings WHERE customer_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		var seatIDsJSON []byte
		if err := rows.Scan(&b.ID, &b.BookingReference, &b.CustomerID, &b.EventID,
			&seatIDsJSON, &b.TotalAmountCents, &b.Status, &b.PaymentID, &b.HoldToken, &b.ConfirmedAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(seatIDsJSON, &b.SeatIDs); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
