package repository

import (
	"context"
	"database/sql"
)

// IdempotencyRepo gives the X-Idempotency-Key header mentioned in
// spec.md's HTTP table a concrete store, grounded on TokenRepo's
// unique-hash-lookup shape: a retried PlaceHold call presents the same
// key and gets back the hold token from the first attempt instead of
// creating a second hold.
type IdempotencyRepo struct {
	db *sql.DB
}

func NewIdempotencyRepo(db *sql.DB) *IdempotencyRepo { return &IdempotencyRepo{db: db} }

// ReserveTx attempts to claim an idempotency key for a new request. It
// returns ("", true, nil) when the key is new and has been claimed by
// this call; it returns (existingHoldToken, false, nil) when the key was
// already claimed by a prior request, so the caller should replay that
// hold token instead of doing the work again.
func (r *IdempotencyRepo) ReserveTx(ctx context.Context, tx *sql.Tx, key string) (existingHoldToken string, claimed bool, err error) {
	var holdToken sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT hold_token FROM idempotency_keys WHERE idem_key = ? FOR UPDATE`, key).Scan(&holdToken)
	if err == nil {
		return holdToken.String, false, nil
	}
	if err != sql.ErrNoRows {
		return "", false, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO idempotency_keys (idem_key, hold_token) VALUES (?, NULL)`, key); err != nil {
		if isDuplicateKey(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return "", true, nil
}

// CompleteTx records the hold token produced for a claimed idempotency
// key, so subsequent retries of the same request return it via ReserveTx.
func (r *IdempotencyRepo) CompleteTx(ctx context.Context, tx *sql.Tx, key, holdToken string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE idempotency_keys SET hold_token = ? WHERE idem_key = ?`, holdToken, key)
	return err
}
