package repository

import (
	"context"
	"database/sql"

	"github.com/seathold/seat-hold-service/internal/model"
)

// EventRepo provides read access to the events table. Event catalog
// management (create/edit) is an external collaborator; this core only
// needs to know whether an event exists and is bookable.
type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) FindByID(ctx context.Context, id uint64) (model.Event, error) {
	return r.findByID(ctx, r.db, id)
}

// FindByIDTx reads within an existing transaction, e.g. when the
// orchestrator wants a consistent read of the event's publish status
// alongside its hold-placement guard in the same tx.
func (r *EventRepo) FindByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Event, error) {
	return r.findByID(ctx, tx, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *EventRepo) findByID(ctx context.Context, q queryRower, id uint64) (model.Event, error) {
	const query = `SELECT id, name, total_capacity, publish_status, created_at, updated_at
                   FROM events WHERE id = ? LIMIT 1`
	var e model.Event
	err := q.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Name, &e.TotalCapacity, &e.PublishStatus, &e.CreatedAt, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return model.Event{}, ErrEventNotFound
	}
	if err != nil {
		return model.Event{}, err
	}
	return e, nil
}
