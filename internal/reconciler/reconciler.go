// Package reconciler is the safety net (C7): a ticker-driven sweep that
// catches seats left HELD when the signaler/consumer pipeline misses an
// expiry notification (e.g. Redis restarted and dropped its keyspace
// subscription). It performs the same guarded release as the consumer,
// so a hold that the fast path already handled is a no-op here
// (RowsAffected 0).
package reconciler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/seathold/seat-hold-service/internal/lockstore"
	"github.com/seathold/seat-hold-service/internal/model"
	"github.com/seathold/seat-hold-service/internal/repository"
)

// fanOutLimit bounds how many holds a single sweep releases concurrently,
// so one tick with a large batch doesn't open hundreds of transactions
// against MySQL at once.
const fanOutLimit = 16

// Config controls the sweep cadence and batch size.
type Config struct {
	Enabled  bool
	Interval time.Duration
	Batch    int
}

// DefaultConfig matches spec.md §9's resolved Open Question: the
// reconciler runs on by default with a 60-second tick.
func DefaultConfig() Config {
	return Config{Enabled: true, Interval: 60 * time.Second, Batch: 200}
}

// Reconciler sweeps expired holds against the record store and lock
// store.
type Reconciler struct {
	cfg   Config
	db    *sql.DB
	seats *repository.SeatRepo
	holds *repository.HoldRepo
	locks *lockstore.Store
	log   *slog.Logger
}

func New(cfg Config, db *sql.DB, seats *repository.SeatRepo, holds *repository.HoldRepo, locks *lockstore.Store, log *slog.Logger) *Reconciler {
	return &Reconciler{cfg: cfg, db: db, seats: seats, holds: holds, locks: locks, log: log}
}

// Run ticks until ctx is cancelled. If the reconciler is disabled by
// config, Run returns immediately.
func (r *Reconciler) Run(ctx context.Context) error {
	if !r.cfg.Enabled {
		r.log.Info("reconciler disabled")
		return nil
	}
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil {
				r.log.Error("reconciler sweep failed", "error", err)
			}
		}
	}
}

// sweep implements spec.md §4.7's 3-step algorithm: find expired ACTIVE
// holds, guard-release each seat they cover, and mark the hold EXPIRED
// only once all of its seats are no longer HELD under it.
func (r *Reconciler) sweep(ctx context.Context) error {
	expired, err := r.holds.FindExpiredHolds(ctx, time.Now(), r.cfg.Batch)
	if err != nil {
		return err
	}
	if len(expired) == 0 {
		return nil
	}
	r.log.Info("reconciler sweep found expired holds", "count", len(expired))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for _, h := range expired {
		hold := h
		g.Go(func() error {
			if err := r.releaseHold(gctx, hold); err != nil {
				r.log.Error("reconciler failed to release hold", "error", err, "hold_token", hold.HoldToken)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Reconciler) releaseHold(ctx context.Context, h model.SeatHold) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	affected, err := r.seats.ReleaseSeatsTx(ctx, tx, h.EventID, h.SeatIDs)
	if err != nil {
		return err
	}

	if err := r.holds.MarkStatusTx(ctx, tx, h.ID, model.HoldExpired); err != nil && !errors.Is(err, repository.ErrHoldNotActive) {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if affected > 0 && r.locks != nil {
		if err := r.locks.ClearSeatStatusMany(ctx, h.EventID, h.SeatIDs); err != nil {
			r.log.Warn("reconciler failed to clear overlay", "error", err, "event_id", h.EventID)
		}
		ownerValue := fmt.Sprintf("%d:%s", h.CustomerID, h.HoldToken)
		for _, seatID := range h.SeatIDs {
			current, err := r.locks.GetLockValue(ctx, h.EventID, seatID)
			if err != nil && !errors.Is(err, redis.Nil) {
				r.log.Warn("reconciler failed to read lock value", "error", err, "event_id", h.EventID, "seat_id", seatID)
				continue
			}
			if current != ownerValue {
				// Lock already belongs to someone else or has expired on
				// its own; nothing for this hold to release.
				continue
			}
			if err := r.locks.ReleaseSeatLock(ctx, h.EventID, seatID, ownerValue); err != nil {
				r.log.Warn("reconciler failed to release lock", "error", err, "event_id", h.EventID, "seat_id", seatID)
			}
		}
	}
	return nil
}
