// Package signaler is the expiry signaler (C5): it has no database
// access at all. It subscribes to Redis keyspace-expiry notifications,
// parses the seat lock key that just expired, and republishes it as a
// SEAT_HOLD_EXPIRED event onto the event log for C6 to act on.
//
// Grounded on the teacher's queue.StartBookingConsumer
// reconnect-with-backoff loop, adapted from consuming AMQP deliveries to
// subscribing to a Redis pub/sub channel.
package signaler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/seathold/seat-hold-service/internal/eventlog"
	"github.com/seathold/seat-hold-service/internal/lockstore"
)

// Signaler bridges Redis key expiry to the event log.
type Signaler struct {
	locks    *lockstore.Store
	producer *eventlog.Producer
	log      *slog.Logger
}

func New(locks *lockstore.Store, producer *eventlog.Producer, log *slog.Logger) *Signaler {
	return &Signaler{locks: locks, producer: producer, log: log}
}

// Run subscribes and republishes until ctx is cancelled, reconnecting
// the subscription with exponential backoff if the channel closes.
func (s *Signaler) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		expired, pubsub := s.locks.SubscribeKeyExpired(ctx)
		if err := s.drain(ctx, expired); err != nil {
			s.log.Warn("signaler subscription ended", "error", err, "retry_in", backoff)
			_ = pubsub.Close()
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		_ = pubsub.Close()
		backoff = time.Second
	}
}

func (s *Signaler) drain(ctx context.Context, expired <-chan lockstore.ExpiredSeatKey) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case key, ok := <-expired:
			if !ok {
				return errors.New("expiry subscription closed")
			}
			if err := s.producer.PublishSeatTransition(ctx, eventlog.EventSeatHoldExpired, key.EventID, key.SeatID, ""); err != nil {
				s.log.Error("publish seat hold expired failed", "error", err, "event_id", key.EventID, "seat_id", key.SeatID)
				continue
			}
			s.log.Debug("published seat hold expired", "event_id", key.EventID, "seat_id", key.SeatID)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > 30*time.Second {
		return 30 * time.Second
	}
	return next
}
