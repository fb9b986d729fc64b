// Package consumer implements the state-transition consumer (C6): it
// drains seat-events and, for SEAT_HOLD_EXPIRED, performs the guarded
// release protocol described in spec.md §4.6.
//
// AMQP has no Kafka-style partitions, so per-seat ordering (spec.md
// §5(2)) is approximated with a bounded pool of worker "lanes": the
// routing key is hashed to a lane index and every event for a given
// (eventId, seatId) pair always lands on the same lane, processed
// in-order by a single goroutine. This is a deliberate, disclosed
// substitution for a literal partitioned log (see DESIGN.md).
//
// Grounded on the teacher's queue.StartBookingConsumer
// (reconnect-with-backoff, Qos(50,0,false), manual ack/nack) and the
// worker-pool fan-out shape of the pack's SeatReleaseWorker.
package consumer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/seathold/seat-hold-service/internal/eventlog"
	"github.com/seathold/seat-hold-service/internal/lockstore"
	"github.com/seathold/seat-hold-service/internal/model"
	"github.com/seathold/seat-hold-service/internal/repository"
)

const queueName = "seat-events.state-transition-consumer"

// Config controls the worker pool and AMQP dial target.
type Config struct {
	AMQPURL    string
	LaneCount  int
	Prefetch   int
}

// Consumer drains the seat-events exchange and applies expired-hold
// releases to the record store and lock store.
type Consumer struct {
	cfg    Config
	db     *sql.DB
	seats  *repository.SeatRepo
	holds  *repository.HoldRepo
	locks  *lockstore.Store
	log    *slog.Logger
}

func New(cfg Config, db *sql.DB, seats *repository.SeatRepo, holds *repository.HoldRepo, locks *lockstore.Store, log *slog.Logger) *Consumer {
	if cfg.LaneCount <= 0 {
		cfg.LaneCount = 8
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 50
	}
	return &Consumer{cfg: cfg, db: db, seats: seats, holds: holds, locks: locks, log: log}
}

// Run connects, declares the consumer's own durable queue bound to
// every seat-level routing key, and processes deliveries until ctx is
// cancelled. It reconnects with exponential backoff on connection loss,
// mirroring the teacher's StartBookingConsumer loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, err := amqp.Dial(c.cfg.AMQPURL)
		if err != nil {
			c.log.Warn("consumer dial failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = time.Second

		if err := c.consumeLoop(ctx, conn); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Warn("consume loop ended", "error", err)
		}
		_ = conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		sleep(ctx, 2*time.Second)
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(eventlog.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(queueName, "*.*", eventlog.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		c.log.Warn("set QoS failed", "error", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	lanes := make([]chan amqp.Delivery, c.cfg.LaneCount)
	for i := range lanes {
		lanes[i] = make(chan amqp.Delivery, 64)
		go c.laneWorker(ctx, lanes[i])
	}
	defer func() {
		for _, lane := range lanes {
			close(lane)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			lane := lanes[laneFor(d.RoutingKey, c.cfg.LaneCount)]
			select {
			case lane <- d:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (c *Consumer) laneWorker(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		if err := c.handleDelivery(ctx, d); err != nil {
			c.log.Error("handle delivery failed", "error", err, "routing_key", d.RoutingKey)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) error {
	var envelope struct {
		EventType string `json:"eventType"`
	}
	if err := json.Unmarshal(d.Body, &envelope); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	if envelope.EventType != eventlog.EventSeatHoldExpired {
		return nil
	}

	var ev eventlog.SeatTransitionEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		return fmt.Errorf("unmarshal seat transition: %w", err)
	}
	return c.handleSeatHoldExpired(ctx, ev)
}

// handleSeatHoldExpired implements the 3-step protocol of spec.md §4.6:
// find the expired hold(s) referencing the seat, attempt the guarded
// HELD->AVAILABLE release, and only on success mark the hold EXPIRED and
// clear the lock/overlay. A RowsAffected of zero (someone already
// released or booked the seat) is the idempotency cut: the event is
// acknowledged and dropped, not treated as an error.
func (c *Consumer) handleSeatHoldExpired(ctx context.Context, ev eventlog.SeatTransitionEvent) error {
	holds, err := c.holds.FindExpiredHoldsForSeat(ctx, ev.EventID, ev.SeatID, time.Now())
	if err != nil {
		return fmt.Errorf("find expired holds: %w", err)
	}
	if len(holds) == 0 {
		return nil
	}

	for _, h := range holds {
		if err := c.releaseOneHold(ctx, h, ev.SeatID); err != nil {
			return err
		}
	}
	return nil
}

func (c *Consumer) releaseOneHold(ctx context.Context, h model.SeatHold, seatID uint64) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	affected, err := c.seats.ReleaseSeatsTx(ctx, tx, h.EventID, []uint64{seatID})
	if err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	if affected == 0 {
		return tx.Commit()
	}

	if err := c.holds.MarkStatusTx(ctx, tx, h.ID, model.HoldExpired); err != nil && !errors.Is(err, repository.ErrHoldNotActive) {
		return fmt.Errorf("mark hold expired: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if c.locks != nil {
		ownerValue := fmt.Sprintf("%d:%s", h.CustomerID, h.HoldToken)
		if err := c.locks.ReleaseSeatLock(ctx, h.EventID, seatID, ownerValue); err != nil {
			c.log.Warn("release seat lock failed", "error", err, "event_id", h.EventID, "seat_id", seatID)
		}
		if err := c.locks.ClearSeatStatusMany(ctx, h.EventID, []uint64{seatID}); err != nil {
			c.log.Warn("clear overlay failed", "error", err, "event_id", h.EventID, "seat_id", seatID)
		}
	}
	return nil
}

func laneFor(routingKey string, laneCount int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(routingKey))
	return int(h.Sum32()) % laneCount
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
