// Package eventlog is the durable event log (C4): a single topic
// exchange standing in for the append-only partitioned log spec.md
// describes, since RabbitMQ does not have literal Kafka partitions.
// Routing keys carry the partitioning information instead; see
// consumer.Consumer for how ordering per seat is still preserved.
//
// Grounded on the teacher's internal/service/queue_publisher.go
// (durable declare, persistent delivery mode, PublishWithContext) and
// internal/queue/event.go (flat JSON event payload), generalized from a
// single booking.confirmed queue into a multi-event-type exchange.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange is the name of the durable topic exchange all seat-events
// flow through.
const Exchange = "seat-events"

// Event types, corresponding to the topics enumerated in spec.md §4.4.
const (
	EventSeatHeld           = "SEAT_HELD"
	EventSeatReleased       = "SEAT_RELEASED"
	EventSeatBooked         = "SEAT_BOOKED"
	EventSeatHoldExpired    = "SEAT_HOLD_EXPIRED"
	EventHoldCreated        = "HOLD_CREATED"
	EventHoldConfirmed      = "HOLD_CONFIRMED"
	EventHoldCancelled      = "HOLD_CANCELLED"
	EventBookingConfirmed   = "BOOKING_CONFIRMED"
)

// SeatTransitionEvent records a single seat's state change. Routing key
// is "{eventId}.{seatId}" so consumers can bind on per-seat or
// per-event patterns.
type SeatTransitionEvent struct {
	EventType string `json:"eventType"`
	Timestamp int64  `json:"timestamp"`
	Source    string `json:"source"`
	EventID   uint64 `json:"eventId"`
	SeatID    uint64 `json:"seatId"`
	HoldToken string `json:"holdToken,omitempty"`
}

// HoldAuditEvent records a hold lifecycle transition. Routing key is
// "hold.{holdToken}".
type HoldAuditEvent struct {
	EventType  string    `json:"eventType"`
	Timestamp  int64     `json:"timestamp"`
	Source     string    `json:"source"`
	HoldToken  string    `json:"holdToken"`
	CustomerID uint64    `json:"customerId"`
	EventID    uint64    `json:"eventId"`
	SeatIDs    []uint64  `json:"seatIds"`
	Status     string    `json:"status"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// BookingConfirmedEvent records a completed purchase, grounded directly
// on the teacher's queue.BookingConfirmedEvent shape.
type BookingConfirmedEvent struct {
	EventType        string   `json:"eventType"`
	Timestamp        int64    `json:"timestamp"`
	Source           string   `json:"source"`
	BookingReference string   `json:"bookingReference"`
	CustomerID       uint64   `json:"customerId"`
	EventID          uint64   `json:"eventId"`
	SeatIDs          []uint64 `json:"seatIds"`
	TotalAmountCents int64    `json:"totalAmountCents"`
	PaymentID        string   `json:"paymentId"`
	HoldToken        string   `json:"holdToken"`
	ConfirmedAt      string   `json:"confirmedAt"`
}

func seatRoutingKey(eventID, seatID uint64) string {
	return fmt.Sprintf("%d.%d", eventID, seatID)
}

func holdRoutingKey(holdToken string) string {
	return "hold." + holdToken
}

// Producer publishes events onto the seat-events exchange. It owns one
// AMQP channel for the lifetime of the process; callers are expected to
// construct it once at startup next to the connection.
type Producer struct {
	ch     *amqp.Channel
	source string
}

// NewProducer declares the topic exchange (idempotent) and returns a
// Producer bound to ch. source identifies which component published
// the event (e.g. "orchestrator", "signaler").
func NewProducer(ch *amqp.Channel, source string) (*Producer, error) {
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("exchange declare: %w", err)
	}
	return &Producer{ch: ch, source: source}, nil
}

// PublishSeatTransition publishes a seat-level event (SEAT_HELD,
// SEAT_RELEASED, SEAT_BOOKED, SEAT_HOLD_EXPIRED).
func (p *Producer) PublishSeatTransition(ctx context.Context, eventType string, eventID, seatID uint64, holdToken string) error {
	ev := SeatTransitionEvent{
		EventType: eventType,
		Timestamp: time.Now().UnixMilli(),
		Source:    p.source,
		EventID:   eventID,
		SeatID:    seatID,
		HoldToken: holdToken,
	}
	return p.publish(ctx, seatRoutingKey(eventID, seatID), ev)
}

// PublishHoldAudit publishes a hold-level event (HOLD_CREATED,
// HOLD_CONFIRMED, HOLD_CANCELLED).
func (p *Producer) PublishHoldAudit(ctx context.Context, eventType string, h HoldAuditEvent) error {
	h.EventType = eventType
	h.Timestamp = time.Now().UnixMilli()
	h.Source = p.source
	return p.publish(ctx, holdRoutingKey(h.HoldToken), h)
}

// PublishBookingConfirmed publishes the terminal BOOKING_CONFIRMED event.
func (p *Producer) PublishBookingConfirmed(ctx context.Context, b BookingConfirmedEvent) error {
	b.EventType = EventBookingConfirmed
	b.Timestamp = time.Now().UnixMilli()
	b.Source = p.source
	return p.publish(ctx, holdRoutingKey(b.HoldToken), b)
}

func (p *Producer) publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
