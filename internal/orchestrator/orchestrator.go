// Package orchestrator is the write-path coordinator (C8): the only
// component that touches MySQL, Redis and RabbitMQ for a single
// operation. It acquires per-seat locks in request order, falls back to
// row-level locking when Redis is unavailable, and uses a unit-of-work
// transaction with post-commit/post-rollback hooks instead of the
// teacher's framework-managed transaction annotations (spec.md §9
// redesign flag). Grounded on the teacher's ReservationService
// (HoldSeats/ConfirmReservation two-phase protocol).
package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seathold/seat-hold-service/internal/eventlog"
	"github.com/seathold/seat-hold-service/internal/idgen"
	"github.com/seathold/seat-hold-service/internal/lockstore"
	"github.com/seathold/seat-hold-service/internal/model"
	"github.com/seathold/seat-hold-service/internal/repository"
	"github.com/seathold/seat-hold-service/internal/txutil"
)

// Config bounds orchestrator behavior; all three fields have spec.md
// §3/§4.8 defaults.
type Config struct {
	MaxSeatsPerHold int
	HoldDuration    time.Duration
	TxTimeout       time.Duration
}

// DefaultConfig returns spec.md's stated defaults: 10 minute holds, at
// most 10 seats per hold, a 30 second ceiling on any single transaction.
func DefaultConfig() Config {
	return Config{
		MaxSeatsPerHold: 10,
		HoldDuration:    10 * time.Minute,
		TxTimeout:       30 * time.Second,
	}
}

// Orchestrator wires the three data planes together. Locks and producer
// may both be nil; a nil Locks means every request runs the degraded,
// row-lock-only path, mirroring how config.NewRedisClient / the AMQP
// connection are allowed to fail open at startup.
type Orchestrator struct {
	cfg    Config
	db     *sql.DB
	events *repository.EventRepo
	seats  *repository.SeatRepo
	holds  *repository.HoldRepo
	books  *repository.BookingRepo
	idem   *repository.IdempotencyRepo
	locks  *lockstore.Store
	pub    *eventlog.Producer
	log    *slog.Logger
}

func New(
	cfg Config,
	db *sql.DB,
	events *repository.EventRepo,
	seats *repository.SeatRepo,
	holds *repository.HoldRepo,
	books *repository.BookingRepo,
	idem *repository.IdempotencyRepo,
	locks *lockstore.Store,
	pub *eventlog.Producer,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg: cfg, db: db, events: events, seats: seats, holds: holds,
		books: books, idem: idem, locks: locks, pub: pub, log: log,
	}
}

func (o *Orchestrator) publish(fn func() error) {
	if o.pub == nil {
		return
	}
	if err := fn(); err != nil {
		o.log.Error("event log publish failed", "error", err)
	}
}

// PlaceHold implements spec.md §4.8.1. It validates the request, mints a
// hold token, acquires a per-seat lock for every seat in request order
// (releasing whatever it already acquired on the first failure), and
// then performs the guarded DB transition inside a transaction. When the
// lock store is unreachable it falls back to SELECT ... FOR UPDATE and
// marks the response Degraded.
func (o *Orchestrator) PlaceHold(ctx context.Context, customerID, eventID uint64, seatIDs []uint64, idempotencyKey string) (HoldResponse, error) {
	if err := validateSeatIDs(seatIDs, o.cfg.MaxSeatsPerHold); err != nil {
		return HoldResponse{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.TxTimeout)
	defer cancel()

	ev, err := o.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return HoldResponse{}, newError(KindValidationError, "event not found", err)
		}
		return HoldResponse{}, newError(KindTransient, "lookup event", err)
	}
	if !ev.Bookable() {
		return HoldResponse{}, newError(KindValidationError, "event is not open for booking", nil)
	}

	if idempotencyKey != "" {
		if resp, ok, err := o.replayHold(ctx, idempotencyKey); err != nil {
			return HoldResponse{}, newError(KindTransient, "idempotency lookup", err)
		} else if ok {
			return resp, nil
		}
	}

	holdToken, err := idgen.NewHoldToken()
	if err != nil {
		return HoldResponse{}, newError(KindTransient, "mint hold token", err)
	}
	ownerValue := fmt.Sprintf("%d:%s", customerID, holdToken)
	now := time.Now().UTC()
	expiresAt := now.Add(o.cfg.HoldDuration)

	degraded := o.locks == nil
	var acquired []uint64
	if !degraded {
		var lockErr error
		acquired, lockErr = o.acquireSeatLocks(ctx, eventID, seatIDs, ownerValue)
		if lockErr != nil {
			if errors.Is(lockErr, lockstore.ErrSeatLocked) {
				return HoldResponse{}, newError(KindSeatsUnavailable, "seat already locked", lockErr)
			}
			o.log.Warn("lock store unreachable, falling back to row locks", "error", lockErr)
			degraded = true
		}
	}

	hold := model.SeatHold{
		HoldToken:  holdToken,
		CustomerID: customerID,
		EventID:    eventID,
		SeatIDs:    seatIDs,
		ExpiresAt:  expiresAt,
	}

	resp, err := o.placeHoldTx(ctx, hold, degraded, idempotencyKey, ownerValue, acquired, ev.Name)
	if err != nil {
		return HoldResponse{}, err
	}
	return resp, nil
}

func (o *Orchestrator) placeHoldTx(ctx context.Context, hold model.SeatHold, degraded bool, idempotencyKey, ownerValue string, acquired []uint64, eventTitle string) (HoldResponse, error) {
	uow, err := txutil.Begin(ctx, o.db)
	if err != nil {
		return HoldResponse{}, newError(KindTransient, "begin transaction", err)
	}
	tx := uow.Tx

	// Locks were acquired before this transaction opened; if the
	// transaction doesn't commit they must not outlive it, so the release
	// is tied to rollback rather than to PlaceHold's own error path.
	uow.AfterRollback(func() {
		o.releaseSeatLocks(context.Background(), hold.EventID, acquired, ownerValue)
	})

	if degraded {
		if err := o.seats.LockSeatsForUpdateTx(ctx, tx, hold.EventID, hold.SeatIDs); err != nil {
			return HoldResponse{}, uow.Finish(newError(KindTransient, "lock seat rows", err))
		}
	}

	if err := o.seats.HoldSeatsGuardedTx(ctx, tx, hold.EventID, hold.SeatIDs); err != nil {
		kind := KindTransient
		if errors.Is(err, repository.ErrSeatsUnavailable) {
			kind = KindSeatsUnavailable
		}
		return HoldResponse{}, uow.Finish(newError(kind, "hold seats", err))
	}

	priced, err := o.seats.FindByIDsTx(ctx, tx, hold.SeatIDs)
	if err != nil {
		return HoldResponse{}, uow.Finish(newError(KindTransient, "price seats", err))
	}
	var total int64
	for _, s := range priced {
		total += s.PriceCents
	}

	holdID, err := o.holds.CreateTx(ctx, tx, hold)
	if err != nil {
		return HoldResponse{}, uow.Finish(newError(KindTransient, "create hold", err))
	}
	hold.ID = holdID
	hold.Status = model.HoldActive

	if idempotencyKey != "" {
		if err := o.idem.CompleteTx(ctx, tx, idempotencyKey, hold.HoldToken); err != nil {
			return HoldResponse{}, uow.Finish(newError(KindTransient, "complete idempotency key", err))
		}
	}

	resp := HoldResponse{
		HoldToken:   hold.HoldToken,
		CustomerID:  hold.CustomerID,
		EventID:     hold.EventID,
		EventTitle:  eventTitle,
		SeatIDs:     hold.SeatIDs,
		SeatCount:   len(hold.SeatIDs),
		TotalAmount: total,
		Status:      model.HoldActive,
		ExpiresAt:   hold.ExpiresAt,
		CreatedAt:   now(),
		Degraded:    degraded,
	}
	if degraded {
		resp.Message = "placed without the lock store; seat-level expiry signaling is delayed to the reconciler"
	}

	uow.AfterCommit(func() {
		if o.locks != nil {
			if err := o.locks.SetSeatStatusMany(context.Background(), hold.EventID, hold.SeatIDs, model.SeatHeld); err != nil {
				o.log.Error("overlay update failed after hold commit", "error", err)
			}
		}
		o.publish(func() error {
			return o.pub.PublishHoldAudit(context.Background(), eventlog.EventHoldCreated, eventlog.HoldAuditEvent{
				HoldToken: hold.HoldToken, CustomerID: hold.CustomerID, EventID: hold.EventID, SeatIDs: hold.SeatIDs,
				Status: hold.Status, ExpiresAt: hold.ExpiresAt,
			})
		})
		for _, seatID := range hold.SeatIDs {
			sid := seatID
			o.publish(func() error {
				return o.pub.PublishSeatTransition(context.Background(), eventlog.EventSeatHeld, hold.EventID, sid, hold.HoldToken)
			})
		}
	})

	if err := uow.Finish(nil); err != nil {
		return HoldResponse{}, newError(KindTransient, "commit hold", err)
	}
	return resp, nil
}

// replayHold looks up whether idempotencyKey was already used; if so it
// returns a response built from the hold the first attempt created
// instead of re-running the side effects.
func (o *Orchestrator) replayHold(ctx context.Context, key string) (HoldResponse, bool, error) {
	uow, err := txutil.Begin(ctx, o.db)
	if err != nil {
		return HoldResponse{}, false, err
	}
	existingToken, claimed, err := o.idem.ReserveTx(ctx, uow.Tx, key)
	if err != nil {
		return HoldResponse{}, false, uow.Finish(err)
	}
	if err := uow.Finish(nil); err != nil {
		return HoldResponse{}, false, err
	}
	if claimed || existingToken == "" {
		return HoldResponse{}, false, nil
	}
	hold, err := o.holds.FindByHoldToken(ctx, existingToken)
	if err != nil {
		return HoldResponse{}, false, err
	}
	return HoldResponse{
		HoldToken: hold.HoldToken, CustomerID: hold.CustomerID, EventID: hold.EventID,
		SeatIDs: hold.SeatIDs, SeatCount: len(hold.SeatIDs), Status: hold.Status,
		ExpiresAt: hold.ExpiresAt, CreatedAt: hold.CreatedAt,
		Message: "replayed from idempotency key",
	}, true, nil
}

// acquireSeatLocks acquires locks in request order. On a conflict
// (ErrSeatLocked) it releases the locks it already acquired itself and
// returns nil. On any other error it returns the subset acquired so far,
// and the caller decides whether to keep those partial locks (degraded
// path continues without them mattering).
func (o *Orchestrator) acquireSeatLocks(ctx context.Context, eventID uint64, seatIDs []uint64, ownerValue string) ([]uint64, error) {
	var acquired []uint64
	for _, seatID := range seatIDs {
		err := o.locks.TryAcquireSeatLock(ctx, eventID, seatID, ownerValue, o.cfg.HoldDuration)
		if err != nil {
			if errors.Is(err, lockstore.ErrSeatLocked) {
				o.releaseSeatLocks(context.Background(), eventID, acquired, ownerValue)
				return nil, err
			}
			return acquired, err
		}
		acquired = append(acquired, seatID)
	}
	return acquired, nil
}

// releaseSeatLocks releases multiple per-seat locks concurrently; release
// order carries no ordering requirement, unlike acquisition. ownerValue
// must match what TryAcquireSeatLock stored ("{customerID}:{holdToken}")
// or the Lua compare-and-delete in lockstore leaves the key untouched.
func (o *Orchestrator) releaseSeatLocks(ctx context.Context, eventID uint64, seatIDs []uint64, ownerValue string) {
	if o.locks == nil || len(seatIDs) == 0 {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, seatID := range seatIDs {
		sid := seatID
		g.Go(func() error {
			if err := o.locks.ReleaseSeatLock(gctx, eventID, sid, ownerValue); err != nil {
				o.log.Error("release seat lock failed", "error", err, "seat_id", sid)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// ConfirmBooking implements spec.md §4.8.2: the hold must exist, belong
// to customerID, still be ACTIVE and not expired. On success the seats
// move HELD -> BOOKED, the hold moves ACTIVE -> CONFIRMED and a booking
// row is created, all inside one transaction.
func (o *Orchestrator) ConfirmBooking(ctx context.Context, holdToken string, customerID uint64, paymentID string) (BookingDto, error) {
	if holdToken == "" {
		return BookingDto{}, newError(KindValidationError, "hold token is required", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.TxTimeout)
	defer cancel()

	uow, err := txutil.Begin(ctx, o.db)
	if err != nil {
		return BookingDto{}, newError(KindTransient, "begin transaction", err)
	}
	tx := uow.Tx

	hold, err := o.holds.FindByHoldTokenForUpdateTx(ctx, tx, holdToken)
	if err != nil {
		if errors.Is(err, repository.ErrHoldNotFound) {
			return BookingDto{}, uow.Finish(newError(KindHoldNotFound, "hold not found", err))
		}
		return BookingDto{}, uow.Finish(newError(KindTransient, "lookup hold", err))
	}
	if hold.CustomerID != customerID {
		return BookingDto{}, uow.Finish(newError(KindCustomerMismatch, "hold belongs to a different customer", nil))
	}
	// Checked before Active: confirming flips the hold out of ACTIVE in
	// the same commit that creates the booking, so an already-confirmed
	// hold would otherwise always fail the Active check before reaching
	// this replay branch.
	if existing, err := o.books.FindByHoldTokenTx(ctx, tx, holdToken); err == nil {
		return bookingToDto(existing), uow.Finish(nil)
	} else if !errors.Is(err, repository.ErrBookingNotFound) {
		return BookingDto{}, uow.Finish(newError(KindTransient, "check existing booking", err))
	}

	if !hold.Active(time.Now().UTC()) {
		return BookingDto{}, uow.Finish(newError(KindHoldExpired, "hold is not active", nil))
	}

	if err := o.seats.BookSeatsTx(ctx, tx, hold.EventID, hold.SeatIDs); err != nil {
		return BookingDto{}, uow.Finish(newError(KindHoldExpired, "book seats", err))
	}
	if err := o.holds.MarkStatusTx(ctx, tx, hold.ID, model.HoldConfirmed); err != nil {
		return BookingDto{}, uow.Finish(newError(KindHoldExpired, "mark hold confirmed", err))
	}

	priced, err := o.seats.FindByIDsTx(ctx, tx, hold.SeatIDs)
	if err != nil {
		return BookingDto{}, uow.Finish(newError(KindTransient, "price seats", err))
	}
	var total int64
	for _, s := range priced {
		total += s.PriceCents
	}

	booking := model.Booking{
		CustomerID:       hold.CustomerID,
		EventID:          hold.EventID,
		SeatIDs:          hold.SeatIDs,
		TotalAmountCents: total,
		PaymentID:        paymentID,
		HoldToken:        hold.HoldToken,
		ConfirmedAt:      time.Now().UTC(),
	}

	// bookingReferenceAttempts bounds the retry-on-collision loop: the
	// unique index on booking_reference makes a collision detectable for
	// free, so a short bounded retry beats relying purely on entropy.
	const bookingReferenceAttempts = 5
	var bookingID uint64
	for attempt := 0; ; attempt++ {
		ref, refErr := idgen.NewBookingReference()
		if refErr != nil {
			return BookingDto{}, uow.Finish(newError(KindTransient, "mint booking reference", refErr))
		}
		booking.BookingReference = ref
		bookingID, err = o.books.CreateTx(ctx, tx, booking)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrConflict) && attempt < bookingReferenceAttempts-1 {
			continue
		}
		return BookingDto{}, uow.Finish(newError(KindTransient, "create booking", err))
	}
	booking.ID = bookingID
	booking.Status = model.BookingConfirmed

	uow.AfterCommit(func() {
		if o.locks != nil {
			if err := o.locks.ClearSeatStatusMany(context.Background(), hold.EventID, hold.SeatIDs); err != nil {
				o.log.Error("overlay clear failed after booking commit", "error", err)
			}
			if err := o.locks.SetSeatStatusMany(context.Background(), hold.EventID, hold.SeatIDs, model.SeatBooked); err != nil {
				o.log.Error("overlay update failed after booking commit", "error", err)
			}
			o.releaseSeatLocks(context.Background(), hold.EventID, hold.SeatIDs, fmt.Sprintf("%d:%s", hold.CustomerID, hold.HoldToken))
		}
		o.publish(func() error {
			return o.pub.PublishHoldAudit(context.Background(), eventlog.EventHoldConfirmed, eventlog.HoldAuditEvent{
				HoldToken: hold.HoldToken, CustomerID: hold.CustomerID, EventID: hold.EventID, SeatIDs: hold.SeatIDs,
				Status: model.HoldConfirmed, ExpiresAt: hold.ExpiresAt,
			})
		})
		for _, seatID := range hold.SeatIDs {
			sid := seatID
			o.publish(func() error {
				return o.pub.PublishSeatTransition(context.Background(), eventlog.EventSeatBooked, hold.EventID, sid, hold.HoldToken)
			})
		}
		o.publish(func() error {
			return o.pub.PublishBookingConfirmed(context.Background(), eventlog.BookingConfirmedEvent{
				BookingReference: booking.BookingReference, CustomerID: booking.CustomerID, EventID: booking.EventID,
				SeatIDs: booking.SeatIDs, TotalAmountCents: booking.TotalAmountCents,
				PaymentID: booking.PaymentID, HoldToken: booking.HoldToken,
				ConfirmedAt: booking.ConfirmedAt.Format(time.RFC3339),
			})
		})
	})

	if err := uow.Finish(nil); err != nil {
		return BookingDto{}, newError(KindTransient, "commit booking", err)
	}
	return bookingToDto(booking), nil
}

// CancelHold implements spec.md §4.8.3: an ACTIVE hold owned by
// customerID moves straight to CANCELLED and its seats return to
// AVAILABLE, regardless of whether it has already expired in wall-clock
// terms (cancellation races acceptably against expiry; whichever guard
// fires first wins, per the reconciler's idempotency cut).
func (o *Orchestrator) CancelHold(ctx context.Context, holdToken string, customerID uint64) error {
	if holdToken == "" {
		return newError(KindValidationError, "hold token is required", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.TxTimeout)
	defer cancel()

	uow, err := txutil.Begin(ctx, o.db)
	if err != nil {
		return newError(KindTransient, "begin transaction", err)
	}
	tx := uow.Tx

	hold, err := o.holds.FindByHoldTokenForUpdateTx(ctx, tx, holdToken)
	if err != nil {
		if errors.Is(err, repository.ErrHoldNotFound) {
			return uow.Finish(newError(KindHoldNotFound, "hold not found", err))
		}
		return uow.Finish(newError(KindTransient, "lookup hold", err))
	}
	if hold.CustomerID != customerID {
		return uow.Finish(newError(KindCustomerMismatch, "hold belongs to a different customer", nil))
	}
	if hold.Status != model.HoldActive {
		return uow.Finish(newError(KindHoldExpired, "hold is not active", nil))
	}

	affected, err := o.seats.ReleaseSeatsTx(ctx, tx, hold.EventID, hold.SeatIDs)
	if err != nil {
		return uow.Finish(newError(KindTransient, "release seats", err))
	}
	if err := o.holds.MarkStatusTx(ctx, tx, hold.ID, model.HoldCancelled); err != nil {
		if errors.Is(err, repository.ErrHoldNotActive) {
			return uow.Finish(newError(KindHoldExpired, "hold already transitioned", err))
		}
		return uow.Finish(newError(KindTransient, "mark hold cancelled", err))
	}

	uow.AfterCommit(func() {
		if o.locks != nil && affected > 0 {
			if err := o.locks.ClearSeatStatusMany(context.Background(), hold.EventID, hold.SeatIDs); err != nil {
				o.log.Error("overlay clear failed after cancel commit", "error", err)
			}
			o.releaseSeatLocks(context.Background(), hold.EventID, hold.SeatIDs, fmt.Sprintf("%d:%s", hold.CustomerID, hold.HoldToken))
		}
		o.publish(func() error {
			return o.pub.PublishHoldAudit(context.Background(), eventlog.EventHoldCancelled, eventlog.HoldAuditEvent{
				HoldToken: hold.HoldToken, CustomerID: hold.CustomerID, EventID: hold.EventID, SeatIDs: hold.SeatIDs,
				Status: model.HoldCancelled, ExpiresAt: hold.ExpiresAt,
			})
		})
		for _, seatID := range hold.SeatIDs {
			sid := seatID
			o.publish(func() error {
				return o.pub.PublishSeatTransition(context.Background(), eventlog.EventSeatReleased, hold.EventID, sid, hold.HoldToken)
			})
		}
	})

	if err := uow.Finish(nil); err != nil {
		return newError(KindTransient, "commit cancel", err)
	}
	return nil
}

// GetHold returns a hold by token for the read path, scoped to the
// requesting customer.
func (o *Orchestrator) GetHold(ctx context.Context, holdToken string, customerID uint64) (SeatHoldDto, error) {
	hold, err := o.holds.FindByHoldToken(ctx, holdToken)
	if err != nil {
		if errors.Is(err, repository.ErrHoldNotFound) {
			return SeatHoldDto{}, newError(KindHoldNotFound, "hold not found", err)
		}
		return SeatHoldDto{}, newError(KindTransient, "lookup hold", err)
	}
	if hold.CustomerID != customerID {
		return SeatHoldDto{}, newError(KindCustomerMismatch, "hold belongs to a different customer", nil)
	}
	return SeatHoldDto{
		HoldToken: hold.HoldToken, CustomerID: hold.CustomerID, EventID: hold.EventID,
		SeatIDs: hold.SeatIDs, Status: hold.Status, ExpiresAt: hold.ExpiresAt, CreatedAt: hold.CreatedAt,
	}, nil
}

// GetBooking returns a booking by its public reference, scoped to the
// requesting customer, for spec.md §6's booking lookup endpoint.
func (o *Orchestrator) GetBooking(ctx context.Context, reference string, customerID uint64) (BookingDto, error) {
	booking, err := o.books.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return BookingDto{}, newError(KindHoldNotFound, "booking not found", err)
		}
		return BookingDto{}, newError(KindTransient, "lookup booking", err)
	}
	if booking.CustomerID != customerID {
		return BookingDto{}, newError(KindCustomerMismatch, "booking belongs to a different customer", nil)
	}
	return bookingToDto(booking), nil
}

func bookingToDto(b model.Booking) BookingDto {
	return BookingDto{
		BookingReference: b.BookingReference, CustomerID: b.CustomerID, EventID: b.EventID,
		SeatIDs: b.SeatIDs, TotalAmount: b.TotalAmountCents, Status: b.Status,
		PaymentID: b.PaymentID, HoldToken: b.HoldToken, ConfirmedAt: b.ConfirmedAt,
	}
}

func validateSeatIDs(seatIDs []uint64, max int) error {
	if len(seatIDs) == 0 {
		return newError(KindValidationError, "at least one seat is required", nil)
	}
	if len(seatIDs) > max {
		return newError(KindValidationError, fmt.Sprintf("at most %d seats may be held at once", max), nil)
	}
	seen := make(map[uint64]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		if _, dup := seen[id]; dup {
			return newError(KindValidationError, "duplicate seat id in request", nil)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func now() time.Time { return time.Now().UTC() }
