// Package lockstore is the Redis-backed lock/overlay store (C3): per-seat
// TTL locks that race PlaceHold callers against each other, and a
// per-event status overlay that lets the read model show HELD seats
// without round-tripping to MySQL. Grounded on the teacher's
// internal/config/redis.go (client construction, DB selection) and
// internal/middleware/ratelimit.go (Lua-script compare-and-mutate
// pattern).
package lockstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSeatLocked is returned by TryAcquireSeatLock when a seat's lock key
// already exists, meaning another caller is racing for the same seat.
var ErrSeatLocked = errors.New("seat is locked")

// Store wraps a go-redis client with the seat-lock and overlay operations
// the orchestrator and read assembler need.
type Store struct {
	rdb        *redis.Client
	db         int
	overlayTTL time.Duration
}

// New wraps an existing client, e.g. the one returned by
// config.NewRedisClient, which may be nil if Redis was unreachable at
// startup; callers are expected to check for nil and degrade (spec.md §5).
// overlayTTL bounds how long a per-event overlay hash survives without a
// write, so a crashed writer that skips ClearSeatStatusMany can't leave a
// HELD overlay entry stuck forever; the DB row remains the source of
// truth regardless.
func New(rdb *redis.Client, db int, overlayTTL time.Duration) *Store {
	return &Store{rdb: rdb, db: db, overlayTTL: overlayTTL}
}

func lockKey(eventID, seatID uint64) string {
	return fmt.Sprintf("seat:%d:%d:HELD", eventID, seatID)
}

func overlayKey(eventID uint64) string {
	return fmt.Sprintf("%d:seat_status", eventID)
}

// TryAcquireSeatLock sets a per-seat lock key with the given TTL using
// SET NX PX, the atomic primitive spec.md §4.3 requires. It returns
// ErrSeatLocked (not an error the caller should retry blindly) when the
// key already exists.
func (s *Store) TryAcquireSeatLock(ctx context.Context, eventID, seatID uint64, holdToken string, ttl time.Duration) error {
	ok, err := s.rdb.SetNX(ctx, lockKey(eventID, seatID), holdToken, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrSeatLocked
	}
	return nil
}

var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// ReleaseSeatLock deletes a seat's lock key only if it still holds the
// given owner value, a compare-and-delete that prevents a slow caller from
// releasing a lock a different hold has since acquired. Grounded on the
// compare-and-mutate Lua pattern in middleware.NewTokenBucket.
func (s *Store) ReleaseSeatLock(ctx context.Context, eventID, seatID uint64, holdToken string) error {
	_, err := releaseScript.Run(ctx, s.rdb, []string{lockKey(eventID, seatID)}, holdToken).Result()
	return err
}

// GetLockValue returns the owner value currently stored against a seat's
// lock key (the orchestrator stores "{customerID}:{holdToken}"), or
// redis.Nil if no lock is held. Used by the reconciler to
// cross-check a DB-held seat against the lock store.
func (s *Store) GetLockValue(ctx context.Context, eventID, seatID uint64) (string, error) {
	return s.rdb.Get(ctx, lockKey(eventID, seatID)).Result()
}

// SetSeatStatus writes one seat's status into the event's overlay hash.
func (s *Store) SetSeatStatus(ctx context.Context, eventID, seatID uint64, status string) error {
	key := overlayKey(eventID)
	if err := s.rdb.HSet(ctx, key, strconv.FormatUint(seatID, 10), status).Err(); err != nil {
		return err
	}
	return s.refreshOverlayTTL(ctx, key)
}

// SetSeatStatusMany writes several seats' statuses in one round trip and
// refreshes the overlay hash's TTL so it never outlives overlayTTL without
// a write.
func (s *Store) SetSeatStatusMany(ctx context.Context, eventID uint64, seatIDs []uint64, status string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	key := overlayKey(eventID)
	fields := make(map[string]any, len(seatIDs))
	for _, id := range seatIDs {
		fields[strconv.FormatUint(id, 10)] = status
	}
	if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return err
	}
	return s.refreshOverlayTTL(ctx, key)
}

func (s *Store) refreshOverlayTTL(ctx context.Context, key string) error {
	if s.overlayTTL <= 0 {
		return nil
	}
	return s.rdb.Expire(ctx, key, s.overlayTTL).Err()
}

// ClearSeatStatusMany removes seats from the overlay, e.g. once MySQL is
// updated to BOOKED and the overlay no longer needs to flag them HELD.
func (s *Store) ClearSeatStatusMany(ctx context.Context, eventID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	fields := make([]string, len(seatIDs))
	for i, id := range seatIDs {
		fields[i] = strconv.FormatUint(id, 10)
	}
	return s.rdb.HDel(ctx, overlayKey(eventID), fields...).Err()
}

// GetEventOverlay returns the full seat_id -> status map for an event,
// used by the read assembler to merge on top of the DB's AVAILABLE view.
func (s *Store) GetEventOverlay(ctx context.Context, eventID uint64) (map[uint64]string, error) {
	raw, err := s.rdb.HGetAll(ctx, overlayKey(eventID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]string, len(raw))
	for k, v := range raw {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			continue
		}
		out[id] = v
	}
	return out, nil
}

// ExpiredSeatKey identifies the event/seat a keyspace-expiry notification
// referred to, parsed out of its lock key.
type ExpiredSeatKey struct {
	EventID uint64
	SeatID  uint64
}

// SubscribeKeyExpired subscribes to the Redis keyspace-notification
// channel for expired keys on this store's logical DB and returns a
// channel of parsed seat keys. Expired keys outside the "seat:" namespace
// are skipped; "seat:" keys that do not parse as a seat lock key are
// logged as a warning and dropped. The subscription itself, and the
// underlying PubSub connection, are owned by the caller (signaler),
// which is responsible for reconnecting on error.
func (s *Store) SubscribeKeyExpired(ctx context.Context) (<-chan ExpiredSeatKey, *redis.PubSub) {
	channel := fmt.Sprintf("__keyevent@%d__:expired", s.db)
	pubsub := s.rdb.PSubscribe(ctx, channel)

	out := make(chan ExpiredSeatKey)
	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for msg := range ch {
			key, ok := parseLockKey(msg.Payload)
			if !ok {
				if strings.HasPrefix(msg.Payload, "seat:") {
					slog.Warn("dropping malformed seat lock key", "key", msg.Payload)
				}
				continue
			}
			select {
			case out <- key:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, pubsub
}

func parseLockKey(key string) (ExpiredSeatKey, bool) {
	var eventID, seatID uint64
	n, err := fmt.Sscanf(key, "seat:%d:%d:HELD", &eventID, &seatID)
	if err != nil || n != 2 {
		return ExpiredSeatKey{}, false
	}
	return ExpiredSeatKey{EventID: eventID, SeatID: seatID}, true
}

// IsConnError reports whether err is a non-nil Redis error other than
// redis.Nil (a missing key). It does not distinguish connection failures
// from other Redis errors. The read assembler uses it to fall back to
// the DB-only view.
func IsConnError(err error) bool {
	return err != nil && !errors.Is(err, redis.Nil)
}
