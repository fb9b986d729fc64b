package lockstore

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestLockKeyFormat(t *testing.T) {
	assert.Equal(t, "seat:12:34:HELD", lockKey(12, 34))
}

func TestOverlayKeyFormat(t *testing.T) {
	assert.Equal(t, "12:seat_status", overlayKey(12))
}

func TestParseLockKeyRoundTrip(t *testing.T) {
	key := lockKey(98, 4)
	parsed, ok := parseLockKey(key)
	assert.True(t, ok)
	assert.Equal(t, ExpiredSeatKey{EventID: 98, SeatID: 4}, parsed)
}

func TestParseLockKeyRejectsUnrelatedKeys(t *testing.T) {
	_, ok := parseLockKey("some:other:key")
	assert.False(t, ok)

	_, ok = parseLockKey("12:seat_status")
	assert.False(t, ok)
}

func TestIsConnError(t *testing.T) {
	assert.False(t, IsConnError(nil))
	assert.False(t, IsConnError(redis.Nil))
	assert.True(t, IsConnError(errors.New("dial tcp: connection refused")))
}

func TestRefreshOverlayTTLNoopWhenDisabled(t *testing.T) {
	s := New(nil, 0, 0)
	assert.NoError(t, s.refreshOverlayTTL(context.Background(), overlayKey(1)))
}
