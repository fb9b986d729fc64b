// Package idgen mints the opaque identifiers the seat hold subsystem hands
// back to callers: hold tokens, booking references and idempotency keys.
// None of these are auto-increment primary keys; they are random,
// externally visible strings that must not collide in practice.
package idgen

import (
	"crypto/rand"
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

const bookingRefAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewHoldToken returns "HOLD_" followed by 128 bits of randomness encoded
// as unpadded upper-case base32, suitable for a seat_holds row's
// hold_token column. Collisions are treated by the repository layer as a
// unique-constraint violation, not pre-checked here.
func NewHoldToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "HOLD_" + base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// NewBookingReference returns an 8-character, human-readable booking
// reference drawn from an alphabet that excludes visually ambiguous
// characters (0/O, 1/I/L).
func NewBookingReference() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.Grow(8)
	for _, b := range buf {
		sb.WriteByte(bookingRefAlphabet[int(b)%len(bookingRefAlphabet)])
	}
	return sb.String(), nil
}

// NewIdempotencyKey returns a UUIDv4 suitable for a caller to persist and
// retry a PlaceHold/ConfirmBooking request with.
func NewIdempotencyKey() string {
	return uuid.NewString()
}
