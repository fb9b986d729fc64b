package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewHoldTokenShapeAndUniqueness(t *testing.T) {
	a, err := NewHoldToken()
	require.NoError(t, err)
	b, err := NewHoldToken()
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(a, "HOLD_"))
	require.NotEqual(t, a, b)
	require.Greater(t, len(a), len("HOLD_"))
}

func TestNewBookingReferenceShape(t *testing.T) {
	ref, err := NewBookingReference()
	require.NoError(t, err)
	require.Len(t, ref, 8)
	for _, r := range ref {
		require.NotContains(t, "ILO01", string(r), "alphabet should avoid visually ambiguous characters")
	}
}

func TestNewBookingReferenceUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		ref, err := NewBookingReference()
		require.NoError(t, err)
		_, dup := seen[ref]
		require.False(t, dup)
		seen[ref] = struct{}{}
	}
}

func TestNewIdempotencyKeyIsUUID(t *testing.T) {
	k := NewIdempotencyKey()
	require.Len(t, k, 36)
	require.Equal(t, 4, strings.Count(k, "-"))
}
