package signaler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoffDoublesUntilCap(t *testing.T) {
	cur := 500 * time.Millisecond
	cur = nextBackoff(cur)
	assert.Equal(t, time.Second, cur)

	cur = nextBackoff(cur)
	assert.Equal(t, 2*time.Second, cur)
}

func TestNextBackoffCapsAtThirtySeconds(t *testing.T) {
	assert.Equal(t, 30*time.Second, nextBackoff(30*time.Second))
	assert.Equal(t, 30*time.Second, nextBackoff(time.Minute))
}
