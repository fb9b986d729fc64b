package consumer

import (
	"strconv"
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
	assert.Equal(t, 30*time.Second, nextBackoff(45*time.Second))
}

func TestLaneForIsDeterministicAndInRange(t *testing.T) {
	const lanes = 8
	for _, routingKey := range []string{"1.1", "2.4", "100.3", "9999.12"} {
		a := laneFor(routingKey, lanes)
		b := laneFor(routingKey, lanes)
		assert.Equal(t, a, b, "laneFor must be deterministic for the same routing key")
		assert.GreaterOrEqual(t, a, 0)
		assert.Less(t, a, lanes)
	}
}

func TestLaneForSpreadsAcrossLanes(t *testing.T) {
	const lanes = 4
	seen := make(map[int]bool)
	for seatID := 0; seatID < 200; seatID++ {
		seen[laneFor("1."+strconv.Itoa(seatID), lanes)] = true
	}
	assert.Len(t, seen, lanes, "expected routing keys to spread across all lanes")
}
