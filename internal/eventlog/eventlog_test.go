package eventlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeatRoutingKeyFormat(t *testing.T) {
	assert.Equal(t, "7.21", seatRoutingKey(7, 21))
}

func TestHoldRoutingKeyFormat(t *testing.T) {
	assert.Equal(t, "hold.HOLD_abc123", holdRoutingKey("HOLD_abc123"))
}
