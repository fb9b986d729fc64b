package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatsWithAndWithoutCause(t *testing.T) {
	bare := newError(KindValidationError, "at least one seat is required", nil)
	assert.Equal(t, "ValidationError: at least one seat is required", bare.Error())

	cause := errors.New("connection refused")
	wrapped := newError(KindTransient, "begin transaction", cause)
	assert.Equal(t, "Transient: begin transaction: connection refused", wrapped.Error())
}

func TestErrorUnwrapExposesCause(t *testing.T) {
	cause := errors.New("duplicate entry")
	wrapped := newError(KindTransient, "create booking", cause)

	require.ErrorIs(t, wrapped, cause)
	assert.Equal(t, cause, wrapped.Unwrap())
}

func TestErrorUnwrapNilCause(t *testing.T) {
	bare := newError(KindHoldNotFound, "hold not found", nil)
	assert.Nil(t, bare.Unwrap())
}
