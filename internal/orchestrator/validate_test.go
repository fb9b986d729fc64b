package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asOrchestratorError(t *testing.T, err error) *Error {
	t.Helper()
	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	return oerr
}

func TestValidateSeatIDsRejectsEmpty(t *testing.T) {
	err := validateSeatIDs(nil, 10)
	require.Error(t, err)
	assert.Equal(t, KindValidationError, asOrchestratorError(t, err).Kind)
}

func TestValidateSeatIDsRejectsOverMax(t *testing.T) {
	err := validateSeatIDs([]uint64{1, 2, 3}, 2)
	require.Error(t, err)
	assert.Equal(t, KindValidationError, asOrchestratorError(t, err).Kind)
}

func TestValidateSeatIDsRejectsDuplicates(t *testing.T) {
	err := validateSeatIDs([]uint64{1, 2, 2}, 10)
	require.Error(t, err)
	assert.Equal(t, KindValidationError, asOrchestratorError(t, err).Kind)
}

func TestValidateSeatIDsAcceptsWithinBounds(t *testing.T) {
	err := validateSeatIDs([]uint64{1, 2, 3}, 10)
	assert.NoError(t, err)
}

func TestValidateSeatIDsAcceptsExactlyMax(t *testing.T) {
	err := validateSeatIDs([]uint64{1, 2}, 2)
	assert.NoError(t, err)
}
