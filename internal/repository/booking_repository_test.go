package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateKeyDetectsMySQLDuplicateError(t *testing.T) {
	err := errors.New("Error 1062: Duplicate entry 'ABCD1234' for key 'booking_reference'")
	assert.True(t, isDuplicateKey(err))
}

func TestIsDuplicateKeyRejectsUnrelatedErrors(t *testing.T) {
	assert.False(t, isDuplicateKey(errors.New("connection reset by peer")))
	assert.False(t, isDuplicateKey(nil))
}
