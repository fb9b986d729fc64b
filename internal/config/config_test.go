package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringDefaultUsesEnvWhenSet(t *testing.T) {
	t.Setenv("TEST_STRING_VAL", "amqp://custom/")
	assert.Equal(t, "amqp://custom/", stringDefault("TEST_STRING_VAL", "amqp://default/"))
}

func TestStringDefaultFallsBackWhenUnset(t *testing.T) {
	assert.Equal(t, "amqp://default/", stringDefault("TEST_STRING_VAL_UNSET", "amqp://default/"))
}

func TestStringDefaultFallsBackWhenEmpty(t *testing.T) {
	t.Setenv("TEST_STRING_VAL_EMPTY", "")
	assert.Equal(t, "fallback", stringDefault("TEST_STRING_VAL_EMPTY", "fallback"))
}

func TestIntDefaultUsesEnvWhenSet(t *testing.T) {
	t.Setenv("TEST_INT_VAL", "42")
	assert.Equal(t, 42, intDefault("TEST_INT_VAL", 10))
}

func TestIntDefaultFallsBackWhenUnset(t *testing.T) {
	assert.Equal(t, 10, intDefault("TEST_INT_VAL_UNSET", 10))
}

func TestBoolDefaultUsesEnvWhenSet(t *testing.T) {
	t.Setenv("TEST_BOOL_VAL", "false")
	assert.Equal(t, false, boolDefault("TEST_BOOL_VAL", true))
}

func TestBoolDefaultFallsBackWhenUnset(t *testing.T) {
	assert.Equal(t, true, boolDefault("TEST_BOOL_VAL_UNSET", true))
}
