package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func newTestContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequireUserIDAcceptsFloat64Claim(t *testing.T) {
	c, _ := newTestContext()
	c.Set("user_id", float64(42))

	id, err := requireUserID(c)
	assert.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestRequireUserIDAcceptsStringClaim(t *testing.T) {
	c, _ := newTestContext()
	c.Set("user_id", "7")

	id, err := requireUserID(c)
	assert.NoError(t, err)
	assert.Equal(t, uint64(7), id)
}

func TestRequireUserIDRejectsMissingClaim(t *testing.T) {
	c, _ := newTestContext()

	_, err := requireUserID(c)
	assert.ErrorIs(t, err, errUnauthorized)
}

func TestRequireUserIDRejectsUnparseableStringClaim(t *testing.T) {
	c, _ := newTestContext()
	c.Set("user_id", "not-a-number")

	_, err := requireUserID(c)
	assert.ErrorIs(t, err, errUnauthorized)
}
