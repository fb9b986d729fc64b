package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/seathold/seat-hold-service/internal/orchestrator"
)

var errUnauthorized = errors.New("unauthorized")

// BookingHandler exposes the hold/booking write path and its companion
// read endpoints. Grounded on the teacher's ReservationHandler, which
// bundles the same HoldSeats/ConfirmReservation/CancelHold trio behind
// one struct.
type BookingHandler struct {
	Orch *orchestrator.Orchestrator
}

func NewBookingHandler(o *orchestrator.Orchestrator) *BookingHandler {
	return &BookingHandler{Orch: o}
}

type placeHoldReq struct {
	EventID uint64   `json:"eventId"`
	SeatIDs []uint64 `json:"seatIds"`
}

type confirmBookingReq struct {
	PaymentID string `json:"paymentId"`
}

// PlaceHold handles POST /api/holds.
func (h *BookingHandler) PlaceHold(c echo.Context) error {
	var req placeHoldReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	customerID, err := requireUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	idemKey := c.Request().Header.Get("X-Idempotency-Key")
	resp, err := h.Orch.PlaceHold(ctx, customerID, req.EventID, req.SeatIDs, idemKey)
	if err != nil {
		return writeOrchestratorError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// ConfirmBooking handles POST /api/holds/:token/confirm.
func (h *BookingHandler) ConfirmBooking(c echo.Context) error {
	var req confirmBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	customerID, err := requireUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	dto, err := h.Orch.ConfirmBooking(ctx, c.Param("token"), customerID, req.PaymentID)
	if err != nil {
		return writeOrchestratorError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// CancelHold handles DELETE /api/holds/:token.
func (h *BookingHandler) CancelHold(c echo.Context) error {
	customerID, err := requireUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Orch.CancelHold(ctx, c.Param("token"), customerID); err != nil {
		return writeOrchestratorError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetHold handles GET /api/holds/:token.
func (h *BookingHandler) GetHold(c echo.Context) error {
	customerID, err := requireUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	dto, err := h.Orch.GetHold(ctx, c.Param("token"), customerID)
	if err != nil {
		return writeOrchestratorError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// GetBooking handles GET /api/bookings/:reference.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	customerID, err := requireUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	dto, err := h.Orch.GetBooking(ctx, c.Param("reference"), customerID)
	if err != nil {
		return writeOrchestratorError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// requireUserID reads the "sub" claim JWTAuth stored on the context. JWT
// numeric claims decode as float64 (jwt.MapClaims round-trips through
// JSON), so the lookup mirrors the type switch in AuthHandler.Logout
// rather than assuming a string. Callers write the 401 response
// themselves so the handler's own return value unambiguously signals
// whether to continue.
func requireUserID(c echo.Context) (uint64, error) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), nil
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, errUnauthorized
		}
		return id, nil
	default:
		return 0, errUnauthorized
	}
}

// writeOrchestratorError translates an *orchestrator.Error's Kind into
// the HTTP status table from spec.md §7.
func writeOrchestratorError(c echo.Context, err error) error {
	var oerr *orchestrator.Error
	if !errors.As(err, &oerr) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	status := http.StatusInternalServerError
	switch oerr.Kind {
	case orchestrator.KindValidationError:
		status = http.StatusBadRequest
	case orchestrator.KindSeatsUnavailable:
		status = http.StatusConflict
	case orchestrator.KindHoldNotFound:
		status = http.StatusNotFound
	case orchestrator.KindHoldExpired:
		status = http.StatusGone
	case orchestrator.KindCustomerMismatch:
		status = http.StatusBadRequest
	case orchestrator.KindTransient:
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, echo.Map{"error": oerr.Msg, "kind": string(oerr.Kind)})
}
