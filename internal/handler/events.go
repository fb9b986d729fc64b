package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/seathold/seat-hold-service/internal/readmodel"
)

// EventHandler exposes the read-only seat map assembled by the read
// model.
type EventHandler struct {
	Reads *readmodel.Assembler
}

func NewEventHandler(r *readmodel.Assembler) *EventHandler {
	return &EventHandler{Reads: r}
}

// EventSeats handles GET /api/events/:id/seats.
func (h *EventHandler) EventSeats(c echo.Context) error {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Reads.EventSeats(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load seats failed"})
	}
	return c.JSON(http.StatusOK, out)
}
