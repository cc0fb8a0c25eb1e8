package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-reservation/internal/booking"
)

// ReservationHandler exposes booking and cancellation to customers.
type ReservationHandler struct {
	Bookings *booking.Manager
}

type bookReq struct {
	ShowID          uint64    `json:"show_id"`
	PerformanceDate time.Time `json:"performance_date"` // RFC 3339, must be one of the show's dates
	Section         string    `json:"section"`
	SeatNumber      int       `json:"seat_number"`
}

// Book: POST /v1/reservations
func (h *ReservationHandler) Book(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	res, err := h.Bookings.BookSeat(c.Request().Context(), booking.BookRequest{
		UserID:          uid,
		ShowID:          req.ShowID,
		PerformanceDate: req.PerformanceDate,
		Section:         req.Section,
		SeatNumber:      req.SeatNumber,
	})
	if err != nil {
		if booking.Retryable(err) {
			c.Response().Header().Set("Retry-After", "1")
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// List: GET /v1/reservations
func (h *ReservationHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	items, err := h.Bookings.ListReservations(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get: GET /v1/reservations/:id
func (h *ReservationHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	d, err := h.Bookings.GetReservation(c.Request().Context(), uid, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Cancel: DELETE /v1/reservations/:id
func (h *ReservationHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.Bookings.CancelReservation(c.Request().Context(), uid, id)
	if err != nil {
		if booking.Retryable(err) {
			c.Response().Header().Set("Retry-After", "1")
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
