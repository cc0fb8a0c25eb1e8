package router

import (
	"github.com/iliyamo/show-reservation/internal/handler"
	"github.com/iliyamo/show-reservation/internal/middleware"
	"github.com/iliyamo/show-reservation/internal/model"
	"github.com/labstack/echo/v4"
)

// RegisterReservations registers customer booking endpoints under
// /v1/reservations.  All routes require a valid JWT and the USER role.  The
// two writes, booking and cancelling, also pass the rate limiter.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/reservations",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser),
	)
	g.POST("", h.Book, limit)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Cancel, limit)
}
