package router // router defines how HTTP routes are registered for the API

import (
	"github.com/iliyamo/show-reservation/internal/handler"    // admin handlers
	"github.com/iliyamo/show-reservation/internal/middleware" // JWT + role middlewares
	"github.com/iliyamo/show-reservation/internal/model"      // role names
	"github.com/labstack/echo/v4"
)

// RegisterAdmin registers catalog management under /v1/admin.
// All routes require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Venues ----
	g.POST("/venues", a.CreateVenue)
	g.PUT("/venues/:id", a.UpdateVenue)
	g.DELETE("/venues/:id", a.DeleteVenue)

	// ---- Shows ----
	g.POST("/shows", a.CreateShow)
	g.PUT("/shows/:id", a.UpdateShow)
	g.DELETE("/shows/:id", a.DeleteShow)
}
