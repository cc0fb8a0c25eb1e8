package router // package router defines how HTTP routes are registered for the API

import (
	"net/http" // status codes for the HTTP error handler

	"github.com/labstack/echo/v4"                              // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"            // stock recover and body limit middleware
	"github.com/prometheus/client_golang/prometheus/promhttp" // /metrics handler
	"github.com/redis/go-redis/v9"                             // shared by rate limiter and cache

	"github.com/iliyamo/show-reservation/internal/config"     // rate limit and cache settings
	"github.com/iliyamo/show-reservation/internal/handler"    // HTTP handlers
	"github.com/iliyamo/show-reservation/internal/middleware" // JWT, roles, request ids
)

// Deps is everything the HTTP layer needs. Redis may be nil; the rate
// limiter and the response cache then pass requests through.
type Deps struct {
	JWTSecret    string
	RateLimit    config.RateLimitConfig
	Cache        config.CacheConfig
	Redis        *redis.Client
	HealthChecks map[string]handler.Check

	Auth         *handler.AuthHandler
	Points       *handler.PointsHandler
	Public       *handler.PublicHandler
	Admin        *handler.AdminHandler
	Reservations *handler.ReservationHandler
}

// New builds the Echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = jsonErrorHandler
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())
	e.Use(echomw.BodyLimit("1M"))

	RegisterRoutes(e, d.HealthChecks)
	RegisterAuth(e, d.Auth, d.JWTSecret)
	RegisterPoints(e, d.Points, d.JWTSecret)
	RegisterPublic(e, d.Public, middleware.NewRedisCache(d.Cache, d.Redis))
	RegisterAdmin(e, d.Admin, d.JWTSecret)
	RegisterReservations(e, d.Reservations, d.JWTSecret, middleware.NewTokenBucket(d.RateLimit, d.Redis))
	return e
}

// RegisterRoutes registers the operational endpoints: a health check that
// probes the given dependencies and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, checks map[string]handler.Check) {
	e.GET("/healthz", handler.Health(checks))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers all authentication-related routes.  Register,
// login, refresh and logout live under /v1/auth and need no session; logout
// accepts either a refresh token or a bearer.  /v1/me requires a valid
// access token of any role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPoints registers the caller's ledger endpoints.
func RegisterPoints(e *echo.Echo, p *handler.PointsHandler, jwtSecret string) {
	g := e.Group("/v1/points", middleware.JWTAuth(jwtSecret))
	g.GET("", p.Balance)
	g.POST("/charge", p.Charge)
	g.GET("/history", p.History)
}

// RegisterPublic registers unauthenticated browse endpoints.  Catalog reads
// go through the response cache; availability changes with every booking
// and is always computed live.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/venues", p.ListVenues, cache)
	g.GET("/venues/:id", p.GetVenue, cache)
	g.GET("/shows", p.ListShows, cache)
	g.GET("/shows/search", p.SearchShows, cache)
	g.GET("/shows/:id", p.GetShow, cache)
	g.GET("/shows/:id/availability", p.Availability)
}

// jsonErrorHandler renders framework errors (unknown route, wrong method,
// oversized body) in the same shape handlers use.
func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := http.StatusInternalServerError, "internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		} else {
			msg = http.StatusText(code)
		}
	}
	_ = c.JSON(code, echo.Map{"error": http.StatusText(code), "message": msg})
}
