package handler // declare the package name; contains HTTP handlers

import (
    "context"  // bounded dependency checks
    "net/http" // status codes
    "time"     // check timeout

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Check probes one dependency; a nil error means healthy.
type Check func(ctx context.Context) error

// Health returns a health-check endpoint for load balancers.  With no
// checks it always answers 200 "ok".  Otherwise every check runs with a
// 2s budget and any failure turns the answer into 503 naming the failing
// dependency.
func Health(checks map[string]Check) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        failed := map[string]string{}
        for name, check := range checks {
            if err := check(ctx); err != nil {
                failed[name] = err.Error()
            }
        }
        if len(failed) > 0 {
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "failed": failed})
        }
        return c.String(http.StatusOK, "ok")
    }
}
