package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/show-reservation/internal/logger"
)

// RequestLogger assigns every request an id, echoed in X-Request-ID, and
// stores a logger carrying it in the request context so domain code logs
// with logger.FromContext. One line is logged per completed request.
func RequestLogger() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            rid := req.Header.Get(echo.HeaderXRequestID)
            if _, err := uuid.Parse(rid); err != nil {
                rid = uuid.NewString()
            }
            c.Response().Header().Set(echo.HeaderXRequestID, rid)

            log := logger.With(zap.String("request_id", rid))
            c.SetRequest(req.WithContext(logger.NewContext(req.Context(), log)))

            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            log.Info("request",
                zap.String("method", req.Method),
                zap.String("route", c.Path()),
                zap.Int("status", c.Response().Status),
                zap.Duration("latency", time.Since(start)),
                zap.String("remote_ip", c.RealIP()),
            )
            return nil
        }
    }
}
