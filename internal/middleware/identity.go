package middleware

// identity.go holds the context keys JWTAuth fills and the accessors
// handlers and other middleware use to read them back.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
    CtxUserID = "user_id"
    CtxRole   = "role"
)

// UserID returns the authenticated user's id. ok is false on routes not
// behind JWTAuth.
func UserID(c echo.Context) (id uint64, ok bool) {
    id, ok = c.Get(CtxUserID).(uint64)
    return id, ok && id != 0
}

// Role returns the authenticated user's role, "" when unauthenticated.
func Role(c echo.Context) string {
    r, _ := c.Get(CtxRole).(string)
    return r
}

// currentUserID renders the user id for cache and rate limit keys; "anon"
// when the request is unauthenticated.
func currentUserID(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
