package handler // handler defines http handlers

import (
    "net/http" // status codes
    "strconv"  // path parameter parsing

    "github.com/labstack/echo/v4" // echo defines request context types
    "go.uber.org/zap"             // structured logging of unexpected failures

    "github.com/iliyamo/show-reservation/internal/errs"       // error taxonomy
    "github.com/iliyamo/show-reservation/internal/logger"     // request scoped logger
    "github.com/iliyamo/show-reservation/internal/middleware" // authenticated identity
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
    Error   string `json:"error"`
    Message string `json:"message"`
}

// statusOf maps a classified error to its HTTP status.
func statusOf(err error) int {
    switch errs.KindOf(err) {
    case errs.KindValidation:
        return http.StatusBadRequest
    case errs.KindNotFound:
        return http.StatusNotFound
    case errs.KindUnauthorized:
        if errs.CodeOf(err) == codeUnauthenticated {
            return http.StatusUnauthorized
        }
        return http.StatusForbidden
    case errs.KindBusinessRule:
        if errs.CodeOf(err) == "cancellation_window_closed" {
            return http.StatusConflict
        }
        return http.StatusBadRequest
    case errs.KindConflict, errs.KindConcurrency:
        return http.StatusConflict
    default:
        return http.StatusInternalServerError
    }
}

// writeError renders err. Unclassified errors are logged and hidden behind
// a generic message.
func writeError(c echo.Context, err error) error {
    status := statusOf(err)
    if status == http.StatusInternalServerError {
        logger.FromContext(c.Request().Context()).Error("request failed",
            zap.String("route", c.Path()), zap.Error(err))
        return c.JSON(status, errorBody{Error: "internal", Message: "internal server error"})
    }
    return c.JSON(status, errorBody{Error: errs.CodeOf(err), Message: err.Error()})
}

// badRequest answers 400 for malformed input that never reached the domain.
func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid_argument", Message: msg})
}

// getUserID returns the authenticated caller. Routes using it sit behind
// JWTAuth, so a missing id is a wiring bug reported as 401.
func getUserID(c echo.Context) (uint64, error) {
    id, ok := middleware.UserID(c)
    if !ok {
        return 0, errUnauthenticated
    }
    return id, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, errs.Validation("invalid %s", name)
    }
    return id, nil
}

const codeUnauthenticated = "unauthorized"

var (
    errUnauthenticated     = errs.New(errs.KindUnauthorized, codeUnauthenticated, "authentication required")
    errInvalidCredentials  = errs.New(errs.KindUnauthorized, codeUnauthenticated, "invalid credentials")
    errInvalidRefreshToken = errs.New(errs.KindUnauthorized, codeUnauthenticated, "invalid refresh token")
    errEmailTaken          = errs.New(errs.KindConflict, "email_exists", "email already exists")
    errNicknameTaken       = errs.New(errs.KindConflict, "nickname_exists", "nickname already exists")
)
