package middleware

import (
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/show-reservation/internal/config"
    "github.com/iliyamo/show-reservation/internal/utils"
)

const secret = "test-secret"

func serve(t *testing.T, e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
    t.Helper()
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func protected() *echo.Echo {
    e := echo.New()
    g := e.Group("", JWTAuth(secret))
    g.GET("/me", func(c echo.Context) error {
        id, ok := UserID(c)
        if !ok {
            return c.NoContent(http.StatusInternalServerError)
        }
        return c.JSON(http.StatusOK, echo.Map{"id": id, "role": Role(c)})
    })
    g.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireRole("ADMIN"))
    return e
}

func bearer(t *testing.T, id uint64, role string) string {
    t.Helper()
    tok, err := utils.NewAccessToken(secret, id, role, 5)
    if err != nil {
        t.Fatal(err)
    }
    return "Bearer " + tok.Token
}

func TestJWTAuth(t *testing.T) {
    e := protected()

    rec := serve(t, e, httptest.NewRequest(http.MethodGet, "/me", nil))
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("no token: %d", rec.Code)
    }

    req := httptest.NewRequest(http.MethodGet, "/me", nil)
    req.Header.Set(echo.HeaderAuthorization, "Bearer nope")
    if rec := serve(t, e, req); rec.Code != http.StatusUnauthorized {
        t.Fatalf("bad token: %d", rec.Code)
    }

    req = httptest.NewRequest(http.MethodGet, "/me", nil)
    req.Header.Set(echo.HeaderAuthorization, bearer(t, 7, "USER"))
    rec = serve(t, e, req)
    if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":7`) {
        t.Fatalf("valid token: %d %s", rec.Code, rec.Body)
    }
}

func TestRequireRole(t *testing.T) {
    e := protected()
    for role, want := range map[string]int{"USER": http.StatusForbidden, "ADMIN": http.StatusNoContent} {
        req := httptest.NewRequest(http.MethodGet, "/admin", nil)
        req.Header.Set(echo.HeaderAuthorization, bearer(t, 1, role))
        if rec := serve(t, e, req); rec.Code != want {
            t.Errorf("%s: status %d, want %d", role, rec.Code, want)
        }
    }
}

func TestRequestLoggerSetsID(t *testing.T) {
    e := echo.New()
    e.Use(RequestLogger())
    e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

    rec := serve(t, e, httptest.NewRequest(http.MethodGet, "/", nil))
    if rec.Header().Get(echo.HeaderXRequestID) == "" {
        t.Fatal("missing X-Request-ID")
    }

    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.Header.Set(echo.HeaderXRequestID, "0b3f8c1e-2c1f-4a5e-9f53-6c1b2d3e4f50")
    rec = serve(t, e, req)
    if got := rec.Header().Get(echo.HeaderXRequestID); got != "0b3f8c1e-2c1f-4a5e-9f53-6c1b2d3e4f50" {
        t.Fatalf("request id not propagated: %q", got)
    }
}

func TestRedisMiddlewaresPassThroughWithoutClient(t *testing.T) {
    e := echo.New()
    e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
        NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil),
        NewRedisCache(config.CacheConfig{Enabled: true, TTL: 1}, nil))
    for i := 0; i < 3; i++ {
        if rec := serve(t, e, httptest.NewRequest(http.MethodGet, "/x", nil)); rec.Code != http.StatusOK {
            t.Fatalf("request %d: %d", i, rec.Code)
        }
    }
}

func TestBuildRateKey(t *testing.T) {
    e := echo.New()
    c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/reservations", nil), httptest.NewRecorder())
    c.SetPath("/v1/reservations")
    c.Set(CtxUserID, uint64(12))
    got := buildRateKey(config.RateLimitConfig{Prefix: "rl:booking", KeyStrategy: "user_route"}, c)
    if got != "rl:booking:user:12:route:POST /v1/reservations" {
        t.Fatalf("key = %q", got)
    }
}

func TestPayloadCodec(t *testing.T) {
    h := http.Header{"Content-Type": {"application/json"}}
    bs, err := encodePayload(200, h, []byte(`{"a":1}`))
    if err != nil {
        t.Fatal(err)
    }
    status, hdr, body, ok := decodePayload(bs)
    if !ok || status != 200 || hdr.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
        t.Fatalf("decoded %d %v %q %v", status, hdr, body, ok)
    }
    if _, _, _, ok := decodePayload(bs[:5]); ok {
        t.Fatal("short payload decoded")
    }
}

func TestCaptureWriterOverflow(t *testing.T) {
    cw := &captureWriter{ResponseWriter: httptest.NewRecorder(), limit: 4}
    _, _ = cw.Write([]byte("abc"))
    _, _ = cw.Write([]byte("def"))
    if !cw.overflow || cw.buf.Len() != 0 {
        t.Fatalf("overflow=%v buf=%q", cw.overflow, cw.buf.String())
    }
}
