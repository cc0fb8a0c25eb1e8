package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/show-reservation/internal/booking"
	"github.com/iliyamo/show-reservation/internal/catalog"
	"github.com/iliyamo/show-reservation/internal/config"
	"github.com/iliyamo/show-reservation/internal/events"
	"github.com/iliyamo/show-reservation/internal/events/eventstest"
	"github.com/iliyamo/show-reservation/internal/handler"
	"github.com/iliyamo/show-reservation/internal/ledger"
	"github.com/iliyamo/show-reservation/internal/repository/memory"
)

const (
	testSecret   = "router-test-secret"
	testAdminKey = "let-me-in"
)

func newServer(t *testing.T) (*echo.Echo, *eventstest.Recorder) {
	t.Helper()
	cfg := config.Config{
		Env:            "test",
		JWTSecret:      testSecret,
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     4,
		SignupPoints:   1000000,
		AdminSignupKey: testAdminKey,
	}
	m := memory.New()
	s := m.Stores()
	tx := m.Transactor()
	rec := &eventstest.Recorder{}

	points := ledger.New(tx, s.Points)
	cat := catalog.New(tx, s.Venues, s.Shows, s.Reservations)
	bookings := booking.New(tx, cat, points, s.Reservations, rec, booking.Options{})

	e := New(Deps{
		JWTSecret:    testSecret,
		RateLimit:    config.RateLimitConfig{Enabled: true},
		Cache:        config.CacheConfig{Enabled: true, TTL: time.Minute},
		Auth:         handler.NewAuthHandler(cfg, tx, s.Users, s.Tokens, points),
		Points:       &handler.PointsHandler{Ledger: points},
		Public:       &handler.PublicHandler{Catalog: cat},
		Admin:        &handler.AdminHandler{Catalog: cat},
		Reservations: &handler.ReservationHandler{Bookings: bookings},
	})
	return e, rec
}

func call(t *testing.T, e *echo.Echo, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func register(t *testing.T, e *echo.Echo, email, adminKey string) string {
	t.Helper()
	rec := call(t, e, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email":     email,
		"nickname":  strings.Split(email, "@")[0],
		"password":  "secret123",
		"admin_key": adminKey,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, rec.Code, rec.Body.String())
	}
	var out struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}
	decode(t, rec, &out)
	return out.Access.Token
}

// seedShow creates a venue with VIP(10) and R(20) and a show three days out.
func seedShow(t *testing.T, e *echo.Echo, admin string) (showID uint64, date time.Time) {
	t.Helper()
	rec := call(t, e, http.MethodPost, "/v1/admin/venues", admin, map[string]any{
		"name":    "Grand Hall",
		"address": "1 Main St",
		"sections": []map[string]any{
			{"label": "VIP", "capacity": 10},
			{"label": "R", "capacity": 20},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create venue: %d %s", rec.Code, rec.Body.String())
	}
	var v struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &v)

	date = time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)
	rec = call(t, e, http.MethodPost, "/v1/admin/shows", admin, map[string]any{
		"name":     "Phantom",
		"category": "musical",
		"venue_id": v.ID,
		"prices":   map[string]int64{"VIP": 50000, "R": 30000},
		"dates":    []time.Time{date},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create show: %d %s", rec.Code, rec.Body.String())
	}
	var s struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &s)
	return s.ID, date
}

func balance(t *testing.T, e *echo.Echo, token string) int64 {
	t.Helper()
	rec := call(t, e, http.MethodGet, "/v1/points", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("balance: %d %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Points int64 `json:"points"`
	}
	decode(t, rec, &out)
	return out.Points
}

func TestHealthAndMetrics(t *testing.T) {
	e, _ := newServer(t)
	if rec := call(t, e, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
	if rec := call(t, e, http.MethodGet, "/metrics", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
}

func TestUnknownRouteAnswersJSON(t *testing.T) {
	e, _ := newServer(t)
	rec := call(t, e, http.MethodGet, "/v1/nowhere", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] == "" {
		t.Fatalf("body = %v", body)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	e, _ := newServer(t)
	user := register(t, e, "user@example.com", "")
	venue := map[string]any{"name": "X", "address": "Y", "sections": []map[string]any{{"label": "A", "capacity": 1}}}

	if rec := call(t, e, http.MethodPost, "/v1/admin/venues", "", venue); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: %d", rec.Code)
	}
	if rec := call(t, e, http.MethodPost, "/v1/admin/venues", user, venue); rec.Code != http.StatusForbidden {
		t.Errorf("user role: %d", rec.Code)
	}
	if rec := call(t, e, http.MethodPost, "/v1/admin/venues", "not-a-jwt", venue); rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: %d", rec.Code)
	}
}

func TestBookAndCancelOverHTTP(t *testing.T) {
	e, rec := newServer(t)
	admin := register(t, e, "admin@example.com", testAdminKey)
	alice := register(t, e, "alice@example.com", "")
	bob := register(t, e, "bob@example.com", "")
	showID, date := seedShow(t, e, admin)

	if got := balance(t, e, alice); got != 1000000 {
		t.Fatalf("signup balance = %d", got)
	}

	book := map[string]any{
		"show_id":          showID,
		"performance_date": date.Format(time.RFC3339),
		"section":          "VIP",
		"seat_number":      5,
	}
	r := call(t, e, http.MethodPost, "/v1/reservations", alice, book)
	if r.Code != http.StatusCreated {
		t.Fatalf("book: %d %s", r.Code, r.Body.String())
	}
	var res struct {
		ID    uint64 `json:"id"`
		Price int64  `json:"price"`
	}
	decode(t, r, &res)
	if res.Price != 50000 {
		t.Errorf("price = %d", res.Price)
	}
	if got := balance(t, e, alice); got != 950000 {
		t.Errorf("balance after booking = %d", got)
	}

	// same seat for someone else
	r = call(t, e, http.MethodPost, "/v1/reservations", bob, book)
	if r.Code != http.StatusConflict {
		t.Fatalf("double booking: %d %s", r.Code, r.Body.String())
	}

	r = call(t, e, http.MethodGet, fmt.Sprintf("/v1/shows/%d/availability", showID), "", nil)
	var avail struct {
		Sections []catalog.SectionAvailability `json:"sections"`
	}
	decode(t, r, &avail)
	for _, s := range avail.Sections {
		if s.Label == "VIP" && (s.Booked != 1 || s.Available != 9) {
			t.Errorf("VIP availability = %+v", s)
		}
	}

	path := fmt.Sprintf("/v1/reservations/%d", res.ID)
	if r := call(t, e, http.MethodGet, path, bob, nil); r.Code != http.StatusNotFound {
		t.Errorf("foreign get: %d", r.Code)
	}
	if r := call(t, e, http.MethodDelete, path, bob, nil); r.Code != http.StatusForbidden {
		t.Errorf("foreign cancel: %d", r.Code)
	}
	if r := call(t, e, http.MethodDelete, path, alice, nil); r.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", r.Code, r.Body.String())
	}
	if got := balance(t, e, alice); got != 1000000 {
		t.Errorf("balance after refund = %d", got)
	}
	if r := call(t, e, http.MethodDelete, path, alice, nil); r.Code != http.StatusNotFound {
		t.Errorf("second cancel: %d", r.Code)
	}

	evs := rec.Events()
	if len(evs) != 2 || evs[0].Type != events.TypeBooked || evs[1].Type != events.TypeCancelled {
		t.Fatalf("events = %+v", evs)
	}
}

func TestBookingValidationStatuses(t *testing.T) {
	e, _ := newServer(t)
	admin := register(t, e, "admin@example.com", testAdminKey)
	user := register(t, e, "carol@example.com", "")
	showID, date := seedShow(t, e, admin)

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"unknown show", map[string]any{"show_id": showID + 100, "performance_date": date, "section": "VIP", "seat_number": 1}, http.StatusNotFound},
		{"unknown section", map[string]any{"show_id": showID, "performance_date": date, "section": "Z", "seat_number": 1}, http.StatusBadRequest},
		{"seat out of range", map[string]any{"show_id": showID, "performance_date": date, "section": "VIP", "seat_number": 11}, http.StatusBadRequest},
		{"date not scheduled", map[string]any{"show_id": showID, "performance_date": date.Add(time.Hour), "section": "VIP", "seat_number": 1}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if r := call(t, e, http.MethodPost, "/v1/reservations", user, tc.body); r.Code != tc.want {
				t.Fatalf("status = %d, want %d: %s", r.Code, tc.want, r.Body.String())
			}
		})
	}

	// admins browse and manage but do not book
	if r := call(t, e, http.MethodPost, "/v1/reservations", admin, cases[0].body); r.Code != http.StatusForbidden {
		t.Errorf("admin booking: %d", r.Code)
	}
}

func TestLoginRefreshLogout(t *testing.T) {
	e, _ := newServer(t)
	register(t, e, "dave@example.com", "")

	r := call(t, e, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "dave@example.com", "password": "wrong-pass"})
	if r.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", r.Code)
	}
	r = call(t, e, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "dave@example.com", "password": "secret123"})
	if r.Code != http.StatusOK {
		t.Fatalf("login: %d %s", r.Code, r.Body.String())
	}
	var out struct {
		Access  struct{ Token string } `json:"access"`
		Refresh struct{ Token string } `json:"refresh"`
	}
	decode(t, r, &out)

	if r := call(t, e, http.MethodGet, "/v1/me", out.Access.Token, nil); r.Code != http.StatusOK {
		t.Fatalf("me: %d", r.Code)
	}
	r = call(t, e, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": out.Refresh.Token})
	if r.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", r.Code, r.Body.String())
	}
	// rotated: the old refresh token is spent
	if r := call(t, e, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": out.Refresh.Token}); r.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh: %d", r.Code)
	}
}
