package database

import (
	"strings"
	"testing"
)

func TestStatementsCoverSchema(t *testing.T) {
	stmts := Statements()
	want := []string{"users", "refresh_tokens", "points_accounts", "point_transactions",
		"venues", "venue_sections", "shows", "show_dates", "show_prices", "reservations"}
	if len(stmts) != len(want) {
		t.Fatalf("got %d statements, want %d", len(stmts), len(want))
	}
	for i, table := range want {
		if !strings.HasPrefix(stmts[i], "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("statement %d does not create %s: %.60s", i, table, stmts[i])
		}
	}
}

func TestReservationSeatKeyIsUniqueWhileActive(t *testing.T) {
	var res string
	for _, s := range Statements() {
		if strings.Contains(s, "TABLE IF NOT EXISTS reservations") {
			res = s
		}
	}
	if !strings.Contains(res, "UNIQUE KEY uq_active_seat (show_id, seat_section, seat_number, active_marker)") {
		t.Fatal("reservations table lost its active seat key")
	}
	if !strings.Contains(res, "IF(cancelled_at IS NULL, 1, NULL)") {
		t.Fatal("active marker must be NULL once cancelled")
	}
	// seats numbered zero or below are bookable
	if strings.Contains(res, "seat_number      INT UNSIGNED") {
		t.Fatal("seat_number must be signed")
	}
}
