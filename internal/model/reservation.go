package model

import "time"

// Reservation is one booked seat for one performance of a show. ShowName and
// Price are frozen at booking time and never follow later catalog edits; a
// refund always returns Price.
//
// A reservation is active while CancelledAt is nil. Among active
// reservations the seat key (ShowID, Section, SeatNumber) is unique.
type Reservation struct {
    ID              uint64     `db:"id" json:"id"`
    UserID          uint64     `db:"user_id" json:"user_id"`
    VenueID         uint64     `db:"venue_id" json:"venue_id"`
    ShowID          uint64     `db:"show_id" json:"show_id"`
    ShowName        string     `db:"show_name" json:"show_name"`
    Price           int64      `db:"price" json:"price"`
    PerformanceDate time.Time  `db:"performance_date" json:"performance_date"`
    Section         string     `db:"seat_section" json:"section"`
    SeatNumber      int        `db:"seat_number" json:"seat_number"`
    CreatedAt       time.Time  `db:"created_at" json:"created_at"`
    CancelledAt     *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// Active reports whether the reservation still holds its seat.
func (r Reservation) Active() bool { return r.CancelledAt == nil }
