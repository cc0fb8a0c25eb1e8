// Package events carries reservation lifecycle events from the booking
// engine to the broker and from the broker to the worker's log sink.
package events

import (
    "context"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/show-reservation/internal/model"
)

// Event types.
const (
    TypeBooked    = "reservation.booked"
    TypeCancelled = "reservation.cancelled"
)

// ReservationEvent is published after a booking or cancellation commits. It
// contains enough information for consumers to log or notify without
// querying the primary database.
type ReservationEvent struct {
    EventID         string    `json:"event_id"`
    Type            string    `json:"type"`
    ReservationID   uint64    `json:"reservation_id"`
    UserID          uint64    `json:"user_id"`
    ShowID          uint64    `json:"show_id"`
    ShowName        string    `json:"show_name"`
    VenueID         uint64    `json:"venue_id"`
    PerformanceDate time.Time `json:"performance_date"`
    Section         string    `json:"section"`
    SeatNumber      int       `json:"seat_number"`
    Price           int64     `json:"price"`
    BalanceAfter    int64     `json:"balance_after"`
    OccurredAt      time.Time `json:"occurred_at"`
}

// NewReservationEvent builds an event of typ for r with a fresh id.
func NewReservationEvent(typ string, r model.Reservation, balanceAfter int64, at time.Time) ReservationEvent {
    return ReservationEvent{
        EventID:         uuid.NewString(),
        Type:            typ,
        ReservationID:   r.ID,
        UserID:          r.UserID,
        ShowID:          r.ShowID,
        ShowName:        r.ShowName,
        VenueID:         r.VenueID,
        PerformanceDate: r.PerformanceDate.UTC(),
        Section:         r.Section,
        SeatNumber:      r.SeatNumber,
        Price:           r.Price,
        BalanceAfter:    balanceAfter,
        OccurredAt:      at.UTC(),
    }
}

// Publisher hands events to a broker.
type Publisher interface {
    Publish(ctx context.Context, ev ReservationEvent) error
    Close() error
}

// Handler processes one consumed event. A returned error rejects the
// message.
type Handler func(ctx context.Context, ev ReservationEvent) error

// Nop discards events; used when EVENT_BROKER=none.
type Nop struct{}

func (Nop) Publish(context.Context, ReservationEvent) error { return nil }
func (Nop) Close() error                                    { return nil }
