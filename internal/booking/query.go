package booking

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/show-reservation/internal/catalog"
	"github.com/iliyamo/show-reservation/internal/model"
)

// Detail is a reservation joined with its venue.
type Detail struct {
	ID              uint64    `json:"reservation_id"`
	ShowID          uint64    `json:"show_id"`
	ShowName        string    `json:"show_name"`
	VenueName       string    `json:"venue_name"`
	VenueAddress    string    `json:"venue_address"`
	PerformanceDate time.Time `json:"performance_date"`
	Section         string    `json:"section"`
	SeatNumber      int       `json:"seat_number"`
	Price           int64     `json:"price"`
	CreatedAt       time.Time `json:"created_at"`
}

// ListReservations returns the user's active reservations, newest first.
func (m *Manager) ListReservations(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return m.reservations.ListActiveByUser(ctx, userID)
}

// GetReservation returns one active reservation of userID. Reservations of
// other users are reported as not found.
func (m *Manager) GetReservation(ctx context.Context, userID, reservationID uint64) (Detail, error) {
	r, err := m.reservations.GetByID(ctx, reservationID)
	if isNotFound(err) || (err == nil && (!r.Active() || r.UserID != userID)) {
		return Detail{}, ErrReservationNotFound
	}
	if err != nil {
		return Detail{}, err
	}
	d := Detail{
		ID:              r.ID,
		ShowID:          r.ShowID,
		ShowName:        r.ShowName,
		PerformanceDate: r.PerformanceDate,
		Section:         r.Section,
		SeatNumber:      r.SeatNumber,
		Price:           r.Price,
		CreatedAt:       r.CreatedAt,
	}
	venue, err := m.catalog.ResolveVenue(ctx, r.VenueID)
	switch {
	case err == nil:
		d.VenueName, d.VenueAddress = venue.Name, venue.Address
	case errors.Is(err, catalog.ErrVenueNotFound):
		// venue retired after booking; the reservation still stands
	default:
		return Detail{}, err
	}
	return d, nil
}
