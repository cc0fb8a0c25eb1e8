package booking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/show-reservation/internal/catalog"
	"github.com/iliyamo/show-reservation/internal/events"
	"github.com/iliyamo/show-reservation/internal/logger"
	"github.com/iliyamo/show-reservation/internal/metrics"
	"github.com/iliyamo/show-reservation/internal/model"
)

// BookRequest asks for one seat at one performance.
type BookRequest struct {
	UserID          uint64
	ShowID          uint64
	PerformanceDate time.Time
	Section         string
	SeatNumber      int
}

// BookSeat reserves the seat and debits its price. On success the returned
// reservation carries the name and price frozen at booking time.
func (m *Manager) BookSeat(ctx context.Context, req BookRequest) (model.Reservation, error) {
	res, err := m.bookSeat(ctx, req)
	metrics.Bookings.WithLabelValues(outcome(err)).Inc()
	return res, err
}

func (m *Manager) bookSeat(ctx context.Context, req BookRequest) (model.Reservation, error) {
	const op = "book"
	stage := StageRequested
	if req.UserID == 0 || req.ShowID == 0 || req.Section == "" {
		return model.Reservation{}, abort(ctx, op, stage, ErrInvalidRequest)
	}

	show, err := m.catalog.ResolveShow(ctx, req.ShowID)
	if err != nil {
		return model.Reservation{}, abort(ctx, op, stage, err)
	}
	date := req.PerformanceDate.UTC().Truncate(time.Second)
	if !show.HasDate(date) {
		return model.Reservation{}, abort(ctx, op, stage, ErrInvalidDate)
	}
	stage = StageValidated

	venue, err := m.catalog.ResolveVenue(ctx, show.VenueID)
	if err != nil {
		return model.Reservation{}, abort(ctx, op, stage, err)
	}
	section, ok := venue.Section(req.Section)
	if !ok {
		return model.Reservation{}, abort(ctx, op, stage, ErrInvalidSection)
	}
	// non-positive seat numbers carry no numeric bound
	if req.SeatNumber > 0 && req.SeatNumber > section.Capacity {
		return model.Reservation{}, abort(ctx, op, stage, ErrInvalidSeat)
	}
	price, err := catalog.PriceForSection(show, venue, req.Section)
	if err != nil {
		return model.Reservation{}, abort(ctx, op, stage, err)
	}
	stage = StagePriceComputed

	// Pre-flight only; Adjust below is the authoritative check.
	balance, err := m.ledger.Balance(ctx, req.UserID)
	if err != nil {
		return model.Reservation{}, abort(ctx, op, stage, err)
	}
	if balance < price {
		return model.Reservation{}, abort(ctx, op, stage, ErrInsufficientFunds)
	}
	stage = StageFundsChecked

	res := model.Reservation{
		UserID:          req.UserID,
		VenueID:         venue.ID,
		ShowID:          show.ID,
		ShowName:        show.Name,
		Price:           price,
		PerformanceDate: date,
		Section:         req.Section,
		SeatNumber:      req.SeatNumber,
	}
	var after int64
	err = m.within(ctx, op, func(ctx context.Context) error {
		held, err := m.reservations.FindActiveByKey(ctx, res.ShowID, res.Section, res.SeatNumber)
		if err != nil {
			return fmt.Errorf("seat lookup: %w", err)
		}
		if held != nil {
			return ErrSeatAlreadyBooked
		}
		if err := m.reservations.Insert(ctx, &res); err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		id := res.ID
		_, after, err = m.ledger.Adjust(ctx, res.UserID, -price, model.ReasonBooking, &id)
		return err
	})
	if err != nil {
		return model.Reservation{}, abort(ctx, op, stage, err)
	}

	logger.FromContext(ctx).Info("seat booked",
		zap.Uint64("reservation_id", res.ID), zap.Uint64("user_id", res.UserID),
		zap.Uint64("show_id", res.ShowID), zap.String("section", res.Section),
		zap.Int("seat_number", res.SeatNumber), zap.Int64("price", res.Price))
	m.publish(ctx, events.NewReservationEvent(events.TypeBooked, res, after, m.now()))
	return res, nil
}
