package booking

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/show-reservation/internal/events"
	"github.com/iliyamo/show-reservation/internal/logger"
	"github.com/iliyamo/show-reservation/internal/metrics"
	"github.com/iliyamo/show-reservation/internal/model"
)

// CancelResult reports the refund of a cancellation.
type CancelResult struct {
	ReservationID uint64 `json:"reservation_id"`
	BalanceBefore int64  `json:"balance_before"`
	BalanceAfter  int64  `json:"balance_after"`
}

// CancelReservation releases the seat and refunds the frozen price. Only the
// owner may cancel, and only while at least the cancellation window remains
// before the performance.
func (m *Manager) CancelReservation(ctx context.Context, userID, reservationID uint64) (CancelResult, error) {
	out, err := m.cancel(ctx, userID, reservationID)
	metrics.Cancellations.WithLabelValues(outcome(err)).Inc()
	return out, err
}

func (m *Manager) cancel(ctx context.Context, userID, reservationID uint64) (CancelResult, error) {
	const op = "cancel"
	var (
		res   model.Reservation
		out   = CancelResult{ReservationID: reservationID}
		stage = StageRequested
	)
	err := m.within(ctx, op, func(ctx context.Context) error {
		var err error
		res, err = m.reservations.GetForUpdate(ctx, reservationID)
		if isNotFound(err) || (err == nil && !res.Active()) {
			return ErrReservationNotFound
		}
		if err != nil {
			return fmt.Errorf("load reservation: %w", err)
		}
		if res.UserID != userID {
			return ErrUnauthorized
		}
		stage = StageAuthorized

		now := m.now()
		// floor(hours left) < window hours is the same as left < window
		// for a whole-hour window.
		if res.PerformanceDate.Sub(now) < m.opts.CancelWindow {
			return ErrCancellationWindowClosed
		}
		stage = StageWindowChecked

		if err := m.reservations.MarkCancelled(ctx, res.ID, now); err != nil {
			if isNotFound(err) {
				return ErrReservationNotFound
			}
			return fmt.Errorf("mark cancelled: %w", err)
		}
		id := res.ID
		out.BalanceBefore, out.BalanceAfter, err = m.ledger.Adjust(ctx, userID, res.Price, model.ReasonRefund, &id)
		return err
	})
	if err != nil {
		return CancelResult{}, abort(ctx, op, stage, err)
	}

	logger.FromContext(ctx).Info("reservation cancelled",
		zap.Uint64("reservation_id", res.ID), zap.Uint64("user_id", userID),
		zap.Int64("refund", res.Price), zap.Int64("balance_after", out.BalanceAfter))
	m.publish(ctx, events.NewReservationEvent(events.TypeCancelled, res, out.BalanceAfter, m.now()))
	return out, nil
}
