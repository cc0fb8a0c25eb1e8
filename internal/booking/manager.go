// Package booking turns seat requests into committed reservations and back.
//
// A booking walks Requested -> Validated -> PriceComputed -> FundsChecked
// -> Committed, a cancellation Requested -> Authorized -> WindowChecked ->
// Committed. Every write of either happens inside one transaction: the
// reservation row and the ledger movement commit together or not at all.
package booking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/show-reservation/internal/database"
	"github.com/iliyamo/show-reservation/internal/errs"
	"github.com/iliyamo/show-reservation/internal/events"
	"github.com/iliyamo/show-reservation/internal/logger"
	"github.com/iliyamo/show-reservation/internal/metrics"
	"github.com/iliyamo/show-reservation/internal/model"
	"github.com/iliyamo/show-reservation/internal/repository"
)

// Stage names a step of a booking or cancellation; aborted requests are
// logged with the stage they reached.
type Stage string

const (
	StageRequested     Stage = "requested"
	StageValidated     Stage = "validated"
	StagePriceComputed Stage = "price_computed"
	StageFundsChecked  Stage = "funds_checked"
	StageAuthorized    Stage = "authorized"
	StageWindowChecked Stage = "window_checked"
	StageCommitted     Stage = "committed"
)

// Catalog is the read side of the venue and show catalog.
type Catalog interface {
	ResolveShow(ctx context.Context, showID uint64) (model.Show, error)
	ResolveVenue(ctx context.Context, venueID uint64) (model.Venue, error)
}

// Ledger moves points.
type Ledger interface {
	Balance(ctx context.Context, userID uint64) (int64, error)
	Adjust(ctx context.Context, userID uint64, delta int64, reason model.EntryReason, reservationID *uint64) (before, after int64, err error)
}

// Options bound the manager's units of work.
type Options struct {
	// TxTimeout caps one booking or cancellation transaction.
	TxTimeout time.Duration
	// CancelWindow is the minimum lead time before the performance.
	CancelWindow time.Duration
	// PublishTimeout caps the post-commit event publish.
	PublishTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.TxTimeout <= 0 {
		o.TxTimeout = 5 * time.Second
	}
	if o.CancelWindow <= 0 {
		o.CancelWindow = 3 * time.Hour
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 2 * time.Second
	}
	return o
}

// Manager runs bookings and cancellations.
type Manager struct {
	tx           database.Transactor
	catalog      Catalog
	ledger       Ledger
	reservations repository.ReservationStore
	publisher    events.Publisher
	opts         Options
	now          func() time.Time
}

// New wires a Manager. A nil publisher drops events.
func New(tx database.Transactor, c Catalog, l Ledger, reservations repository.ReservationStore, pub events.Publisher, opts Options) *Manager {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Manager{
		tx:           tx,
		catalog:      c,
		ledger:       l,
		reservations: reservations,
		publisher:    pub,
		opts:         opts.withDefaults(),
		now:          time.Now,
	}
}

// WithClock replaces the time source used for the cancellation window.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// within runs fn in a transaction bounded by the configured timeout and
// records its duration under op.
func (m *Manager) within(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, m.opts.TxTimeout)
	defer cancel()
	err := m.tx.WithinTransaction(ctx, fn)
	metrics.TxDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return translate(err)
}

// publish hands ev to the broker after commit. The reservation is already
// durable, so a failure is only logged and counted. The publish gets its own
// deadline, detached from the caller's cancellation.
func (m *Manager) publish(ctx context.Context, ev events.ReservationEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.PublishTimeout)
	defer cancel()
	if err := m.publisher.Publish(ctx, ev); err != nil {
		metrics.EventPublishFailures.Inc()
		logger.FromContext(ctx).Warn("publish reservation event failed",
			zap.String("type", ev.Type), zap.Uint64("reservation_id", ev.ReservationID), zap.Error(err))
	}
}

// abort logs a failed request at a level matching its kind and returns err.
func abort(ctx context.Context, op string, stage Stage, err error) error {
	log := logger.FromContext(ctx).With(zap.String("op", op), zap.String("stage", string(stage)), zap.Error(err))
	switch errs.KindOf(err) {
	case errs.KindFatal:
		log.Error("request aborted")
	case errs.KindValidation, errs.KindNotFound:
		log.Debug("request rejected")
	default:
		log.Warn("request aborted")
	}
	return err
}

func outcome(err error) string {
	if err == nil {
		return string(StageCommitted)
	}
	return errs.CodeOf(err)
}

func isNotFound(err error) bool { return errors.Is(err, repository.ErrNotFound) }
