// Package ledger owns points balances. Every balance change is a signed delta
// applied under a row lock and journalled in the same transaction, so the sum
// of a user's entries always equals the balance.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/show-reservation/internal/database"
	"github.com/iliyamo/show-reservation/internal/errs"
	"github.com/iliyamo/show-reservation/internal/metrics"
	"github.com/iliyamo/show-reservation/internal/model"
	"github.com/iliyamo/show-reservation/internal/repository"
)

// MaxChargeAmount caps a single top-up.
const MaxChargeAmount int64 = 1000000

var (
	ErrAccountNotFound   = errs.New(errs.KindNotFound, "account_not_found", "points account not found")
	ErrInsufficientFunds = errs.New(errs.KindBusinessRule, "insufficient_funds", "insufficient points")
	ErrInvalidAmount     = errs.New(errs.KindValidation, "invalid_amount", fmt.Sprintf("amount must be between 1 and %d", MaxChargeAmount))
)

// Ledger applies and reads balance movements.
type Ledger struct {
	tx       database.Transactor
	accounts repository.PointsStore
}

func New(tx database.Transactor, accounts repository.PointsStore) *Ledger {
	return &Ledger{tx: tx, accounts: accounts}
}

// Balance returns the current balance of userID.
func (l *Ledger) Balance(ctx context.Context, userID uint64) (int64, error) {
	acc, err := l.accounts.Get(ctx, userID)
	if err != nil {
		return 0, notFound(err)
	}
	return acc.Balance, nil
}

// Open creates the account of a new user with an initial grant. It joins
// the transaction in ctx so the user row and the account commit together.
func (l *Ledger) Open(ctx context.Context, userID uint64, initial int64) error {
	if initial < 0 {
		return errs.Validation("initial balance must not be negative")
	}
	return l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := l.accounts.Create(ctx, userID, initial); err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		if err := l.accounts.AppendEntry(ctx, &model.PointEntry{
			UserID:       userID,
			Delta:        initial,
			BalanceAfter: initial,
			Reason:       model.ReasonSignup,
		}); err != nil {
			return fmt.Errorf("append signup entry: %w", err)
		}
		metrics.PointsMoved.WithLabelValues(string(model.ReasonSignup)).Add(float64(initial))
		return nil
	})
}

// Adjust applies delta to the balance of userID and journals it. The
// account row stays locked until the enclosing transaction ends; when ctx
// carries none, Adjust runs in its own.
func (l *Ledger) Adjust(ctx context.Context, userID uint64, delta int64, reason model.EntryReason, reservationID *uint64) (before, after int64, err error) {
	err = l.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		acc, err := l.accounts.GetForUpdate(ctx, userID)
		if err != nil {
			return notFound(err)
		}
		before = acc.Balance
		after = before + delta
		if after < 0 {
			return ErrInsufficientFunds
		}
		if err := l.accounts.SetBalance(ctx, userID, after); err != nil {
			return fmt.Errorf("set balance: %w", err)
		}
		if err := l.accounts.AppendEntry(ctx, &model.PointEntry{
			UserID:        userID,
			Delta:         delta,
			BalanceAfter:  after,
			Reason:        reason,
			ReservationID: reservationID,
		}); err != nil {
			return fmt.Errorf("append entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	moved := delta
	if moved < 0 {
		moved = -moved
	}
	metrics.PointsMoved.WithLabelValues(string(reason)).Add(float64(moved))
	return before, after, nil
}

// Charge tops up the balance of userID by amount.
func (l *Ledger) Charge(ctx context.Context, userID uint64, amount int64) (before, after int64, err error) {
	if amount <= 0 || amount > MaxChargeAmount {
		return 0, 0, ErrInvalidAmount
	}
	return l.Adjust(ctx, userID, amount, model.ReasonCharge, nil)
}

// History returns the newest entries of userID, at most limit (default 50).
func (l *Ledger) History(ctx context.Context, userID uint64, limit int) ([]model.PointEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if _, err := l.accounts.Get(ctx, userID); err != nil {
		return nil, notFound(err)
	}
	return l.accounts.ListEntries(ctx, userID, limit)
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAccountNotFound
	}
	return err
}
