package repository

import (
	"context"

	"github.com/iliyamo/show-reservation/internal/database"
	"github.com/iliyamo/show-reservation/internal/model"
)

// PointsRepo is the MySQL PointsStore over points_accounts and
// point_transactions.
type PointsRepo struct{ db database.DBTXContext }

func NewPointsRepo(db database.DBTXContext) *PointsRepo { return &PointsRepo{db: db} }

// Create opens an account with the given balance.
func (r *PointsRepo) Create(ctx context.Context, userID uint64, balance int64) error {
	_, err := r.db(ctx).ExecContext(ctx,
		"INSERT INTO points_accounts (user_id, balance) VALUES (?, ?)", userID, balance)
	return mapError(err)
}

// Get reads the account without locking.
func (r *PointsRepo) Get(ctx context.Context, userID uint64) (model.PointsAccount, error) {
	var a model.PointsAccount
	err := r.db(ctx).GetContext(ctx, &a,
		"SELECT user_id, balance, updated_at FROM points_accounts WHERE user_id = ?", userID)
	return a, mapError(err)
}

// GetForUpdate reads the account with an exclusive row lock.
func (r *PointsRepo) GetForUpdate(ctx context.Context, userID uint64) (model.PointsAccount, error) {
	var a model.PointsAccount
	err := r.db(ctx).GetContext(ctx, &a,
		"SELECT user_id, balance, updated_at FROM points_accounts WHERE user_id = ? FOR UPDATE", userID)
	return a, mapError(err)
}

// SetBalance overwrites the balance. Callers hold the row lock.
func (r *PointsRepo) SetBalance(ctx context.Context, userID uint64, balance int64) error {
	res, err := r.db(ctx).ExecContext(ctx,
		"UPDATE points_accounts SET balance = ? WHERE user_id = ?", balance, userID)
	if err != nil {
		return mapError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 when the value did not change; confirm the row exists
		if _, err := r.Get(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

// AppendEntry writes one journal row and fills its ID.
func (r *PointsRepo) AppendEntry(ctx context.Context, e *model.PointEntry) error {
	res, err := r.db(ctx).ExecContext(ctx,
		`INSERT INTO point_transactions (user_id, delta, balance_after, reason, reservation_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Delta, e.BalanceAfter, e.Reason, e.ReservationID, e.CreatedAt.UTC())
	if err != nil {
		return mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// ListEntries returns up to limit entries, newest first.
func (r *PointsRepo) ListEntries(ctx context.Context, userID uint64, limit int) ([]model.PointEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []model.PointEntry{}
	err := r.db(ctx).SelectContext(ctx, &out,
		`SELECT id, user_id, delta, balance_after, reason, reservation_id, created_at
		   FROM point_transactions WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
	return out, mapError(err)
}
