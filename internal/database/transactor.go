package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx.
type DBTX interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// DBTXContext returns the transaction carried by ctx, or the pool when ctx
// is not inside WithinTransaction. Repositories call it on every query.
type DBTXContext func(ctx context.Context) DBTX

// Transactor scopes a unit of work. fn receives a context carrying the
// transaction; returning an error rolls everything back. A call made while
// ctx already carries a transaction joins it instead of opening a new one.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

type sqlxTransactor struct {
	db *sqlx.DB
}

// NewTransactor returns a Transactor over db together with the getter that
// repositories use to resolve their handle.
func NewTransactor(db *sqlx.DB) (Transactor, DBTXContext) {
	t := &sqlxTransactor{db: db}
	return t, func(ctx context.Context) DBTX {
		if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
			return tx
		}
		return db
	}
}

// InTransaction reports whether ctx carries an open transaction.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return ok
}

func (t *sqlxTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}
