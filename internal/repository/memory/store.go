// Package memory is an in-process implementation of the repository stores.
// All state lives in one Store guarded by a single lock; a transaction holds
// that lock for its whole duration and records undo steps so a failed unit
// of work leaves no trace. Lock acquisition honours the context deadline and
// reports repository.ErrConflict when it expires, the same signal MySQL
// gives on a lock wait timeout.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/show-reservation/internal/database"
	"github.com/iliyamo/show-reservation/internal/model"
	"github.com/iliyamo/show-reservation/internal/repository"
)

// Store holds every table.
type Store struct {
	sem chan struct{}
	now func() time.Time

	nextID map[string]uint64

	users        map[uint64]model.User
	tokens       map[string]model.RefreshToken
	accounts     map[uint64]model.PointsAccount
	entries      []model.PointEntry
	venues       map[uint64]model.Venue
	shows        map[uint64]model.Show
	reservations map[uint64]model.Reservation
}

// Option customises a Store.
type Option func(*Store)

// WithClock sets the time source used for created_at columns.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		sem:          make(chan struct{}, 1),
		now:          time.Now,
		nextID:       map[string]uint64{},
		users:        map[uint64]model.User{},
		tokens:       map[string]model.RefreshToken{},
		accounts:     map[uint64]model.PointsAccount{},
		venues:       map[uint64]model.Venue{},
		shows:        map[uint64]model.Show{},
		reservations: map[uint64]model.Reservation{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type txKey struct{ s *Store }

type tx struct {
	undo []func()
}

func (t *tx) onRollback(f func()) { t.undo = append(t.undo, f) }

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", repository.ErrConflict, ctx.Err())
	}
}

func (s *Store) release() { <-s.sem }

// do runs fn under the store lock, joining the transaction carried by ctx
// when there is one. Outside a transaction a failing fn is rolled back on
// its own.
func (s *Store) do(ctx context.Context, fn func(t *tx) error) error {
	if t, ok := ctx.Value(txKey{s}).(*tx); ok {
		return fn(t)
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	t := &tx{}
	if err := fn(t); err != nil {
		t.rollback()
		return err
	}
	return nil
}

func (s *Store) id(table string) uint64 {
	s.nextID[table]++
	return s.nextID[table]
}

// Transactor returns the database.Transactor for this store.
func (s *Store) Transactor() database.Transactor { return transactor{s} }

type transactor struct{ s *Store }

func (t transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	s := t.s
	if _, ok := ctx.Value(txKey{s}).(*tx); ok {
		return fn(ctx)
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	cur := &tx{}
	defer func() {
		if p := recover(); p != nil {
			cur.rollback()
			panic(p)
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{s}, cur)); err != nil {
		cur.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		cur.rollback()
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	}
	return nil
}

// Stores bundles the per-table views of one Store.
type Stores struct {
	Users        repository.UserStore
	Tokens       repository.TokenStore
	Points       repository.PointsStore
	Venues       repository.VenueStore
	Shows        repository.ShowStore
	Reservations repository.ReservationStore
}

// Stores returns every table view of s.
func (s *Store) Stores() Stores {
	return Stores{
		Users:        users{s},
		Tokens:       tokens{s},
		Points:       points{s},
		Venues:       venues{s},
		Shows:        shows{s},
		Reservations: reservations{s},
	}
}
