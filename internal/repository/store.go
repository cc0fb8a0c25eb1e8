package repository

import (
	"context"
	"time"

	"github.com/iliyamo/show-reservation/internal/model"
)

// Every method runs against the transaction carried by ctx when there is one.

// UserStore persists user identities.
type UserStore interface {
	// Create inserts u and fills its ID. Returns ErrEmailExists or
	// ErrNicknameExists on collisions.
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	// ValidateRefresh returns the owning user of a live token or ErrNotFound.
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// PointsStore persists balances and their journal.
type PointsStore interface {
	Create(ctx context.Context, userID uint64, balance int64) error
	Get(ctx context.Context, userID uint64) (model.PointsAccount, error)
	// GetForUpdate reads the account and holds a write lock on it until the
	// enclosing transaction ends.
	GetForUpdate(ctx context.Context, userID uint64) (model.PointsAccount, error)
	SetBalance(ctx context.Context, userID uint64, balance int64) error
	AppendEntry(ctx context.Context, e *model.PointEntry) error
	// ListEntries returns the newest entries first.
	ListEntries(ctx context.Context, userID uint64, limit int) ([]model.PointEntry, error)
}

// VenueStore persists venues and their sections. Logically deleted venues
// are invisible to every read.
type VenueStore interface {
	Create(ctx context.Context, v *model.Venue) error
	Update(ctx context.Context, v *model.Venue) error
	SoftDelete(ctx context.Context, id uint64, at time.Time) error
	GetByID(ctx context.Context, id uint64) (model.Venue, error)
	List(ctx context.Context) ([]model.Venue, error)
	// ExistsByNameAddress ignores the venue with id excludeID.
	ExistsByNameAddress(ctx context.Context, name, address string, excludeID uint64) (bool, error)
}

// ShowStore persists shows with their dates and prices. Logically deleted
// shows are invisible to every read.
type ShowStore interface {
	Create(ctx context.Context, s *model.Show) error
	Update(ctx context.Context, s *model.Show) error
	SoftDelete(ctx context.Context, id uint64, at time.Time) error
	GetByID(ctx context.Context, id uint64) (model.Show, error)
	// List returns shows of the category, all when category is empty,
	// newest first.
	List(ctx context.Context, category model.Category) ([]model.Show, error)
	// Search matches name substrings case-insensitively, newest first.
	Search(ctx context.Context, keyword string) ([]model.Show, error)
	ExistsDuplicate(ctx context.Context, name string, venueID uint64, earliest time.Time, excludeID uint64) (bool, error)
	CountByVenue(ctx context.Context, venueID uint64) (int, error)
}

// ReservationStore is the durable record of bookings and the seat conflict
// index over them.
type ReservationStore interface {
	// Insert fills r.ID and r.CreatedAt. It returns ErrDuplicateKey when an
	// active reservation already holds the seat key.
	Insert(ctx context.Context, r *model.Reservation) error
	// FindActiveByKey returns the active reservation holding the seat key,
	// or nil when the seat is free.
	FindActiveByKey(ctx context.Context, showID uint64, section string, seatNumber int) (*model.Reservation, error)
	GetByID(ctx context.Context, id uint64) (model.Reservation, error)
	// GetForUpdate locks the reservation row until the transaction ends.
	GetForUpdate(ctx context.Context, id uint64) (model.Reservation, error)
	MarkCancelled(ctx context.Context, id uint64, at time.Time) error
	// ListActiveByUser returns the user's active reservations, newest first.
	ListActiveByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
	CountActiveBySection(ctx context.Context, showID uint64) (map[string]int, error)
}
