package repository

import (
	"context"
	"time"

	"github.com/iliyamo/show-reservation/internal/database"
	"github.com/iliyamo/show-reservation/internal/model"
)

// ReservationRepo is the MySQL ReservationStore. The seat conflict index is
// the unique key uq_active_seat over (show_id, seat_section, seat_number,
// active_marker); active_marker is NULL once a reservation is cancelled, so
// cancelled rows never block a seat. All timestamp fields are stored in UTC.
type ReservationRepo struct{ db database.DBTXContext }

// NewReservationRepo returns a new ReservationRepo bound to the handle getter.
func NewReservationRepo(db database.DBTXContext) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, user_id, venue_id, show_id, show_name, price, performance_date,
	seat_section, seat_number, created_at, cancelled_at`

// Insert stores a new reservation inside the caller's transaction. A second
// active reservation for the same seat key fails with ErrDuplicateKey; when
// another transaction holds an uncommitted insert for the key, MySQL blocks
// until that transaction ends and then reports the duplicate or lets this
// insert through.
func (r *ReservationRepo) Insert(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
	           (user_id, venue_id, show_id, show_name, price, performance_date, seat_section, seat_number)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db(ctx).ExecContext(ctx, q,
		res.UserID, res.VenueID, res.ShowID, res.ShowName, res.Price,
		res.PerformanceDate.UTC(), res.Section, res.SeatNumber)
	if err != nil {
		return mapError(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	// Query back the row to populate created_at
	stored, err := r.GetByID(ctx, res.ID)
	if err != nil {
		return err
	}
	res.CreatedAt = stored.CreatedAt
	return nil
}

// FindActiveByKey answers whether the seat is held. The read is a plain
// consistent read; the unique key on insert is what serializes concurrent
// bookers of the same seat.
func (r *ReservationRepo) FindActiveByKey(ctx context.Context, showID uint64, section string, seatNumber int) (*model.Reservation, error) {
	var res model.Reservation
	err := r.db(ctx).GetContext(ctx, &res,
		"SELECT "+reservationColumns+` FROM reservations
		  WHERE show_id = ? AND seat_section = ? AND seat_number = ? AND cancelled_at IS NULL LIMIT 1`,
		showID, section, seatNumber)
	if err != nil {
		if err = mapError(err); err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

// GetByID returns a reservation whether active or cancelled.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	var res model.Reservation
	err := r.db(ctx).GetContext(ctx, &res, "SELECT "+reservationColumns+" FROM reservations WHERE id = ?", id)
	return res, mapError(err)
}

// GetForUpdate returns the reservation and locks its row.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	var res model.Reservation
	err := r.db(ctx).GetContext(ctx, &res, "SELECT "+reservationColumns+" FROM reservations WHERE id = ? FOR UPDATE", id)
	return res, mapError(err)
}

// MarkCancelled releases the seat by setting cancelled_at.
func (r *ReservationRepo) MarkCancelled(ctx context.Context, id uint64, at time.Time) error {
	res, err := r.db(ctx).ExecContext(ctx,
		"UPDATE reservations SET cancelled_at = ? WHERE id = ? AND cancelled_at IS NULL", at.UTC(), id)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActiveByUser returns the user's active reservations, newest first.
func (r *ReservationRepo) ListActiveByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	out := []model.Reservation{}
	err := r.db(ctx).SelectContext(ctx, &out,
		"SELECT "+reservationColumns+` FROM reservations
		  WHERE user_id = ? AND cancelled_at IS NULL ORDER BY created_at DESC, id DESC`, userID)
	return out, mapError(err)
}

// CountActiveBySection counts held seats per section for a show.
func (r *ReservationRepo) CountActiveBySection(ctx context.Context, showID uint64) (map[string]int, error) {
	var rows []struct {
		Section string `db:"seat_section"`
		N       int    `db:"n"`
	}
	err := r.db(ctx).SelectContext(ctx, &rows,
		`SELECT seat_section, COUNT(*) AS n FROM reservations
		  WHERE show_id = ? AND cancelled_at IS NULL GROUP BY seat_section`, showID)
	if err != nil {
		return nil, mapError(err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Section] = row.N
	}
	return out, nil
}
