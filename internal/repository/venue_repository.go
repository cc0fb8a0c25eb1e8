package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/show-reservation/internal/database"
	"github.com/iliyamo/show-reservation/internal/model"
)

// VenueRepo is the MySQL VenueStore. Sections live in venue_sections and are
// rewritten as a whole on update; callers run Create/Update inside a
// transaction so the two tables never disagree.
type VenueRepo struct{ db database.DBTXContext }

func NewVenueRepo(db database.DBTXContext) *VenueRepo { return &VenueRepo{db: db} }

type venueRow struct {
	ID        uint64     `db:"id"`
	Name      string     `db:"name"`
	Address   string     `db:"address"`
	Image     string     `db:"image"`
	CreatedAt time.Time  `db:"created_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

type sectionRow struct {
	VenueID  uint64 `db:"venue_id"`
	Position int    `db:"position"`
	Label    string `db:"label"`
	Capacity int    `db:"capacity"`
}

const venueColumns = "id, name, address, image, created_at, deleted_at"

// Create inserts the venue and its sections and fills ID and CreatedAt.
func (r *VenueRepo) Create(ctx context.Context, v *model.Venue) error {
	res, err := r.db(ctx).ExecContext(ctx,
		"INSERT INTO venues (name, address, image) VALUES (?, ?, ?)", v.Name, v.Address, v.Image)
	if err != nil {
		return mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	if err := r.writeSections(ctx, v); err != nil {
		return err
	}
	var row venueRow
	if err := r.db(ctx).GetContext(ctx, &row, "SELECT "+venueColumns+" FROM venues WHERE id = ?", v.ID); err != nil {
		return mapError(err)
	}
	v.CreatedAt = row.CreatedAt
	return nil
}

// Update rewrites the venue columns and its sections.
func (r *VenueRepo) Update(ctx context.Context, v *model.Venue) error {
	res, err := r.db(ctx).ExecContext(ctx,
		"UPDATE venues SET name = ?, address = ?, image = ? WHERE id = ? AND deleted_at IS NULL",
		v.Name, v.Address, v.Image, v.ID)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, v.ID); err != nil {
			return err
		}
	}
	if _, err := r.db(ctx).ExecContext(ctx, "DELETE FROM venue_sections WHERE venue_id = ?", v.ID); err != nil {
		return mapError(err)
	}
	return r.writeSections(ctx, v)
}

func (r *VenueRepo) writeSections(ctx context.Context, v *model.Venue) error {
	if len(v.Sections) == 0 {
		return nil
	}
	rows := make([]sectionRow, 0, len(v.Sections))
	for i, s := range v.Sections {
		rows = append(rows, sectionRow{VenueID: v.ID, Position: i, Label: s.Label, Capacity: s.Capacity})
	}
	_, err := sqlx.NamedExecContext(ctx, r.db(ctx),
		"INSERT INTO venue_sections (venue_id, position, label, capacity) VALUES (:venue_id, :position, :label, :capacity)",
		rows)
	return mapError(err)
}

// SoftDelete marks the venue deleted.
func (r *VenueRepo) SoftDelete(ctx context.Context, id uint64, at time.Time) error {
	res, err := r.db(ctx).ExecContext(ctx,
		"UPDATE venues SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", at.UTC(), id)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns a live venue with its sections.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (model.Venue, error) {
	var row venueRow
	err := r.db(ctx).GetContext(ctx, &row,
		"SELECT "+venueColumns+" FROM venues WHERE id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return model.Venue{}, mapError(err)
	}
	venues, err := r.attachSections(ctx, []venueRow{row})
	if err != nil {
		return model.Venue{}, err
	}
	return venues[0], nil
}

// List returns every live venue, newest first.
func (r *VenueRepo) List(ctx context.Context) ([]model.Venue, error) {
	var rows []venueRow
	if err := r.db(ctx).SelectContext(ctx, &rows,
		"SELECT "+venueColumns+" FROM venues WHERE deleted_at IS NULL ORDER BY id DESC"); err != nil {
		return nil, mapError(err)
	}
	return r.attachSections(ctx, rows)
}

func (r *VenueRepo) attachSections(ctx context.Context, rows []venueRow) ([]model.Venue, error) {
	out := make([]model.Venue, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]uint64, 0, len(rows))
	for _, v := range rows {
		ids = append(ids, v.ID)
	}
	q, args, err := sqlx.In(
		"SELECT venue_id, position, label, capacity FROM venue_sections WHERE venue_id IN (?) ORDER BY venue_id, position", ids)
	if err != nil {
		return nil, err
	}
	var secs []sectionRow
	if err := r.db(ctx).SelectContext(ctx, &secs, r.db(ctx).Rebind(q), args...); err != nil {
		return nil, mapError(err)
	}
	byVenue := make(map[uint64][]model.Section, len(rows))
	for _, s := range secs {
		byVenue[s.VenueID] = append(byVenue[s.VenueID], model.Section{Label: s.Label, Capacity: s.Capacity})
	}
	for _, v := range rows {
		out = append(out, model.Venue{
			ID: v.ID, Name: v.Name, Address: v.Address, Image: v.Image,
			Sections: byVenue[v.ID], CreatedAt: v.CreatedAt, DeletedAt: v.DeletedAt,
		})
	}
	return out, nil
}

// ExistsByNameAddress reports whether another live venue has the same name
// and address.
func (r *VenueRepo) ExistsByNameAddress(ctx context.Context, name, address string, excludeID uint64) (bool, error) {
	var n int
	err := r.db(ctx).GetContext(ctx, &n,
		"SELECT COUNT(*) FROM venues WHERE name = ? AND address = ? AND id <> ? AND deleted_at IS NULL",
		name, address, excludeID)
	return n > 0, mapError(err)
}
