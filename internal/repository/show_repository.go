// Package repository contains data access logic for Show domain operations. This file defines
// the MySQL ShowStore. A show row carries its identity and browse fields; the
// performance dates live in show_dates and the per-section prices in
// show_prices, both rewritten as a whole on update.
package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/show-reservation/internal/database"
	"github.com/iliyamo/show-reservation/internal/model"
)

// ShowRepo manages persistence for shows.
type ShowRepo struct{ db database.DBTXContext }

// NewShowRepo constructs a ShowRepo with the given handle getter.
func NewShowRepo(db database.DBTXContext) *ShowRepo { return &ShowRepo{db: db} }

type showRow struct {
	ID           uint64     `db:"id"`
	Name         string     `db:"name"`
	Category     string     `db:"category"`
	VenueID      uint64     `db:"venue_id"`
	Detail       string     `db:"detail"`
	Image        string     `db:"image"`
	EarliestDate time.Time  `db:"earliest_date"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

type showDateRow struct {
	ShowID uint64    `db:"show_id"`
	Date   time.Time `db:"performance_date"`
}

type showPriceRow struct {
	ShowID  uint64 `db:"show_id"`
	Section string `db:"section_label"`
	Price   int64  `db:"price"`
}

const showColumns = "id, name, category, venue_id, detail, image, earliest_date, created_at, updated_at, deleted_at"

// Create inserts a new show with its dates and prices and assigns the
// generated ID and timestamps back to s.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
	const q = `INSERT INTO shows (name, category, venue_id, detail, image, earliest_date) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db(ctx).ExecContext(ctx, q, s.Name, string(s.Category), s.VenueID, s.Detail, s.Image, s.EarliestDate.UTC())
	if err != nil {
		return mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	if err := r.writeChildren(ctx, s); err != nil {
		return err
	}
	return r.reloadTimestamps(ctx, s)
}

// Update rewrites a live show together with its dates and prices.
func (r *ShowRepo) Update(ctx context.Context, s *model.Show) error {
	const q = `UPDATE shows SET name = ?, category = ?, venue_id = ?, detail = ?, image = ?, earliest_date = ?
	           WHERE id = ? AND deleted_at IS NULL`
	res, err := r.db(ctx).ExecContext(ctx, q, s.Name, string(s.Category), s.VenueID, s.Detail, s.Image, s.EarliestDate.UTC(), s.ID)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := r.db(ctx).GetContext(ctx, &exists, "SELECT 1 FROM shows WHERE id = ? AND deleted_at IS NULL", s.ID); err != nil {
			return mapError(err)
		}
	}
	for _, del := range []string{"DELETE FROM show_dates WHERE show_id = ?", "DELETE FROM show_prices WHERE show_id = ?"} {
		if _, err := r.db(ctx).ExecContext(ctx, del, s.ID); err != nil {
			return mapError(err)
		}
	}
	if err := r.writeChildren(ctx, s); err != nil {
		return err
	}
	return r.reloadTimestamps(ctx, s)
}

func (r *ShowRepo) writeChildren(ctx context.Context, s *model.Show) error {
	if len(s.Dates) > 0 {
		dates := make([]showDateRow, 0, len(s.Dates))
		for _, d := range s.Dates {
			dates = append(dates, showDateRow{ShowID: s.ID, Date: d.UTC()})
		}
		if _, err := sqlx.NamedExecContext(ctx, r.db(ctx),
			"INSERT INTO show_dates (show_id, performance_date) VALUES (:show_id, :performance_date)", dates); err != nil {
			return mapError(err)
		}
	}
	if len(s.Prices) > 0 {
		prices := make([]showPriceRow, 0, len(s.Prices))
		for label, p := range s.Prices {
			prices = append(prices, showPriceRow{ShowID: s.ID, Section: label, Price: p})
		}
		if _, err := sqlx.NamedExecContext(ctx, r.db(ctx),
			"INSERT INTO show_prices (show_id, section_label, price) VALUES (:show_id, :section_label, :price)", prices); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *ShowRepo) reloadTimestamps(ctx context.Context, s *model.Show) error {
	var row showRow
	if err := r.db(ctx).GetContext(ctx, &row, "SELECT "+showColumns+" FROM shows WHERE id = ?", s.ID); err != nil {
		return mapError(err)
	}
	s.CreatedAt, s.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

// SoftDelete marks the show deleted.
func (r *ShowRepo) SoftDelete(ctx context.Context, id uint64, at time.Time) error {
	res, err := r.db(ctx).ExecContext(ctx,
		"UPDATE shows SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", at.UTC(), id)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a live show by its ID. It returns ErrNotFound if there
// is no matching row.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (model.Show, error) {
	var row showRow
	err := r.db(ctx).GetContext(ctx, &row,
		"SELECT "+showColumns+" FROM shows WHERE id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return model.Show{}, mapError(err)
	}
	shows, err := r.hydrate(ctx, []showRow{row})
	if err != nil {
		return model.Show{}, err
	}
	return shows[0], nil
}

// List returns live shows of one category, or of all categories when
// category is empty, newest first.
func (r *ShowRepo) List(ctx context.Context, category model.Category) ([]model.Show, error) {
	q := "SELECT " + showColumns + " FROM shows WHERE deleted_at IS NULL"
	var args []any
	if category != "" {
		q += " AND category = ?"
		args = append(args, string(category))
	}
	q += " ORDER BY id DESC"
	var rows []showRow
	if err := r.db(ctx).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, mapError(err)
	}
	return r.hydrate(ctx, rows)
}

// ExistsDuplicate reports whether another live show shares name, venue and
// earliest date.
func (r *ShowRepo) ExistsDuplicate(ctx context.Context, name string, venueID uint64, earliest time.Time, excludeID uint64) (bool, error) {
	var n int
	err := r.db(ctx).GetContext(ctx, &n,
		`SELECT COUNT(*) FROM shows
		  WHERE name = ? AND venue_id = ? AND earliest_date = ? AND id <> ? AND deleted_at IS NULL`,
		name, venueID, earliest.UTC(), excludeID)
	return n > 0, mapError(err)
}

// CountByVenue counts live shows hosted by the venue.
func (r *ShowRepo) CountByVenue(ctx context.Context, venueID uint64) (int, error) {
	var n int
	err := r.db(ctx).GetContext(ctx, &n,
		"SELECT COUNT(*) FROM shows WHERE venue_id = ? AND deleted_at IS NULL", venueID)
	return n, mapError(err)
}

// hydrate loads dates and prices for rows with two IN queries.
func (r *ShowRepo) hydrate(ctx context.Context, rows []showRow) ([]model.Show, error) {
	out := make([]model.Show, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]uint64, 0, len(rows))
	for _, s := range rows {
		ids = append(ids, s.ID)
	}

	q, args, err := sqlx.In("SELECT show_id, performance_date FROM show_dates WHERE show_id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var dates []showDateRow
	if err := r.db(ctx).SelectContext(ctx, &dates, r.db(ctx).Rebind(q), args...); err != nil {
		return nil, mapError(err)
	}
	q, args, err = sqlx.In("SELECT show_id, section_label, price FROM show_prices WHERE show_id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var prices []showPriceRow
	if err := r.db(ctx).SelectContext(ctx, &prices, r.db(ctx).Rebind(q), args...); err != nil {
		return nil, mapError(err)
	}

	datesByShow := make(map[uint64][]time.Time, len(rows))
	for _, d := range dates {
		datesByShow[d.ShowID] = append(datesByShow[d.ShowID], d.Date.UTC())
	}
	pricesByShow := make(map[uint64]map[string]int64, len(rows))
	for _, p := range prices {
		if pricesByShow[p.ShowID] == nil {
			pricesByShow[p.ShowID] = map[string]int64{}
		}
		pricesByShow[p.ShowID][p.Section] = p.Price
	}

	for _, s := range rows {
		ds := datesByShow[s.ID]
		sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
		out = append(out, model.Show{
			ID: s.ID, Name: s.Name, Category: model.Category(strings.ToUpper(s.Category)),
			VenueID: s.VenueID, Detail: s.Detail, Image: s.Image,
			Prices: pricesByShow[s.ID], Dates: ds, EarliestDate: s.EarliestDate.UTC(),
			CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt, DeletedAt: s.DeletedAt,
		})
	}
	return out, nil
}
