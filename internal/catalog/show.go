package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/show-reservation/internal/errs"
	"github.com/iliyamo/show-reservation/internal/model"
	"github.com/iliyamo/show-reservation/internal/repository"
)

// ShowInput is the writable part of a show.
type ShowInput struct {
	Name     string
	Category model.Category
	VenueID  uint64
	Detail   string
	Image    string
	Prices   map[string]int64
	Dates    []time.Time
}

// NormalizeDates converts to UTC whole seconds, removes duplicates and sorts
// ascending.
func NormalizeDates(in []time.Time) []time.Time {
	out := make([]time.Time, 0, len(in))
	for _, d := range in {
		out = append(out, d.UTC().Truncate(time.Second))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	uniq := out[:0]
	for i, d := range out {
		if i == 0 || !d.Equal(out[i-1]) {
			uniq = append(uniq, d)
		}
	}
	return uniq
}

// validateShow checks in against its venue and returns the show to store.
func validateShow(in ShowInput, venue model.Venue) (model.Show, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Show{}, errs.Validation("show name is required")
	}
	cat := model.Category(strings.ToUpper(strings.TrimSpace(string(in.Category))))
	if !cat.Valid() {
		return model.Show{}, ErrInvalidCategory
	}
	dates := NormalizeDates(in.Dates)
	if len(dates) == 0 {
		return model.Show{}, ErrInvalidDates
	}
	labels := venue.SectionLabels()
	if len(in.Prices) != len(labels) {
		return model.Show{}, ErrPricingMismatch
	}
	prices := make(map[string]int64, len(labels))
	for _, l := range labels {
		p, ok := in.Prices[l]
		if !ok {
			return model.Show{}, fmt.Errorf("%w: missing price for section %q", ErrPricingMismatch, l)
		}
		if p < 0 || p > MaxPrice {
			return model.Show{}, fmt.Errorf("%w: section %q", ErrInvalidPrice, l)
		}
		prices[l] = p
	}
	return model.Show{
		Name:         name,
		Category:     cat,
		VenueID:      venue.ID,
		Detail:       strings.TrimSpace(in.Detail),
		Image:        strings.TrimSpace(in.Image),
		Prices:       prices,
		Dates:        dates,
		EarliestDate: dates[0],
	}, nil
}

// CreateShow stores a new show priced per section of its venue.
func (c *Catalog) CreateShow(ctx context.Context, in ShowInput) (model.Show, error) {
	var out model.Show
	err := c.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		venue, err := c.ResolveVenue(ctx, in.VenueID)
		if err != nil {
			return err
		}
		s, err := validateShow(in, venue)
		if err != nil {
			return err
		}
		dup, err := c.shows.ExistsDuplicate(ctx, s.Name, s.VenueID, s.EarliestDate, 0)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateShow
		}
		if err := c.shows.Create(ctx, &s); err != nil {
			return err
		}
		out = s
		return nil
	})
	return out, err
}

// UpdateShow replaces every writable field of the show. Existing
// reservations keep the name and price they were booked with.
func (c *Catalog) UpdateShow(ctx context.Context, id uint64, in ShowInput) (model.Show, error) {
	var out model.Show
	err := c.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		cur, err := c.ResolveShow(ctx, id)
		if err != nil {
			return err
		}
		venue, err := c.ResolveVenue(ctx, in.VenueID)
		if err != nil {
			return err
		}
		s, err := validateShow(in, venue)
		if err != nil {
			return err
		}
		dup, err := c.shows.ExistsDuplicate(ctx, s.Name, s.VenueID, s.EarliestDate, id)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateShow
		}
		s.ID, s.CreatedAt = cur.ID, cur.CreatedAt
		if err := c.shows.Update(ctx, &s); err != nil {
			return err
		}
		out = s
		return nil
	})
	return out, err
}

// DeleteShow logically deletes a show. Its reservations stay untouched.
func (c *Catalog) DeleteShow(ctx context.Context, id uint64) error {
	err := c.shows.SoftDelete(ctx, id, c.now())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrShowNotFound
	}
	return err
}

// GetShow is ResolveShow for the HTTP layer.
func (c *Catalog) GetShow(ctx context.Context, id uint64) (model.Show, error) {
	return c.ResolveShow(ctx, id)
}

// ListShows returns live shows of category, or all shows when category is
// empty, newest first.
func (c *Catalog) ListShows(ctx context.Context, category string) ([]model.Show, error) {
	cat := model.Category(strings.ToUpper(strings.TrimSpace(category)))
	if cat != "" && !cat.Valid() {
		return nil, ErrInvalidCategory
	}
	return c.shows.List(ctx, cat)
}

// SearchShows matches show names containing keyword, newest first.
func (c *Catalog) SearchShows(ctx context.Context, keyword string) ([]model.Show, error) {
	return c.shows.Search(ctx, strings.TrimSpace(keyword))
}
