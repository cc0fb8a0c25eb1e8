// Package catalog manages venues and shows and answers the read-only
// questions the booking engine asks about them: does the show exist, which
// venue hosts it, and what does a seat in a given section cost.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/show-reservation/internal/database"
	"github.com/iliyamo/show-reservation/internal/errs"
	"github.com/iliyamo/show-reservation/internal/model"
	"github.com/iliyamo/show-reservation/internal/repository"
)

// MaxPrice is the highest price a section may carry.
const MaxPrice int64 = 50000

var (
	ErrVenueNotFound     = errs.New(errs.KindNotFound, "venue_not_found", "venue not found")
	ErrShowNotFound      = errs.New(errs.KindNotFound, "show_not_found", "show not found")
	ErrInvalidSection    = errs.New(errs.KindValidation, "invalid_section", "section does not exist at this venue")
	ErrPricingMismatch   = errs.New(errs.KindValidation, "pricing_mismatch", "show prices do not match the venue sections")
	ErrInvalidPrice      = errs.New(errs.KindValidation, "invalid_price", fmt.Sprintf("price must be between 0 and %d", MaxPrice))
	ErrInvalidCategory   = errs.New(errs.KindValidation, "invalid_category", "unknown show category")
	ErrInvalidDates      = errs.New(errs.KindValidation, "invalid_dates", "a show needs at least one performance date")
	ErrInvalidVenueInput = errs.New(errs.KindValidation, "invalid_venue", "invalid venue")
	ErrDuplicateShow     = errs.New(errs.KindConflict, "duplicate_show", "a show with the same name, venue and first date exists")
	ErrDuplicateVenue    = errs.New(errs.KindConflict, "duplicate_venue", "a venue with the same name and address exists")
	ErrVenueInUse        = errs.New(errs.KindConflict, "venue_in_use", "venue is referenced by live shows")
)

// Catalog is the venue and show service.
type Catalog struct {
	tx           database.Transactor
	venues       repository.VenueStore
	shows        repository.ShowStore
	reservations repository.ReservationStore
	now          func() time.Time
}

// New wires a Catalog. reservations is only read, for availability.
func New(tx database.Transactor, venues repository.VenueStore, shows repository.ShowStore, reservations repository.ReservationStore) *Catalog {
	return &Catalog{tx: tx, venues: venues, shows: shows, reservations: reservations, now: time.Now}
}

// WithClock replaces the time source used for deletion timestamps.
func (c *Catalog) WithClock(now func() time.Time) *Catalog {
	c.now = now
	return c
}

// ResolveShow returns the live show with id showID.
func (c *Catalog) ResolveShow(ctx context.Context, showID uint64) (model.Show, error) {
	s, err := c.shows.GetByID(ctx, showID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Show{}, ErrShowNotFound
	}
	return s, err
}

// ResolveVenue returns the live venue with id venueID.
func (c *Catalog) ResolveVenue(ctx context.Context, venueID uint64) (model.Venue, error) {
	v, err := c.venues.GetByID(ctx, venueID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Venue{}, ErrVenueNotFound
	}
	return v, err
}

// PriceForSection looks up the price of one seat in section. The venue
// decides whether the section exists; the show decides what it costs.
func PriceForSection(show model.Show, venue model.Venue, section string) (int64, error) {
	if _, ok := venue.Section(section); !ok {
		return 0, ErrInvalidSection
	}
	price, ok := show.Prices[section]
	if !ok {
		return 0, ErrPricingMismatch
	}
	return price, nil
}

// SectionAvailability summarises one section of a show.
type SectionAvailability struct {
	Label     string `json:"label"`
	Capacity  int    `json:"capacity"`
	Booked    int    `json:"booked"`
	Available int    `json:"available"`
	Price     int64  `json:"price"`
}

// Availability counts active reservations per section of the show, in the
// venue's section order.
func (c *Catalog) Availability(ctx context.Context, showID uint64) ([]SectionAvailability, error) {
	show, err := c.ResolveShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	venue, err := c.ResolveVenue(ctx, show.VenueID)
	if err != nil {
		return nil, err
	}
	booked, err := c.reservations.CountActiveBySection(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("count reservations: %w", err)
	}
	out := make([]SectionAvailability, 0, len(venue.Sections))
	for _, s := range venue.Sections {
		n := booked[s.Label]
		avail := s.Capacity - n
		if avail < 0 {
			avail = 0
		}
		out = append(out, SectionAvailability{
			Label:     s.Label,
			Capacity:  s.Capacity,
			Booked:    n,
			Available: avail,
			Price:     show.Prices[s.Label],
		})
	}
	return out, nil
}
