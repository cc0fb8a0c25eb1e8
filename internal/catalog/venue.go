package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/show-reservation/internal/model"
	"github.com/iliyamo/show-reservation/internal/repository"
)

// VenueInput is the writable part of a venue.
type VenueInput struct {
	Name     string
	Address  string
	Image    string
	Sections []model.Section
}

func (in VenueInput) normalize() (VenueInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.Image = strings.TrimSpace(in.Image)
	if in.Name == "" || in.Address == "" {
		return in, fmt.Errorf("%w: name and address are required", ErrInvalidVenueInput)
	}
	if len(in.Sections) == 0 {
		return in, fmt.Errorf("%w: at least one section is required", ErrInvalidVenueInput)
	}
	seen := make(map[string]bool, len(in.Sections))
	sections := make([]model.Section, 0, len(in.Sections))
	for _, s := range in.Sections {
		s.Label = strings.TrimSpace(s.Label)
		if s.Label == "" {
			return in, fmt.Errorf("%w: section label is required", ErrInvalidVenueInput)
		}
		if seen[s.Label] {
			return in, fmt.Errorf("%w: duplicate section %q", ErrInvalidVenueInput, s.Label)
		}
		if s.Capacity <= 0 {
			return in, fmt.Errorf("%w: section %q needs a positive capacity", ErrInvalidVenueInput, s.Label)
		}
		seen[s.Label] = true
		sections = append(sections, s)
	}
	in.Sections = sections
	return in, nil
}

// CreateVenue stores a new venue.
func (c *Catalog) CreateVenue(ctx context.Context, in VenueInput) (model.Venue, error) {
	in, err := in.normalize()
	if err != nil {
		return model.Venue{}, err
	}
	v := model.Venue{Name: in.Name, Address: in.Address, Image: in.Image, Sections: in.Sections}
	err = c.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		dup, err := c.venues.ExistsByNameAddress(ctx, v.Name, v.Address, 0)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateVenue
		}
		return c.venues.Create(ctx, &v)
	})
	if err != nil {
		return model.Venue{}, err
	}
	return v, nil
}

// UpdateVenue replaces the venue's fields. While live shows use the venue
// its set of section labels is frozen, since their prices are keyed by it.
func (c *Catalog) UpdateVenue(ctx context.Context, id uint64, in VenueInput) (model.Venue, error) {
	in, err := in.normalize()
	if err != nil {
		return model.Venue{}, err
	}
	var out model.Venue
	err = c.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		cur, err := c.ResolveVenue(ctx, id)
		if err != nil {
			return err
		}
		dup, err := c.venues.ExistsByNameAddress(ctx, in.Name, in.Address, id)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateVenue
		}
		next := cur
		next.Name, next.Address, next.Image, next.Sections = in.Name, in.Address, in.Image, in.Sections
		if !sameLabels(cur.SectionLabels(), next.SectionLabels()) {
			n, err := c.shows.CountByVenue(ctx, id)
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrVenueInUse
			}
		}
		if err := c.venues.Update(ctx, &next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// DeleteVenue logically deletes a venue no live show refers to.
func (c *Catalog) DeleteVenue(ctx context.Context, id uint64) error {
	return c.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := c.ResolveVenue(ctx, id); err != nil {
			return err
		}
		n, err := c.shows.CountByVenue(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrVenueInUse
		}
		err = c.venues.SoftDelete(ctx, id, c.now())
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVenueNotFound
		}
		return err
	})
}

// GetVenue is ResolveVenue for the HTTP layer.
func (c *Catalog) GetVenue(ctx context.Context, id uint64) (model.Venue, error) {
	return c.ResolveVenue(ctx, id)
}

// ListVenues returns live venues, newest first.
func (c *Catalog) ListVenues(ctx context.Context) ([]model.Venue, error) {
	return c.venues.List(ctx)
}

func sameLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, l := range a {
		set[l] = true
	}
	for _, l := range b {
		if !set[l] {
			return false
		}
	}
	return true
}
