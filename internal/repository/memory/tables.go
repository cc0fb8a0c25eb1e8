package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/show-reservation/internal/model"
	"github.com/iliyamo/show-reservation/internal/repository"
)

// ---- users ----

type users struct{ s *Store }

func (u users) Create(ctx context.Context, in *model.User) error {
	return u.s.do(ctx, func(t *tx) error {
		in.Email = strings.ToLower(strings.TrimSpace(in.Email))
		for _, existing := range u.s.users {
			if existing.Email == in.Email {
				return repository.ErrEmailExists
			}
			if existing.Nickname == in.Nickname {
				return repository.ErrNicknameExists
			}
		}
		in.ID = u.s.id("users")
		in.CreatedAt = u.s.now().UTC()
		u.s.users[in.ID] = *in
		id := in.ID
		t.onRollback(func() { delete(u.s.users, id) })
		return nil
	})
}

func (u users) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var out model.User
	err := u.s.do(ctx, func(*tx) error {
		for _, existing := range u.s.users {
			if existing.Email == email {
				out = existing
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (u users) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var out model.User
	err := u.s.do(ctx, func(*tx) error {
		v, ok := u.s.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = v
		return nil
	})
	return out, err
}

// ---- refresh tokens ----

type tokens struct{ s *Store }

func (k tokens) StoreRefresh(ctx context.Context, userID uint64, hash string, exp time.Time) error {
	return k.s.do(ctx, func(t *tx) error {
		if _, ok := k.s.tokens[hash]; ok {
			return repository.ErrDuplicateKey
		}
		k.s.tokens[hash] = model.RefreshToken{
			ID: k.s.id("refresh_tokens"), UserID: userID, TokenHash: hash,
			ExpiresAt: exp.UTC(), CreatedAt: k.s.now().UTC(),
		}
		t.onRollback(func() { delete(k.s.tokens, hash) })
		return nil
	})
}

func (k tokens) ValidateRefresh(ctx context.Context, hash string) (uint64, error) {
	var uid uint64
	err := k.s.do(ctx, func(*tx) error {
		tok, ok := k.s.tokens[hash]
		if !ok || tok.RevokedAt != nil || k.s.now().UTC().After(tok.ExpiresAt) {
			return repository.ErrNotFound
		}
		uid = tok.UserID
		return nil
	})
	return uid, err
}

func (k tokens) revoke(t *tx, hash string) {
	tok := k.s.tokens[hash]
	if tok.RevokedAt != nil {
		return
	}
	prev := tok
	now := k.s.now().UTC()
	tok.RevokedAt = &now
	k.s.tokens[hash] = tok
	t.onRollback(func() { k.s.tokens[hash] = prev })
}

func (k tokens) RevokeByHash(ctx context.Context, hash string) error {
	return k.s.do(ctx, func(t *tx) error {
		if _, ok := k.s.tokens[hash]; ok {
			k.revoke(t, hash)
		}
		return nil
	})
}

func (k tokens) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return k.s.do(ctx, func(t *tx) error {
		for hash, tok := range k.s.tokens {
			if tok.UserID == userID {
				k.revoke(t, hash)
			}
		}
		return nil
	})
}

// ---- points ----

type points struct{ s *Store }

func (p points) Create(ctx context.Context, userID uint64, balance int64) error {
	return p.s.do(ctx, func(t *tx) error {
		if _, ok := p.s.accounts[userID]; ok {
			return repository.ErrDuplicateKey
		}
		p.s.accounts[userID] = model.PointsAccount{UserID: userID, Balance: balance, UpdatedAt: p.s.now().UTC()}
		t.onRollback(func() { delete(p.s.accounts, userID) })
		return nil
	})
}

func (p points) Get(ctx context.Context, userID uint64) (model.PointsAccount, error) {
	var out model.PointsAccount
	err := p.s.do(ctx, func(*tx) error {
		a, ok := p.s.accounts[userID]
		if !ok {
			return repository.ErrNotFound
		}
		out = a
		return nil
	})
	return out, err
}

// GetForUpdate is Get: the store lock already excludes other writers.
func (p points) GetForUpdate(ctx context.Context, userID uint64) (model.PointsAccount, error) {
	return p.Get(ctx, userID)
}

func (p points) SetBalance(ctx context.Context, userID uint64, balance int64) error {
	return p.s.do(ctx, func(t *tx) error {
		a, ok := p.s.accounts[userID]
		if !ok {
			return repository.ErrNotFound
		}
		prev := a
		a.Balance = balance
		a.UpdatedAt = p.s.now().UTC()
		p.s.accounts[userID] = a
		t.onRollback(func() { p.s.accounts[userID] = prev })
		return nil
	})
}

func (p points) AppendEntry(ctx context.Context, e *model.PointEntry) error {
	return p.s.do(ctx, func(t *tx) error {
		e.ID = p.s.id("point_transactions")
		p.s.entries = append(p.s.entries, *e)
		n := len(p.s.entries) - 1
		t.onRollback(func() { p.s.entries = p.s.entries[:n] })
		return nil
	})
}

func (p points) ListEntries(ctx context.Context, userID uint64, limit int) ([]model.PointEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []model.PointEntry{}
	err := p.s.do(ctx, func(*tx) error {
		for i := len(p.s.entries) - 1; i >= 0 && len(out) < limit; i-- {
			if p.s.entries[i].UserID == userID {
				out = append(out, p.s.entries[i])
			}
		}
		return nil
	})
	return out, err
}

// ---- venues ----

type venues struct{ s *Store }

func cloneVenue(v model.Venue) model.Venue {
	v.Sections = append([]model.Section(nil), v.Sections...)
	return v
}

func (vs venues) Create(ctx context.Context, v *model.Venue) error {
	return vs.s.do(ctx, func(t *tx) error {
		v.ID = vs.s.id("venues")
		v.CreatedAt = vs.s.now().UTC()
		vs.s.venues[v.ID] = cloneVenue(*v)
		id := v.ID
		t.onRollback(func() { delete(vs.s.venues, id) })
		return nil
	})
}

func (vs venues) Update(ctx context.Context, v *model.Venue) error {
	return vs.s.do(ctx, func(t *tx) error {
		prev, ok := vs.s.venues[v.ID]
		if !ok || prev.DeletedAt != nil {
			return repository.ErrNotFound
		}
		next := cloneVenue(*v)
		next.CreatedAt, next.DeletedAt = prev.CreatedAt, nil
		vs.s.venues[v.ID] = next
		t.onRollback(func() { vs.s.venues[prev.ID] = prev })
		return nil
	})
}

func (vs venues) SoftDelete(ctx context.Context, id uint64, at time.Time) error {
	return vs.s.do(ctx, func(t *tx) error {
		prev, ok := vs.s.venues[id]
		if !ok || prev.DeletedAt != nil {
			return repository.ErrNotFound
		}
		next := prev
		at := at.UTC()
		next.DeletedAt = &at
		vs.s.venues[id] = next
		t.onRollback(func() { vs.s.venues[id] = prev })
		return nil
	})
}

func (vs venues) GetByID(ctx context.Context, id uint64) (model.Venue, error) {
	var out model.Venue
	err := vs.s.do(ctx, func(*tx) error {
		v, ok := vs.s.venues[id]
		if !ok || v.DeletedAt != nil {
			return repository.ErrNotFound
		}
		out = cloneVenue(v)
		return nil
	})
	return out, err
}

func (vs venues) List(ctx context.Context) ([]model.Venue, error) {
	out := []model.Venue{}
	err := vs.s.do(ctx, func(*tx) error {
		for _, v := range vs.s.venues {
			if v.DeletedAt == nil {
				out = append(out, cloneVenue(v))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (vs venues) ExistsByNameAddress(ctx context.Context, name, address string, excludeID uint64) (bool, error) {
	found := false
	err := vs.s.do(ctx, func(*tx) error {
		for _, v := range vs.s.venues {
			if v.DeletedAt == nil && v.ID != excludeID && v.Name == name && v.Address == address {
				found = true
			}
		}
		return nil
	})
	return found, err
}

// ---- shows ----

type shows struct{ s *Store }

func cloneShow(sh model.Show) model.Show {
	sh.Dates = append([]time.Time(nil), sh.Dates...)
	prices := make(map[string]int64, len(sh.Prices))
	for k, v := range sh.Prices {
		prices[k] = v
	}
	sh.Prices = prices
	return sh
}

func (ss shows) Create(ctx context.Context, sh *model.Show) error {
	return ss.s.do(ctx, func(t *tx) error {
		sh.ID = ss.s.id("shows")
		now := ss.s.now().UTC()
		sh.CreatedAt, sh.UpdatedAt = now, now
		ss.s.shows[sh.ID] = cloneShow(*sh)
		id := sh.ID
		t.onRollback(func() { delete(ss.s.shows, id) })
		return nil
	})
}

func (ss shows) Update(ctx context.Context, sh *model.Show) error {
	return ss.s.do(ctx, func(t *tx) error {
		prev, ok := ss.s.shows[sh.ID]
		if !ok || prev.DeletedAt != nil {
			return repository.ErrNotFound
		}
		sh.CreatedAt = prev.CreatedAt
		sh.UpdatedAt = ss.s.now().UTC()
		ss.s.shows[sh.ID] = cloneShow(*sh)
		t.onRollback(func() { ss.s.shows[prev.ID] = prev })
		return nil
	})
}

func (ss shows) SoftDelete(ctx context.Context, id uint64, at time.Time) error {
	return ss.s.do(ctx, func(t *tx) error {
		prev, ok := ss.s.shows[id]
		if !ok || prev.DeletedAt != nil {
			return repository.ErrNotFound
		}
		next := prev
		at := at.UTC()
		next.DeletedAt = &at
		ss.s.shows[id] = next
		t.onRollback(func() { ss.s.shows[id] = prev })
		return nil
	})
}

func (ss shows) GetByID(ctx context.Context, id uint64) (model.Show, error) {
	var out model.Show
	err := ss.s.do(ctx, func(*tx) error {
		sh, ok := ss.s.shows[id]
		if !ok || sh.DeletedAt != nil {
			return repository.ErrNotFound
		}
		out = cloneShow(sh)
		return nil
	})
	return out, err
}

func (ss shows) filter(ctx context.Context, keep func(model.Show) bool) ([]model.Show, error) {
	out := []model.Show{}
	err := ss.s.do(ctx, func(*tx) error {
		for _, sh := range ss.s.shows {
			if sh.DeletedAt == nil && keep(sh) {
				out = append(out, cloneShow(sh))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (ss shows) List(ctx context.Context, category model.Category) ([]model.Show, error) {
	return ss.filter(ctx, func(sh model.Show) bool { return category == "" || sh.Category == category })
}

func (ss shows) Search(ctx context.Context, keyword string) ([]model.Show, error) {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	return ss.filter(ctx, func(sh model.Show) bool { return strings.Contains(strings.ToLower(sh.Name), kw) })
}

func (ss shows) ExistsDuplicate(ctx context.Context, name string, venueID uint64, earliest time.Time, excludeID uint64) (bool, error) {
	found, err := ss.filter(ctx, func(sh model.Show) bool {
		return sh.ID != excludeID && sh.Name == name && sh.VenueID == venueID && sh.EarliestDate.Equal(earliest)
	})
	return len(found) > 0, err
}

func (ss shows) CountByVenue(ctx context.Context, venueID uint64) (int, error) {
	found, err := ss.filter(ctx, func(sh model.Show) bool { return sh.VenueID == venueID })
	return len(found), err
}

// ---- reservations ----

type reservations struct{ s *Store }

func sameSeat(r model.Reservation, showID uint64, section string, seat int) bool {
	return r.Active() && r.ShowID == showID && r.Section == section && r.SeatNumber == seat
}

func (rs reservations) Insert(ctx context.Context, in *model.Reservation) error {
	return rs.s.do(ctx, func(t *tx) error {
		for _, r := range rs.s.reservations {
			if sameSeat(r, in.ShowID, in.Section, in.SeatNumber) {
				return repository.ErrDuplicateKey
			}
		}
		in.ID = rs.s.id("reservations")
		in.CreatedAt = rs.s.now().UTC()
		in.CancelledAt = nil
		rs.s.reservations[in.ID] = *in
		id := in.ID
		t.onRollback(func() { delete(rs.s.reservations, id) })
		return nil
	})
}

func (rs reservations) FindActiveByKey(ctx context.Context, showID uint64, section string, seat int) (*model.Reservation, error) {
	var out *model.Reservation
	err := rs.s.do(ctx, func(*tx) error {
		for _, r := range rs.s.reservations {
			if sameSeat(r, showID, section, seat) {
				found := r
				out = &found
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (rs reservations) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	var out model.Reservation
	err := rs.s.do(ctx, func(*tx) error {
		r, ok := rs.s.reservations[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = r
		return nil
	})
	return out, err
}

func (rs reservations) GetForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	return rs.GetByID(ctx, id)
}

func (rs reservations) MarkCancelled(ctx context.Context, id uint64, at time.Time) error {
	return rs.s.do(ctx, func(t *tx) error {
		prev, ok := rs.s.reservations[id]
		if !ok || !prev.Active() {
			return repository.ErrNotFound
		}
		next := prev
		at := at.UTC()
		next.CancelledAt = &at
		rs.s.reservations[id] = next
		t.onRollback(func() { rs.s.reservations[id] = prev })
		return nil
	})
}

func (rs reservations) ListActiveByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	out := []model.Reservation{}
	err := rs.s.do(ctx, func(*tx) error {
		for _, r := range rs.s.reservations {
			if r.UserID == userID && r.Active() {
				out = append(out, r)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func (rs reservations) CountActiveBySection(ctx context.Context, showID uint64) (map[string]int, error) {
	out := map[string]int{}
	err := rs.s.do(ctx, func(*tx) error {
		for _, r := range rs.s.reservations {
			if r.ShowID == showID && r.Active() {
				out[r.Section]++
			}
		}
		return nil
	})
	return out, err
}
