package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/show-reservation/internal/model"
	"github.com/iliyamo/show-reservation/internal/repository"
)

func seat(showID uint64, section string, n int) *model.Reservation {
	return &model.Reservation{UserID: 1, ShowID: showID, Section: section, SeatNumber: n, Price: 100}
}

func TestRollbackUndoesEveryWrite(t *testing.T) {
	s := New()
	st := s.Stores()
	ctx := context.Background()
	if err := st.Points.Create(ctx, 1, 500); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := s.Transactor().WithinTransaction(ctx, func(ctx context.Context) error {
		if err := st.Reservations.Insert(ctx, seat(1, "VIP", 5)); err != nil {
			return err
		}
		if err := st.Points.SetBalance(ctx, 1, 400); err != nil {
			return err
		}
		if err := st.Points.AppendEntry(ctx, &model.PointEntry{UserID: 1, Delta: -100}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	acc, _ := st.Points.Get(ctx, 1)
	if acc.Balance != 500 {
		t.Fatalf("balance = %d, want 500", acc.Balance)
	}
	if r, _ := st.Reservations.FindActiveByKey(ctx, 1, "VIP", 5); r != nil {
		t.Fatalf("reservation survived rollback: %+v", r)
	}
	if es, _ := st.Points.ListEntries(ctx, 1, 10); len(es) != 0 {
		t.Fatalf("journal survived rollback: %+v", es)
	}
}

func TestActiveSeatKeyIsUnique(t *testing.T) {
	s := New()
	rs := s.Stores().Reservations
	ctx := context.Background()

	first := seat(1, "VIP", 5)
	if err := rs.Insert(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := rs.Insert(ctx, seat(1, "VIP", 5)); !errors.Is(err, repository.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
	// other show, other section, other seat are all free
	for _, r := range []*model.Reservation{seat(2, "VIP", 5), seat(1, "R", 5), seat(1, "VIP", 6)} {
		if err := rs.Insert(ctx, r); err != nil {
			t.Fatalf("insert %+v: %v", r, err)
		}
	}

	if err := rs.MarkCancelled(ctx, first.ID, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := rs.MarkCancelled(ctx, first.ID, time.Now()); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second cancel should report not found, got %v", err)
	}
	if err := rs.Insert(ctx, seat(1, "VIP", 5)); err != nil {
		t.Fatalf("cancelled seat should be free again: %v", err)
	}
}

func TestLockWaitHonoursDeadline(t *testing.T) {
	s := New()
	ctx := context.Background()
	hold := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.Transactor().WithinTransaction(ctx, func(context.Context) error {
			close(hold)
			<-done
			return nil
		})
	}()
	<-hold
	defer close(done)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := s.Stores().Points.Get(short, 1)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected conflict on lock wait timeout, got %v", err)
	}
}

func TestNestedTransactionJoinsOuter(t *testing.T) {
	s := New()
	st := s.Stores()
	tr := s.Transactor()
	ctx := context.Background()
	boom := errors.New("outer fails")

	err := tr.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := tr.WithinTransaction(ctx, func(ctx context.Context) error {
			return st.Points.Create(ctx, 7, 10)
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	if _, err := st.Points.Get(ctx, 7); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("inner write should roll back with the outer unit, got %v", err)
	}
}

func TestShowListingOrderAndSearch(t *testing.T) {
	s := New()
	ss := s.Stores().Shows
	ctx := context.Background()
	for _, sh := range []model.Show{
		{Name: "Hamlet", Category: model.CategoryPlay},
		{Name: "Cats", Category: model.CategoryMusical},
		{Name: "Hamlet Reloaded", Category: model.CategoryPlay},
	} {
		sh := sh
		if err := ss.Create(ctx, &sh); err != nil {
			t.Fatal(err)
		}
	}
	plays, _ := ss.List(ctx, model.CategoryPlay)
	if len(plays) != 2 || plays[0].Name != "Hamlet Reloaded" {
		t.Fatalf("unexpected plays %+v", plays)
	}
	found, _ := ss.Search(ctx, "hamLET")
	if len(found) != 2 {
		t.Fatalf("search found %d shows", len(found))
	}
	if err := ss.SoftDelete(ctx, plays[0].ID, time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := ss.GetByID(ctx, plays[0].ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("deleted show still visible: %v", err)
	}
}

func TestUserIdentityCollisions(t *testing.T) {
	us := New().Stores().Users
	ctx := context.Background()
	if err := us.Create(ctx, &model.User{Email: "A@x.io", Nickname: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := us.Create(ctx, &model.User{Email: "a@x.io", Nickname: "b"}); !errors.Is(err, repository.ErrEmailExists) {
		t.Fatalf("expected email collision, got %v", err)
	}
	if err := us.Create(ctx, &model.User{Email: "b@x.io", Nickname: "a"}); !errors.Is(err, repository.ErrNicknameExists) {
		t.Fatalf("expected nickname collision, got %v", err)
	}
}
