package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/show-reservation/internal/catalog"
	"github.com/iliyamo/show-reservation/internal/events"
	"github.com/iliyamo/show-reservation/internal/events/eventstest"
	"github.com/iliyamo/show-reservation/internal/ledger"
	"github.com/iliyamo/show-reservation/internal/model"
	"github.com/iliyamo/show-reservation/internal/repository"
	"github.com/iliyamo/show-reservation/internal/repository/memory"
)

var now = time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	mgr     *Manager
	cat     *catalog.Catalog
	ledger  *ledger.Ledger
	stores  memory.Stores
	events  *eventstest.Recorder
	show    model.Show
	evening time.Time
}

func setup(t *testing.T, dates ...time.Time) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New(memory.WithClock(func() time.Time { return now }))
	s := st.Stores()
	cat := catalog.New(st.Transactor(), s.Venues, s.Shows, s.Reservations).WithClock(func() time.Time { return now })
	led := ledger.New(st.Transactor(), s.Points)
	rec := &eventstest.Recorder{}
	mgr := New(st.Transactor(), cat, led, s.Reservations, rec, Options{TxTimeout: 5 * time.Second, CancelWindow: 3 * time.Hour}).
		WithClock(func() time.Time { return now })

	venue, err := cat.CreateVenue(ctx, catalog.VenueInput{
		Name: "Arts Center", Address: "Seoul",
		Sections: []model.Section{{Label: "VIP", Capacity: 10}, {Label: "R", Capacity: 30}},
	})
	if err != nil {
		t.Fatal(err)
	}
	evening := now.Add(48 * time.Hour)
	show, err := cat.CreateShow(ctx, catalog.ShowInput{
		Name: "Les Miserables", Category: model.CategoryMusical, VenueID: venue.ID,
		Prices: map[string]int64{"VIP": 50000, "R": 30000},
		Dates:  append([]time.Time{evening}, dates...),
	})
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{mgr: mgr, cat: cat, ledger: led, stores: s, events: rec, show: show, evening: evening}
}

func (f *fixture) user(t *testing.T, id uint64, points int64) uint64 {
	t.Helper()
	if err := f.ledger.Open(context.Background(), id, points); err != nil {
		t.Fatal(err)
	}
	return id
}

func (f *fixture) balance(t *testing.T, id uint64) int64 {
	t.Helper()
	b, err := f.ledger.Balance(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func (f *fixture) req(user uint64, section string, seat int) BookRequest {
	return BookRequest{UserID: user, ShowID: f.show.ID, PerformanceDate: f.evening, Section: section, SeatNumber: seat}
}

func TestBookSeatDebitsFrozenPrice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.user(t, 1, 100000)

	res, err := f.mgr.BookSeat(ctx, f.req(u, "VIP", 5))
	if err != nil {
		t.Fatal(err)
	}
	if res.ID == 0 || res.Price != 50000 || res.ShowName != "Les Miserables" || !res.Active() {
		t.Fatalf("reservation = %+v", res)
	}
	if got := f.balance(t, u); got != 50000 {
		t.Fatalf("balance = %d, want 50000", got)
	}
	evs := f.events.Events()
	if len(evs) != 1 || evs[0].Type != events.TypeBooked || evs[0].BalanceAfter != 50000 {
		t.Fatalf("events = %+v", evs)
	}

	// catalog edits after booking do not touch the reservation or its refund
	_, err = f.cat.UpdateShow(ctx, f.show.ID, catalog.ShowInput{
		Name: "Les Mis", Category: model.CategoryMusical, VenueID: f.show.VenueID,
		Prices: map[string]int64{"VIP": 10, "R": 10}, Dates: f.show.Dates,
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err := f.mgr.CancelReservation(ctx, u, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if out.BalanceBefore != 50000 || out.BalanceAfter != 100000 {
		t.Fatalf("cancel = %+v", out)
	}
}

func TestBookSeatRejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	rich := f.user(t, 1, 1000000)
	poor := f.user(t, 2, 49999)

	cases := []struct {
		name string
		req  BookRequest
		want error
	}{
		{"unknown show", BookRequest{UserID: rich, ShowID: 999, PerformanceDate: f.evening, Section: "VIP", SeatNumber: 1}, ErrShowNotFound},
		{"wrong date", BookRequest{UserID: rich, ShowID: f.show.ID, PerformanceDate: f.evening.Add(time.Hour), Section: "VIP", SeatNumber: 1}, ErrInvalidDate},
		{"unknown section", f.req(rich, "S", 1), ErrInvalidSection},
		{"seat past capacity", f.req(rich, "VIP", 11), ErrInvalidSeat},
		{"insufficient funds", f.req(poor, "VIP", 1), ErrInsufficientFunds},
		{"missing user", f.req(0, "VIP", 1), ErrInvalidRequest},
	}
	for _, tc := range cases {
		if _, err := f.mgr.BookSeat(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
	if got := f.balance(t, rich); got != 1000000 {
		t.Fatalf("rich balance changed to %d", got)
	}
	if got := f.balance(t, poor); got != 49999 {
		t.Fatalf("poor balance changed to %d", got)
	}
	if n := len(f.events.Events()); n != 0 {
		t.Fatalf("rejections published %d events", n)
	}
}

func TestBookSeatNonPositiveSeatSkipsBoundCheck(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.user(t, 1, 1000000)

	for _, seat := range []int{0, -3} {
		res, err := f.mgr.BookSeat(ctx, f.req(u, "VIP", seat))
		if err != nil {
			t.Fatalf("seat %d: %v", seat, err)
		}
		if res.SeatNumber != seat || res.Price != 50000 {
			t.Fatalf("seat %d: reservation = %+v", seat, res)
		}
	}
	if got := f.balance(t, u); got != 900000 {
		t.Fatalf("balance = %d", got)
	}
	// still a seat key like any other
	if _, err := f.mgr.BookSeat(ctx, f.req(u, "VIP", -3)); !errors.Is(err, ErrSeatAlreadyBooked) {
		t.Fatalf("second booking of seat -3: %v", err)
	}
}

func TestBookSeatAcceptsDateInAnyZone(t *testing.T) {
	f := setup(t)
	u := f.user(t, 1, 100000)
	req := f.req(u, "R", 3)
	req.PerformanceDate = f.evening.In(time.FixedZone("KST", 9*3600))
	if _, err := f.mgr.BookSeat(context.Background(), req); err != nil {
		t.Fatal(err)
	}
}

func TestConcurrentBookingsOfOneSeat(t *testing.T) {
	f := setup(t)
	const n = 20
	for i := 1; i <= n; i++ {
		f.user(t, uint64(i), 100000)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  []uint64
		rejected int
	)
	start := make(chan struct{})
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(u uint64) {
			defer wg.Done()
			<-start
			_, err := f.mgr.BookSeat(context.Background(), f.req(u, "VIP", 5))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, u)
			case errors.Is(err, ErrSeatAlreadyBooked):
				rejected++
			default:
				t.Errorf("user %d: unexpected error %v", u, err)
			}
		}(uint64(i))
	}
	close(start)
	wg.Wait()

	if len(winners) != 1 || rejected != n-1 {
		t.Fatalf("winners=%v rejected=%d", winners, rejected)
	}
	var total int64
	for i := 1; i <= n; i++ {
		total += f.balance(t, uint64(i))
	}
	if want := int64(n)*100000 - 50000; total != want {
		t.Fatalf("total balance = %d, want %d", total, want)
	}
}

type failingLedger struct {
	Ledger
	err error
}

func (l failingLedger) Adjust(context.Context, uint64, int64, model.EntryReason, *uint64) (int64, int64, error) {
	return 0, 0, l.err
}

func TestFailedDebitLeavesNoReservation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.user(t, 1, 100000)
	boom := errors.New("ledger down")
	broken := New(f.mgr.tx, f.cat, failingLedger{Ledger: f.ledger, err: boom}, f.stores.Reservations, f.events, f.mgr.opts)

	if _, err := broken.BookSeat(ctx, f.req(u, "VIP", 5)); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ledger error", err)
	}
	held, err := f.stores.Reservations.FindActiveByKey(ctx, f.show.ID, "VIP", 5)
	if err != nil || held != nil {
		t.Fatalf("seat still held: %+v, %v", held, err)
	}
	if _, err := f.mgr.BookSeat(ctx, f.req(u, "VIP", 5)); err != nil {
		t.Fatalf("rebook after rollback: %v", err)
	}
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	f := setup(t)
	f.events.Err = errors.New("broker down")
	u := f.user(t, 1, 100000)
	if _, err := f.mgr.BookSeat(context.Background(), f.req(u, "VIP", 1)); err != nil {
		t.Fatal(err)
	}
}

func TestCancelWindow(t *testing.T) {
	exact := now.Add(3 * time.Hour)
	tooLate := now.Add(3*time.Hour - time.Minute)
	f := setup(t, exact, tooLate)
	ctx := context.Background()
	u := f.user(t, 1, 200000)

	ok, err := f.mgr.BookSeat(ctx, BookRequest{UserID: u, ShowID: f.show.ID, PerformanceDate: exact, Section: "VIP", SeatNumber: 1})
	if err != nil {
		t.Fatal(err)
	}
	late, err := f.mgr.BookSeat(ctx, BookRequest{UserID: u, ShowID: f.show.ID, PerformanceDate: tooLate, Section: "VIP", SeatNumber: 2})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.mgr.CancelReservation(ctx, u, ok.ID); err != nil {
		t.Fatalf("cancel at exactly 3h: %v", err)
	}
	if _, err := f.mgr.CancelReservation(ctx, u, late.ID); !errors.Is(err, ErrCancellationWindowClosed) {
		t.Fatalf("cancel at 2h59m = %v", err)
	}
	if got := f.balance(t, u); got != 150000 {
		t.Fatalf("balance = %d, want 150000", got)
	}
}

func TestCancelOwnershipAndIdempotence(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	owner := f.user(t, 1, 100000)
	other := f.user(t, 2, 100000)

	res, err := f.mgr.BookSeat(ctx, f.req(owner, "VIP", 5))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.mgr.CancelReservation(ctx, other, res.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("foreign cancel = %v", err)
	}
	if _, err := f.mgr.GetReservation(ctx, other, res.ID); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("foreign detail = %v", err)
	}
	d, err := f.mgr.GetReservation(ctx, owner, res.ID)
	if err != nil || d.VenueName != "Arts Center" || d.Price != 50000 {
		t.Fatalf("detail = %+v, %v", d, err)
	}

	if _, err := f.mgr.CancelReservation(ctx, owner, res.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.mgr.CancelReservation(ctx, owner, res.ID); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("second cancel = %v", err)
	}
	if _, err := f.mgr.CancelReservation(ctx, owner, 999); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("missing cancel = %v", err)
	}
	if got := f.balance(t, owner); got != 100000 {
		t.Fatalf("owner balance = %d", got)
	}

	// the freed seat can be booked again, by anyone
	if _, err := f.mgr.BookSeat(ctx, f.req(other, "VIP", 5)); err != nil {
		t.Fatalf("rebook freed seat: %v", err)
	}
	list, err := f.mgr.ListReservations(ctx, owner)
	if err != nil || len(list) != 0 {
		t.Fatalf("owner list = %+v, %v", list, err)
	}
	evs := f.events.Events()
	if len(evs) != 3 || evs[1].Type != events.TypeCancelled {
		t.Fatalf("events = %+v", evs)
	}
}

func TestTranslate(t *testing.T) {
	if !Retryable(translate(context.DeadlineExceeded)) {
		t.Error("deadline should be retryable")
	}
	if Retryable(ErrSeatAlreadyBooked) {
		t.Error("seat taken is final")
	}
	// the loser of a race on MySQL sees the unique key, not the pre-check
	lost := translate(fmt.Errorf("insert reservation: %w", repository.ErrDuplicateKey))
	if !errors.Is(lost, ErrSeatAlreadyBooked) {
		t.Errorf("duplicate key = %v, want seat already booked", lost)
	}
	if !Retryable(translate(fmt.Errorf("lock: %w", repository.ErrConflict))) {
		t.Error("lock conflicts should be retryable")
	}
}

// stuckPublisher blocks until its context ends.
type stuckPublisher struct {
	hadDeadline bool
}

func (p *stuckPublisher) Publish(ctx context.Context, _ events.ReservationEvent) error {
	_, p.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

func (p *stuckPublisher) Close() error { return nil }

func TestSlowBrokerDoesNotHoldBooking(t *testing.T) {
	f := setup(t)
	u := f.user(t, 1, 100000)
	pub := &stuckPublisher{}
	opts := f.mgr.opts
	opts.PublishTimeout = 20 * time.Millisecond
	mgr := New(f.mgr.tx, f.cat, f.ledger, f.stores.Reservations, pub, opts).WithClock(f.mgr.now)

	start := time.Now()
	if _, err := mgr.BookSeat(context.Background(), f.req(u, "VIP", 5)); err != nil {
		t.Fatal(err)
	}
	if !pub.hadDeadline {
		t.Fatal("publish ran without a deadline")
	}
	if took := time.Since(start); took > time.Second {
		t.Fatalf("booking took %s with a stuck broker", took)
	}
	if got := f.balance(t, u); got != 50000 {
		t.Fatalf("balance = %d", got)
	}
}
