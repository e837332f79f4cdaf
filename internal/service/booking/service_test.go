package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookit-platform/bookit/internal/domain"
	"github.com/bookit-platform/bookit/internal/repository"
)

// fakeStores is an in-memory Stores implementation. InTx holds the
// mutex for the whole transaction and works on map clones, so writes
// are atomic and isolated the same way the postgres store's
// transactions are: all-or-nothing, no intermediate state visible.
type fakeStores struct {
	mu       sync.Mutex
	slots    map[int64]*domain.Slot
	bookings map[uuid.UUID]domain.Booking

	txCalls   int
	insertErr error
	detailErr error
}

func newFakeStores(slots ...domain.Slot) *fakeStores {
	f := &fakeStores{
		slots:    make(map[int64]*domain.Slot),
		bookings: make(map[uuid.UUID]domain.Booking),
	}
	for _, s := range slots {
		cp := s
		f.slots[s.ID] = &cp
	}
	return f
}

func (f *fakeStores) InTx(
	ctx context.Context,
	fn func(ctx context.Context, slots SlotStore, bookings BookingStore, after func(AfterCommit)) error,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.txCalls++

	slotsCopy := make(map[int64]*domain.Slot, len(f.slots))
	for id, s := range f.slots {
		cp := *s
		slotsCopy[id] = &cp
	}
	bookingsCopy := make(map[uuid.UUID]domain.Booking, len(f.bookings))
	for id, b := range f.bookings {
		bookingsCopy[id] = b
	}

	view := &fakeTxView{f: f, slots: slotsCopy, bookings: bookingsCopy}

	var hooks []AfterCommit
	if err := fn(ctx, view, view, func(h AfterCommit) {
		hooks = append(hooks, h)
	}); err != nil {
		return err
	}

	f.slots = slotsCopy
	f.bookings = bookingsCopy

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

func (f *fakeStores) Slots() SlotStore       { return &fakeDirect{f} }
func (f *fakeStores) Bookings() BookingStore { return &fakeDirect{f} }

type fakeTxView struct {
	f        *fakeStores
	slots    map[int64]*domain.Slot
	bookings map[uuid.UUID]domain.Booking
}

func (v *fakeTxView) Get(_ context.Context, slotID int64) (*domain.Slot, error) {
	s, ok := v.slots[slotID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (v *fakeTxView) GetForExperience(_ context.Context, slotID, experienceID int64) (*domain.Slot, error) {
	s, ok := v.slots[slotID]
	if !ok || s.ExperienceID != experienceID {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (v *fakeTxView) DecrementSpots(_ context.Context, slotID int64, spots int) error {
	s, ok := v.slots[slotID]
	if !ok {
		return repository.ErrNotFound
	}
	if s.AvailableSpots < spots {
		return repository.ErrInsufficientCapacity
	}
	s.AvailableSpots -= spots
	s.UpdatedAt = time.Now()
	return nil
}

func (v *fakeTxView) Insert(_ context.Context, b *domain.Booking) (uuid.UUID, error) {
	if v.f.insertErr != nil {
		return uuid.Nil, v.f.insertErr
	}
	id := uuid.New()
	rec := *b
	rec.ID = id
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	v.bookings[id] = rec
	return id, nil
}

func (v *fakeTxView) GetWithDetails(_ context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
	b, ok := v.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &domain.BookingWithDetails{Booking: b}, nil
}

func (v *fakeTxView) ListByEmail(_ context.Context, email string) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range v.bookings {
		if strings.EqualFold(b.Customer.Email, email) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (v *fakeTxView) ListBySlot(_ context.Context, slotID int64) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range v.bookings {
		if b.SlotID == slotID {
			out = append(out, b)
		}
	}
	return out, nil
}

// fakeDirect serves reads outside any transaction.
type fakeDirect struct {
	f *fakeStores
}

func (d *fakeDirect) Get(ctx context.Context, slotID int64) (*domain.Slot, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	return (&fakeTxView{f: d.f, slots: d.f.slots}).Get(ctx, slotID)
}

func (d *fakeDirect) GetForExperience(ctx context.Context, slotID, experienceID int64) (*domain.Slot, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	return (&fakeTxView{f: d.f, slots: d.f.slots}).GetForExperience(ctx, slotID, experienceID)
}

func (d *fakeDirect) DecrementSpots(ctx context.Context, slotID int64, spots int) error {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	return (&fakeTxView{f: d.f, slots: d.f.slots}).DecrementSpots(ctx, slotID, spots)
}

func (d *fakeDirect) Insert(ctx context.Context, b *domain.Booking) (uuid.UUID, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	return (&fakeTxView{f: d.f, bookings: d.f.bookings}).Insert(ctx, b)
}

func (d *fakeDirect) GetWithDetails(_ context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	if d.f.detailErr != nil {
		return nil, d.f.detailErr
	}
	b, ok := d.f.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := &domain.BookingWithDetails{Booking: b}
	if s, ok := d.f.slots[b.SlotID]; ok {
		out.Slot = *s
	}
	out.Experience = domain.Experience{ID: b.ExperienceID, Title: "Kayaking"}
	return out, nil
}

func (d *fakeDirect) ListByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	return (&fakeTxView{f: d.f, bookings: d.f.bookings}).ListByEmail(ctx, email)
}

func (d *fakeDirect) ListBySlot(ctx context.Context, slotID int64) ([]domain.Booking, error) {
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	return (&fakeTxView{f: d.f, bookings: d.f.bookings}).ListBySlot(ctx, slotID)
}

func (f *fakeStores) slot(t *testing.T, id int64) domain.Slot {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	require.True(t, ok, "slot %d must exist", id)
	return *s
}

func (f *fakeStores) bookingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bookings)
}

func newTestService(f *fakeStores) *Service {
	return New(f, nil, nil, nil, Config{})
}

func validParams() ReserveParams {
	return ReserveParams{
		ExperienceID: 1,
		SlotID:       10,
		Customer: domain.Customer{
			Name:  "Asha Rao",
			Email: "asha@example.com",
			Phone: "+91-9000000000",
		},
		Guests:     3,
		TotalPrice: 2997,
	}
}

func TestReserve_Success(t *testing.T) {
	f := newFakeStores(domain.Slot{ID: 10, ExperienceID: 1, AvailableSpots: 5, TotalSpots: 10})
	svc := newTestService(f)

	out, err := svc.Reserve(context.Background(), validParams())
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, domain.BookingConfirmed, out.Status)
	assert.Equal(t, 3, out.Guests)
	assert.NotEqual(t, uuid.Nil, out.ID)
	assert.Equal(t, float64(2997), out.TotalPrice)

	// capacity was consumed together with the booking
	assert.Equal(t, 2, f.slot(t, 10).AvailableSpots)
	assert.Equal(t, 1, f.bookingCount())
}

func TestReserve_InsufficientCapacity(t *testing.T) {
	f := newFakeStores(domain.Slot{ID: 10, ExperienceID: 1, AvailableSpots: 2, TotalSpots: 10})
	svc := newTestService(f)

	out, err := svc.Reserve(context.Background(), validParams())
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrInsufficientCapacity)
	assert.NotErrorIs(t, err, ErrReservationFailed)

	assert.Equal(t, 2, f.slot(t, 10).AvailableSpots)
	assert.Zero(t, f.bookingCount())
}

func TestReserve_ConcurrentOverdraw(t *testing.T) {
	f := newFakeStores(domain.Slot{ID: 10, ExperienceID: 1, AvailableSpots: 5, TotalSpots: 10})
	svc := newTestService(f)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Reserve(context.Background(), validParams())
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientCapacity):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// exactly one of the two racing reservations may win
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, 2, f.slot(t, 10).AvailableSpots)
	assert.Equal(t, 1, f.bookingCount())
}

func TestReserve_ContentionInvariant(t *testing.T) {
	const initial = 10

	f := newFakeStores(domain.Slot{ID: 10, ExperienceID: 1, AvailableSpots: initial, TotalSpots: initial})
	svc := newTestService(f)

	const workers = 20

	var wg sync.WaitGroup
	results := make([]error, workers)
	guests := make([]int, workers)
	for i := 0; i < workers; i++ {
		guests[i] = i%3 + 1
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := validParams()
			p.Guests = guests[i]
			_, results[i] = svc.Reserve(context.Background(), p)
		}(i)
	}
	wg.Wait()

	var booked int
	for i, err := range results {
		if err == nil {
			booked += guests[i]
		} else {
			require.ErrorIs(t, err, ErrInsufficientCapacity)
		}
	}

	slot := f.slot(t, 10)
	assert.LessOrEqual(t, booked, initial)
	assert.Equal(t, initial-booked, slot.AvailableSpots)
	assert.GreaterOrEqual(t, slot.AvailableSpots, 0)

	// every booking corresponds to exactly one successful decrement
	f.mu.Lock()
	var recorded int
	for _, b := range f.bookings {
		recorded += b.Guests
	}
	f.mu.Unlock()
	assert.Equal(t, booked, recorded)
}

func TestReserve_SlotNotFound(t *testing.T) {
	f := newFakeStores(domain.Slot{ID: 10, ExperienceID: 1, AvailableSpots: 5, TotalSpots: 10})
	svc := newTestService(f)

	p := validParams()
	p.SlotID = 99
	_, err := svc.Reserve(context.Background(), p)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	// a slot belonging to another experience is indistinguishable from a
	// missing one
	p = validParams()
	p.ExperienceID = 2
	_, err = svc.Reserve(context.Background(), p)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	assert.Equal(t, 5, f.slot(t, 10).AvailableSpots)
	assert.Zero(t, f.bookingCount())
}

func TestReserve_InvalidRequest(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ReserveParams)
	}{
		{"zero guests", func(p *ReserveParams) { p.Guests = 0 }},
		{"negative guests", func(p *ReserveParams) { p.Guests = -1 }},
		{"negative discount", func(p *ReserveParams) { p.Discount = -5 }},
		{"negative total", func(p *ReserveParams) { p.TotalPrice = -1 }},
		{"zero slot id", func(p *ReserveParams) { p.SlotID = 0 }},
		{"zero experience id", func(p *ReserveParams) { p.ExperienceID = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeStores(domain.Slot{ID: 10, ExperienceID: 1, AvailableSpots: 5, TotalSpots: 10})
			svc := newTestService(f)

			p := validParams()
			tt.mutate(&p)

			_, err := svc.Reserve(context.Background(), p)
			assert.ErrorIs(t, err, ErrInvalidRequest)

			// validation rejects before any storage access
			assert.Zero(t, f.txCalls)
			assert.Equal(t, 5, f.slot(t, 10).AvailableSpots)
		})
	}
}

func TestReserve_RollbackOnInsertFailure(t *testing.T) {
	f := newFakeStores(domain.Slot{ID: 10, ExperienceID: 1, AvailableSpots: 5, TotalSpots: 10})
	f.insertErr = errors.New("connection reset")
	svc := newTestService(f)

	_, err := svc.Reserve(context.Background(), validParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReservationFailed)
	assert.NotErrorIs(t, err, ErrInsufficientCapacity)

	// the whole transaction rolled back: no capacity lost, no orphan row
	assert.Equal(t, 5, f.slot(t, 10).AvailableSpots)
	assert.Zero(t, f.bookingCount())
}

func TestReserve_DisplayReadFailureDoesNotFailReservation(t *testing.T) {
	f := newFakeStores(domain.Slot{ID: 10, ExperienceID: 1, AvailableSpots: 5, TotalSpots: 10})
	f.detailErr = errors.New("replica lagging")
	svc := newTestService(f)

	out, err := svc.Reserve(context.Background(), validParams())
	require.NoError(t, err)
	require.NotNil(t, out)

	// the commit stands even though the joined re-read failed
	assert.NotEqual(t, uuid.Nil, out.ID)
	assert.Equal(t, domain.BookingConfirmed, out.Status)
	assert.False(t, out.CreatedAt.IsZero())
	assert.False(t, out.UpdatedAt.IsZero())
	assert.Equal(t, 2, f.slot(t, 10).AvailableSpots)
	assert.Equal(t, 1, f.bookingCount())
}

func TestGetBooking(t *testing.T) {
	f := newFakeStores(domain.Slot{ID: 10, ExperienceID: 1, AvailableSpots: 5, TotalSpots: 10})
	svc := newTestService(f)

	created, err := svc.Reserve(context.Background(), validParams())
	require.NoError(t, err)

	got, err := svc.GetBooking(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "asha@example.com", got.Customer.Email)

	_, err = svc.GetBooking(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestListBookings(t *testing.T) {
	f := newFakeStores(domain.Slot{ID: 10, ExperienceID: 1, AvailableSpots: 5, TotalSpots: 10})
	svc := newTestService(f)

	_, err := svc.ListBookings(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.Reserve(context.Background(), validParams())
	require.NoError(t, err)

	out, err := svc.ListBookings(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestListBookings_EmailCaseInsensitive(t *testing.T) {
	f := newFakeStores(domain.Slot{ID: 10, ExperienceID: 1, AvailableSpots: 5, TotalSpots: 10})
	svc := newTestService(f)

	p := validParams()
	p.Customer.Email = "Asha@Example.com"
	_, err := svc.Reserve(context.Background(), p)
	require.NoError(t, err)

	// the address books as given; lookups with any casing must find it
	for _, email := range []string{"Asha@Example.com", "asha@example.com", "ASHA@EXAMPLE.COM"} {
		out, err := svc.ListBookings(context.Background(), email)
		require.NoError(t, err)
		assert.Len(t, out, 1, "email %q", email)
	}
}

func TestListSlotBookings(t *testing.T) {
	f := newFakeStores(domain.Slot{ID: 10, ExperienceID: 1, AvailableSpots: 5, TotalSpots: 10})
	svc := newTestService(f)

	_, err := svc.Reserve(context.Background(), validParams())
	require.NoError(t, err)

	p := validParams()
	p.Guests = 1
	p.Customer.Email = "ben@example.com"
	_, err = svc.Reserve(context.Background(), p)
	require.NoError(t, err)

	out, err := svc.ListSlotBookings(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	_, err = svc.ListSlotBookings(context.Background(), 99)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestGetSlot_IdempotentRead(t *testing.T) {
	f := newFakeStores(domain.Slot{ID: 10, ExperienceID: 1, AvailableSpots: 5, TotalSpots: 10})

	first, err := f.Slots().GetForExperience(context.Background(), 10, 1)
	require.NoError(t, err)
	second, err := f.Slots().GetForExperience(context.Background(), 10, 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
