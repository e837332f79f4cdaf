package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/bookit-platform/bookit/internal/domain"
	postgresrepo "github.com/bookit-platform/bookit/internal/repository/postgres"
	"github.com/bookit-platform/bookit/internal/uow"
)

// SlotStore is the engine's view of durable slot capacity.
type SlotStore interface {
	Get(ctx context.Context, slotID int64) (*domain.Slot, error)
	GetForExperience(ctx context.Context, slotID, experienceID int64) (*domain.Slot, error)
	// DecrementSpots reduces available capacity only if at least spots
	// remain at the instant of the update, as observed within the ambient
	// transaction. Concurrent overdraws must fail with
	// repository.ErrInsufficientCapacity.
	DecrementSpots(ctx context.Context, slotID int64, spots int) error
}

// BookingStore is the engine's view of durable booking records.
type BookingStore interface {
	Insert(ctx context.Context, b *domain.Booking) (uuid.UUID, error)
	GetWithDetails(ctx context.Context, id uuid.UUID) (*domain.BookingWithDetails, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Booking, error)
	ListBySlot(ctx context.Context, slotID int64) ([]domain.Booking, error)
}

// AfterCommit runs only after the surrounding transaction has committed.
type AfterCommit func(ctx context.Context)

// Stores binds the slot and booking stores to one transactional scope.
type Stores interface {
	// InTx runs fn atomically: every write made through the stores passed
	// to fn commits together or not at all. Hooks registered via after run
	// only on a successful commit.
	InTx(ctx context.Context, fn func(ctx context.Context, slots SlotStore, bookings BookingStore, after func(AfterCommit)) error) error

	// Slots and Bookings run outside any transaction, for read paths.
	Slots() SlotStore
	Bookings() BookingStore
}

type pgStores struct {
	store *postgresrepo.Store
	uow   *uow.UoW
}

// NewPostgresStores adapts the postgres store to the engine's interfaces.
func NewPostgresStores(store *postgresrepo.Store) Stores {
	return &pgStores{
		store: store,
		uow:   uow.NewUoW(store),
	}
}

func (p *pgStores) InTx(
	ctx context.Context,
	fn func(ctx context.Context, slots SlotStore, bookings BookingStore, after func(AfterCommit)) error,
) error {
	return p.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		return fn(
			ctx,
			p.store.Slots().With(tx),
			p.store.Bookings().With(tx),
			func(h AfterCommit) { after(uow.AfterCommit(h)) },
		)
	})
}

func (p *pgStores) Slots() SlotStore       { return p.store.Slots() }
func (p *pgStores) Bookings() BookingStore { return p.store.Bookings() }
