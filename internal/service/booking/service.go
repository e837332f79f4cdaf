package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookit-platform/bookit/internal/domain"
	redisx "github.com/bookit-platform/bookit/internal/redis"
	"github.com/bookit-platform/bookit/internal/repository"
	redisrepo "github.com/bookit-platform/bookit/internal/repository/redis"
)

type Config struct {
	// DisplayReadTimeout bounds the post-commit re-read of the booking.
	DisplayReadTimeout time.Duration
}

// Service is the reservation engine: it checks and consumes slot
// capacity and records the booking as one atomic unit of work. Different
// slots never contend on any engine-level lock; the only shared resource
// is the slot row itself.
type Service struct {
	stores  Stores
	cache   *redisrepo.Cache
	pubsub  *redisx.SlotsPubSub
	limiter *redisrepo.SlidingWindowLimiter
	cfg     Config
}

func New(
	stores Stores,
	cache *redisrepo.Cache,
	pubsub *redisx.SlotsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	cfg Config,
) *Service {
	if cfg.DisplayReadTimeout <= 0 {
		cfg.DisplayReadTimeout = 3 * time.Second
	}

	return &Service{
		stores:  stores,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		cfg:     cfg,
	}
}

type ReserveParams struct {
	ExperienceID int64
	SlotID       int64
	Customer     domain.Customer
	Guests       int
	PromoCode    string
	Discount     float64
	TotalPrice   float64

	// RateLimitKey throttles per caller when set; empty disables.
	RateLimitKey string
}

func (p ReserveParams) validate() error {
	switch {
	case p.ExperienceID <= 0:
		return fmt.Errorf("%w: experience id must be positive", ErrInvalidRequest)
	case p.SlotID <= 0:
		return fmt.Errorf("%w: slot id must be positive", ErrInvalidRequest)
	case p.Guests < 1:
		return fmt.Errorf("%w: number of guests must be at least 1", ErrInvalidRequest)
	case p.Discount < 0:
		return fmt.Errorf("%w: discount must not be negative", ErrInvalidRequest)
	case p.TotalPrice < 0:
		return fmt.Errorf("%w: total price must not be negative", ErrInvalidRequest)
	}

	return nil
}

// Reserve atomically checks and decrements the slot's capacity, then
// records a confirmed booking, all in one transaction. A crash or abort
// anywhere before commit leaves both stores untouched: no partial
// capacity loss, no orphan booking.
//
// Parameters:
//   - ctx: request-scoped context.
//   - p: reservation parameters; Discount and TotalPrice are opaque
//     non-negative numbers supplied by the pricing collaborator.
//
// Returns:
//   - *domain.BookingWithDetails: the committed booking, joined with its
//     slot and experience when the display re-read succeeds.
//   - error: booking.ErrInvalidRequest on malformed input.
//   - error: booking.ErrSlotNotFound if the slot does not exist or does
//     not belong to the experience.
//   - error: booking.ErrInsufficientCapacity if the slot cannot seat the
//     requested guests; expected under contention, safe to surface as a
//     normal business outcome.
//   - error: booking.ErrReservationFailed on storage faults; nothing was
//     committed and the caller may retry.
func (s *Service) Reserve(ctx context.Context, p ReserveParams) (*domain.BookingWithDetails, error) {
	const op = "service.booking.Reserve"

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if s.limiter != nil && p.RateLimitKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, p.RateLimitKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, errors.Join(ErrReservationFailed, err))
		}
		if !ok {
			return nil, fmt.Errorf("%s:%w: retry in %s", op, ErrRateLimited, retry)
		}
	}

	var (
		bookingID uuid.UUID
		created   domain.Booking
	)

	err := s.stores.InTx(ctx, func(
		ctx context.Context,
		slots SlotStore,
		bookings BookingStore,
		after func(AfterCommit),
	) error {
		slot, err := slots.GetForExperience(ctx, p.SlotID, p.ExperienceID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSlotNotFound
			}

			return err
		}

		if slot.AvailableSpots < p.Guests {
			return ErrInsufficientCapacity
		}

		// The guard inside DecrementSpots re-checks capacity at write
		// time, so a concurrent reservation that committed between the
		// read above and this write still cannot overdraw the slot.
		if err := slots.DecrementSpots(ctx, p.SlotID, p.Guests); err != nil {
			switch {
			case errors.Is(err, repository.ErrInsufficientCapacity):
				return ErrInsufficientCapacity
			case errors.Is(err, repository.ErrNotFound):
				return ErrSlotNotFound
			}

			return err
		}

		b := domain.Booking{
			ExperienceID: p.ExperienceID,
			SlotID:       p.SlotID,
			Customer:     p.Customer,
			Guests:       p.Guests,
			PromoCode:    p.PromoCode,
			Discount:     p.Discount,
			TotalPrice:   p.TotalPrice,
			Status:       domain.BookingConfirmed,
		}

		id, err := bookings.Insert(ctx, &b)
		if err != nil {
			return err
		}

		bookingID = id
		b.ID = id
		// The database stamps the authoritative timestamps; these only
		// back the fallback response when the display re-read fails.
		now := time.Now()
		b.CreatedAt = now
		b.UpdatedAt = now
		created = b

		after(func(ctx context.Context) {
			if s.cache != nil {
				_ = s.cache.InvalidateExperience(ctx, p.ExperienceID)
			}
			if s.pubsub != nil {
				_ = s.pubsub.PublishSlotChanged(ctx, p.ExperienceID, p.SlotID)
			}
		})

		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotNotFound),
			errors.Is(err, ErrInsufficientCapacity):
			return nil, fmt.Errorf("%s:%w", op, err)
		}

		return nil, fmt.Errorf("%s:%w", op, errors.Join(ErrReservationFailed, err))
	}

	// The reservation is committed at this point. The joined re-read is
	// display only; its failure must not turn a committed booking into an
	// error, so it runs detached from the request's cancellation.
	readCtx, cancel := context.WithTimeout(
		context.WithoutCancel(ctx),
		s.cfg.DisplayReadTimeout,
	)
	defer cancel()

	out, err := s.stores.Bookings().GetWithDetails(readCtx, bookingID)
	if err != nil {
		return &domain.BookingWithDetails{Booking: created}, nil
	}

	return out, nil
}

// GetBooking retrieves a booking joined with its slot and experience.
//
// Returns:
//   - *domain.BookingWithDetails: the booking when found.
//   - error: booking.ErrBookingNotFound if no such booking exists.
func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
	const op = "service.booking.GetBooking"

	out, err := s.stores.Bookings().GetWithDetails(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListBookings lists a customer's bookings by email, newest first.
// Matching is case-insensitive on the email address.
func (s *Service) ListBookings(ctx context.Context, email string) ([]domain.Booking, error) {
	const op = "service.booking.ListBookings"

	if email == "" {
		return nil, fmt.Errorf("%s:%w: email is required", op, ErrInvalidRequest)
	}

	out, err := s.stores.Bookings().ListByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListSlotBookings lists every booking taken against a slot, oldest
// first. Ops read for inspecting a contended slot.
//
// Returns:
//   - []domain.Booking: the slot's bookings.
//   - error: booking.ErrSlotNotFound if the slot does not exist.
func (s *Service) ListSlotBookings(ctx context.Context, slotID int64) ([]domain.Booking, error) {
	const op = "service.booking.ListSlotBookings"

	if _, err := s.stores.Slots().Get(ctx, slotID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrSlotNotFound)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out, err := s.stores.Bookings().ListBySlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
