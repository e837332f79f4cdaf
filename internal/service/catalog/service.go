package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bookit-platform/bookit/internal/domain"
	redisx "github.com/bookit-platform/bookit/internal/redis"
	"github.com/bookit-platform/bookit/internal/repository"
	postgresrepo "github.com/bookit-platform/bookit/internal/repository/postgres"
	redisrepo "github.com/bookit-platform/bookit/internal/repository/redis"
	"github.com/bookit-platform/bookit/internal/uow"
)

type Config struct {
	ListTTL   time.Duration
	DetailTTL time.Duration
	ListPage  int
}

// Service serves the experience catalog: read paths are cached, write
// paths exist for seeding and administration. The reservation engine
// treats all of this as read-only collaborator data.
type Service struct {
	store *postgresrepo.Store
	cache *redisrepo.Cache
	uow   *uow.UoW
	cfg   Config
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = 60 * time.Second
	}

	// Slot availability goes stale fast under contention, keep it short.
	if cfg.DetailTTL <= 0 {
		cfg.DetailTTL = 15 * time.Second
	}

	if cfg.ListPage <= 0 {
		cfg.ListPage = 100
	}

	return &Service{
		store: store,
		cache: cache,
		uow:   uow.NewUoW(store),
		cfg:   cfg,
	}
}

// ListExperiences retrieves the experience catalog, newest first,
// through the cache.
func (s *Service) ListExperiences(ctx context.Context) ([]domain.Experience, error) {
	const op = "service.catalog.ListExperiences"

	out, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyExperienceList(),
		s.cfg.ListTTL,
		func(ctx context.Context) ([]domain.Experience, error) {
			return s.store.Catalog().ListExperiences(ctx, s.cfg.ListPage, 0)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// GetExperience retrieves an experience with its still-bookable slots
// (available spots > 0, ordered by date and time).
//
// Returns:
//   - *domain.ExperienceWithSlots: the experience when found.
//   - error: catalog.ErrExperienceNotFound if the experience does not exist.
func (s *Service) GetExperience(ctx context.Context, id int64) (*domain.ExperienceWithSlots, error) {
	const op = "service.catalog.GetExperience"

	out, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyExperienceSlots(id),
		s.cfg.DetailTTL,
		func(ctx context.Context) (domain.ExperienceWithSlots, error) {
			e, err := s.store.Catalog().GetExperience(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return domain.ExperienceWithSlots{}, ErrExperienceNotFound
				}

				return domain.ExperienceWithSlots{}, err
			}

			slots, err := s.store.Slots().ListAvailableByExperience(ctx, id)
			if err != nil {
				return domain.ExperienceWithSlots{}, err
			}

			return domain.ExperienceWithSlots{Experience: *e, Slots: slots}, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &out, nil
}

// CreateExperience creates a catalog row and returns its ID.
func (s *Service) CreateExperience(ctx context.Context, e *domain.Experience) (int64, error) {
	const op = "service.catalog.CreateExperience"

	var id int64
	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		var err error
		id, err = s.store.Catalog().With(tx).CreateExperience(ctx, e)
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.Del(ctx, redisx.KeyExperienceList())
		})

		return nil
	})

	return id, err
}

// CreateSlots batch-creates slots for an experience within a
// transactional unit of work. Capacity fields must satisfy
// 0 <= available <= total from the start.
//
// Returns:
//   - error: catalog.ErrExperienceNotFound if the experience does not exist.
//   - error: catalog.ErrInvalidSlot if a slot's capacity fields are out
//     of range.
func (s *Service) CreateSlots(ctx context.Context, experienceID int64, slots []domain.Slot) error {
	const op = "service.catalog.CreateSlots"

	if len(slots) == 0 {
		return fmt.Errorf("%s:%w: no slots given", op, ErrInvalidSlot)
	}

	for _, sl := range slots {
		if sl.TotalSpots < 1 || sl.AvailableSpots < 0 || sl.AvailableSpots > sl.TotalSpots {
			return fmt.Errorf("%s:%w: spots out of range", op, ErrInvalidSlot)
		}
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if _, err := s.store.Catalog().With(tx).GetExperience(ctx, experienceID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s:%w", op, ErrExperienceNotFound)
			}

			return fmt.Errorf("%s:%w", op, err)
		}

		if err := s.store.Catalog().With(tx).BatchCreateSlots(ctx, experienceID, slots); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateExperience(ctx, experienceID)
		})

		return nil
	})

	return err
}
