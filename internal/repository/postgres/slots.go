package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookit-platform/bookit/internal/domain"
	"github.com/bookit-platform/bookit/internal/repository"
)

type SlotRepo struct {
	pool *pgxpool.Pool
	db   DB
}

// With rebinds the repo onto an ambient transaction.
func (r *SlotRepo) With(db DB) *SlotRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SlotRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Get retrieves a slot by its ID.
//
// Returns:
//   - *domain.Slot: the slot when found.
//   - error: repository.ErrNotFound if the slot does not exist.
func (r *SlotRepo) Get(ctx context.Context, slotID int64) (*domain.Slot, error) {
	const op = "postgres.SlotRepo.Get"

	db := r.handle()

	var s domain.Slot
	err := db.QueryRow(ctx,
		`SELECT id, experience_id, date, time_label, available_spots, total_spots, created_at, updated_at
       	 FROM slots WHERE id = $1`,
		slotID,
	).Scan(
		&s.ID,
		&s.ExperienceID,
		&s.Date,
		&s.Time,
		&s.AvailableSpots,
		&s.TotalSpots,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &s, nil
}

// GetForExperience retrieves a slot by ID, requiring that it belongs to
// the given experience. A missing slot and an experience mismatch are
// indistinguishable to the caller.
//
// Returns:
//   - *domain.Slot: the slot when found.
//   - error: repository.ErrNotFound if no such slot exists for the experience.
func (r *SlotRepo) GetForExperience(ctx context.Context, slotID, experienceID int64) (*domain.Slot, error) {
	const op = "postgres.SlotRepo.GetForExperience"

	db := r.handle()

	var s domain.Slot
	err := db.QueryRow(ctx,
		`SELECT id, experience_id, date, time_label, available_spots, total_spots, created_at, updated_at
       	 FROM slots WHERE id = $1 AND experience_id = $2`,
		slotID, experienceID,
	).Scan(
		&s.ID,
		&s.ExperienceID,
		&s.Date,
		&s.Time,
		&s.AvailableSpots,
		&s.TotalSpots,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &s, nil
}

// DecrementSpots atomically reduces available_spots by spots, only if
// enough capacity remains at the instant of the update. The guard in the
// WHERE clause makes two racing decrements serialize on the row lock;
// the loser sees the already-reduced value and fails the guard.
//
// Returns:
//   - error: repository.ErrInsufficientCapacity if the slot exists but
//     holds fewer than spots available spots.
//   - error: repository.ErrNotFound if the slot does not exist.
func (r *SlotRepo) DecrementSpots(ctx context.Context, slotID int64, spots int) error {
	const op = "postgres.SlotRepo.DecrementSpots"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE slots
        	SET available_spots = available_spots - $2, updated_at = now()
      	 WHERE id = $1 AND available_spots >= $2`,
		slotID, spots,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM slots WHERE id = $1)`,
			slotID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		if !exists {
			return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
		}

		return fmt.Errorf("%s:%w", op, repository.ErrInsufficientCapacity)
	}

	return nil
}

// ListAvailableByExperience lists an experience's slots that still have
// spots left, ordered by date and time.
func (r *SlotRepo) ListAvailableByExperience(ctx context.Context, experienceID int64) ([]domain.Slot, error) {
	const op = "postgres.SlotRepo.ListAvailableByExperience"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, experience_id, date, time_label, available_spots, total_spots, created_at, updated_at
       	 FROM slots
      	 WHERE experience_id = $1 AND available_spots > 0
      	 ORDER BY date, time_label`,
		experienceID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Slot
	for rows.Next() {
		var s domain.Slot
		if err := rows.Scan(
			&s.ID,
			&s.ExperienceID,
			&s.Date,
			&s.Time,
			&s.AvailableSpots,
			&s.TotalSpots,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
