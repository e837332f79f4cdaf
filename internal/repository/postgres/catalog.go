package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookit-platform/bookit/internal/domain"
)

type CatalogRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const experienceColumns = `id, title, description, location, duration, price,
	images, rating, reviews, category, highlights, included, not_included, created_at`

// ListExperiences lists experiences, newest first.
func (r *CatalogRepo) ListExperiences(ctx context.Context, limit, offset int) ([]domain.Experience, error) {
	const op = "postgres.CatalogRepo.ListExperiences"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+experienceColumns+`
       	 FROM experiences
      	 ORDER BY created_at DESC
      	 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Experience
	for rows.Next() {
		var e domain.Experience
		if err := scanExperience(rows, &e); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// GetExperience retrieves an experience by its ID.
//
// Returns:
//   - *domain.Experience: the experience when found.
//   - error: repository.ErrNotFound if the experience does not exist.
func (r *CatalogRepo) GetExperience(ctx context.Context, id int64) (*domain.Experience, error) {
	const op = "postgres.CatalogRepo.GetExperience"

	db := r.handle()

	var e domain.Experience
	err := scanExperience(db.QueryRow(ctx,
		`SELECT `+experienceColumns+` FROM experiences WHERE id = $1`,
		id,
	), &e)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &e, nil
}

// CreateExperience inserts a catalog row and returns its ID.
func (r *CatalogRepo) CreateExperience(ctx context.Context, e *domain.Experience) (int64, error) {
	const op = "postgres.CatalogRepo.CreateExperience"

	db := r.handle()

	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO experiences(
			title, description, location, duration, price,
			images, rating, reviews, category, highlights, included, not_included)
       	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
     	 RETURNING id`,
		e.Title, e.Description, e.Location, e.Duration, e.Price,
		e.Images, e.Rating, e.Reviews, e.Category,
		e.Highlights, e.Included, e.NotIncluded,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

// BatchCreateSlots inserts slots for an experience in one round trip.
func (r *CatalogRepo) BatchCreateSlots(ctx context.Context, experienceID int64, slots []domain.Slot) error {
	const op = "postgres.CatalogRepo.BatchCreateSlots"

	db := r.handle()

	batch := &pgx.Batch{}
	for _, s := range slots {
		batch.Queue(
			`INSERT INTO slots(experience_id, date, time_label, available_spots, total_spots)
         	 VALUES ($1, $2, $3, $4, $5)`,
			experienceID, s.Date, s.Time, s.AvailableSpots, s.TotalSpots,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func scanExperience(row pgx.Row, e *domain.Experience) error {
	return row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Location, &e.Duration, &e.Price,
		&e.Images, &e.Rating, &e.Reviews, &e.Category,
		&e.Highlights, &e.Included, &e.NotIncluded, &e.CreatedAt,
	)
}
