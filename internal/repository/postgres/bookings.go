package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookit-platform/bookit/internal/domain"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Insert writes a new booking with status confirmed. It must run on the
// same transaction as the capacity decrement it is paired with; callers
// pass that transaction via With.
//
// Returns:
//   - uuid.UUID: the booking ID when successful.
//   - error: repository.ErrConflict on an ID collision.
func (r *BookingRepo) Insert(ctx context.Context, b *domain.Booking) (uuid.UUID, error) {
	const op = "postgres.BookingRepo.Insert"

	db := r.handle()

	id := uuid.New()
	if _, err := db.Exec(ctx,
		`INSERT INTO bookings(
			id, experience_id, slot_id,
			customer_name, customer_email, customer_phone,
			guests, promo_code, discount, total_price, status)
       	 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11)`,
		id, b.ExperienceID, b.SlotID,
		b.Customer.Name, b.Customer.Email, b.Customer.Phone,
		b.Guests, b.PromoCode, b.Discount, b.TotalPrice, string(domain.BookingConfirmed),
	); err != nil {
		return uuid.Nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return id, nil
}

// GetWithDetails retrieves a booking joined with its slot and
// experience. Display read only, runs outside any write transaction.
//
// Returns:
//   - *domain.BookingWithDetails: the booking when found.
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) GetWithDetails(ctx context.Context, id uuid.UUID) (*domain.BookingWithDetails, error) {
	const op = "postgres.BookingRepo.GetWithDetails"

	db := r.handle()

	var out domain.BookingWithDetails
	var promo *string
	var status string

	err := db.QueryRow(ctx,
		`SELECT b.id, b.experience_id, b.slot_id,
		        b.customer_name, b.customer_email, b.customer_phone,
		        b.guests, b.promo_code, b.discount, b.total_price, b.status,
		        b.created_at, b.updated_at,
		        e.id, e.title, e.description, e.location, e.duration, e.price,
		        e.images, e.rating, e.reviews, e.category,
		        e.highlights, e.included, e.not_included, e.created_at,
		        s.id, s.experience_id, s.date, s.time_label,
		        s.available_spots, s.total_spots, s.created_at, s.updated_at
       	 FROM bookings b
       	 JOIN experiences e ON e.id = b.experience_id
       	 JOIN slots s ON s.id = b.slot_id
      	 WHERE b.id = $1`,
		id,
	).Scan(
		&out.ID, &out.ExperienceID, &out.SlotID,
		&out.Customer.Name, &out.Customer.Email, &out.Customer.Phone,
		&out.Guests, &promo, &out.Discount, &out.TotalPrice, &status,
		&out.CreatedAt, &out.UpdatedAt,
		&out.Experience.ID, &out.Experience.Title, &out.Experience.Description,
		&out.Experience.Location, &out.Experience.Duration, &out.Experience.Price,
		&out.Experience.Images, &out.Experience.Rating, &out.Experience.Reviews,
		&out.Experience.Category, &out.Experience.Highlights,
		&out.Experience.Included, &out.Experience.NotIncluded,
		&out.Experience.CreatedAt,
		&out.Slot.ID, &out.Slot.ExperienceID, &out.Slot.Date, &out.Slot.Time,
		&out.Slot.AvailableSpots, &out.Slot.TotalSpots,
		&out.Slot.CreatedAt, &out.Slot.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if promo != nil {
		out.PromoCode = *promo
	}
	out.Status = domain.BookingStatus(status)

	return &out, nil
}

// ListByEmail lists a customer's bookings, newest first. Emails are
// stored as given by the customer, so the comparison lowercases both
// sides.
func (r *BookingRepo) ListByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListByEmail"

	return r.list(ctx, op,
		`SELECT id, experience_id, slot_id,
		        customer_name, customer_email, customer_phone,
		        guests, promo_code, discount, total_price, status,
		        created_at, updated_at
       	 FROM bookings
      	 WHERE lower(customer_email) = lower($1)
      	 ORDER BY created_at DESC`,
		email,
	)
}

// ListBySlot lists every booking taken against a slot.
func (r *BookingRepo) ListBySlot(ctx context.Context, slotID int64) ([]domain.Booking, error) {
	const op = "postgres.BookingRepo.ListBySlot"

	return r.list(ctx, op,
		`SELECT id, experience_id, slot_id,
		        customer_name, customer_email, customer_phone,
		        guests, promo_code, discount, total_price, status,
		        created_at, updated_at
       	 FROM bookings
      	 WHERE slot_id = $1
      	 ORDER BY created_at`,
		slotID,
	)
}

func (r *BookingRepo) list(ctx context.Context, op, sql string, args ...any) ([]domain.Booking, error) {
	db := r.handle()

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		var b domain.Booking
		var promo *string
		var status string

		if err := rows.Scan(
			&b.ID, &b.ExperienceID, &b.SlotID,
			&b.Customer.Name, &b.Customer.Email, &b.Customer.Phone,
			&b.Guests, &promo, &b.Discount, &b.TotalPrice, &status,
			&b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		if promo != nil {
			b.PromoCode = *promo
		}
		b.Status = domain.BookingStatus(status)

		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
