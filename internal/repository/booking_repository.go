package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studio/api/internal/models"
)

var ErrBookingNotFound = errors.New("booking not found")

const bookingColumns = `
	id, user_id, customer_name, email, phone, service_type, booking_date, booking_time,
	location, special_instructions, category, status, created_at, updated_at
`

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Create(ctx context.Context, booking models.Booking) error {
	const query = `
		INSERT INTO bookings (
			id, user_id, customer_name, email, phone, service_type, booking_date, booking_time,
			location, special_instructions, category, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13
		)
	`

	_, err := r.pool.Exec(ctx, query,
		booking.ID,
		booking.UserID,
		booking.CustomerName,
		booking.Email,
		booking.Phone,
		booking.ServiceType,
		booking.Date,
		booking.Time,
		booking.Location,
		booking.SpecialInstructions,
		booking.Category,
		booking.Status,
		booking.CreatedAt,
	)
	return err
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.pool.QueryRow(ctx, query, id))
}

// List returns bookings newest first. An empty userID lists all bookings.
func (r *BookingRepository) List(ctx context.Context, userID string) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) (models.Booking, error) {
	query := `
		UPDATE bookings SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bookingColumns
	return scanBooking(r.pool.QueryRow(ctx, query, id, status))
}

func scanBooking(row pgx.Row) (models.Booking, error) {
	var booking models.Booking
	if err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.CustomerName,
		&booking.Email,
		&booking.Phone,
		&booking.ServiceType,
		&booking.Date,
		&booking.Time,
		&booking.Location,
		&booking.SpecialInstructions,
		&booking.Category,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Booking{}, ErrBookingNotFound
		}
		return models.Booking{}, err
	}
	return booking, nil
}
