package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studio/api/internal/models"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

const invoiceColumns = `
	id, user_id, booking_id, admin_name, amount::float8, description, due_date, status, items, created_at, updated_at
`

type InvoiceRepository struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepository(pool *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice models.Invoice) error {
	const query = `
		INSERT INTO invoices (
			id, user_id, booking_id, admin_name, amount, description, due_date, status, items, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10
		)
	`

	items := invoice.Items
	if items == nil {
		items = []models.InvoiceItem{}
	}

	_, err := r.pool.Exec(ctx, query,
		invoice.ID,
		invoice.UserID,
		invoice.BookingID,
		invoice.AdminName,
		invoice.Amount,
		invoice.Description,
		invoice.DueDate,
		invoice.Status,
		items,
		invoice.CreatedAt,
	)
	return err
}

// List returns invoices newest first. An empty userID lists all invoices.
func (r *InvoiceRepository) List(ctx context.Context, userID string) ([]models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id string, status models.InvoiceStatus) (models.Invoice, error) {
	query := `
		UPDATE invoices SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + invoiceColumns
	return scanInvoice(r.pool.QueryRow(ctx, query, id, status))
}

func scanInvoice(row pgx.Row) (models.Invoice, error) {
	var invoice models.Invoice
	if err := row.Scan(
		&invoice.ID,
		&invoice.UserID,
		&invoice.BookingID,
		&invoice.AdminName,
		&invoice.Amount,
		&invoice.Description,
		&invoice.DueDate,
		&invoice.Status,
		&invoice.Items,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Invoice{}, ErrInvoiceNotFound
		}
		return models.Invoice{}, err
	}
	return invoice, nil
}
