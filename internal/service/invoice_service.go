package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/api/internal/events"
	"studio/api/internal/ids"
	"studio/api/internal/models"
	"studio/api/internal/repository"
)

type InvoiceService struct {
	invoices InvoiceStore
	users    UserStore
	events   events.Publisher
	log      zerolog.Logger
	now      func() time.Time
}

func NewInvoiceService(invoices InvoiceStore, users UserStore, publisher events.Publisher, log zerolog.Logger) *InvoiceService {
	return &InvoiceService{
		invoices: invoices,
		users:    users,
		events:   publisher,
		log:      log,
		now:      time.Now,
	}
}

type InvoiceItemInput struct {
	Description string
	Quantity    float64
	UnitPrice   float64
}

type InvoiceInput struct {
	UserID      string
	BookingID   string
	Amount      float64
	Description string
	DueDate     string
	Status      string
	Items       []InvoiceItemInput
}

func (s *InvoiceService) Create(ctx context.Context, caller Identity, input InvoiceInput) (models.Invoice, error) {
	if !caller.IsAdmin() {
		return models.Invoice{}, ErrForbidden
	}

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return models.Invoice{}, invalidInput("userId is required")
	}
	dueDate, err := parseDate(input.DueDate)
	if err != nil {
		return models.Invoice{}, invalidInput("dueDate must be YYYY-MM-DD")
	}

	status := models.InvoiceStatus(strings.ToLower(strings.TrimSpace(input.Status)))
	if status == "" {
		status = models.InvoiceStatusSent
	}
	if !status.Valid() {
		return models.Invoice{}, invalidInput("unknown status %q", input.Status)
	}

	items, itemsTotal, err := buildItems(input.Items)
	if err != nil {
		return models.Invoice{}, err
	}

	amount := input.Amount
	switch {
	case amount < 0:
		return models.Invoice{}, invalidInput("amount must not be negative")
	case len(items) > 0 && amount == 0:
		amount = itemsTotal
	case len(items) > 0 && toCents(amount) != toCents(itemsTotal):
		return models.Invoice{}, invalidInput("amount %.2f does not match item total %.2f", amount, itemsTotal)
	case len(items) == 0 && amount == 0:
		return models.Invoice{}, invalidInput("amount or items are required")
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.Invoice{}, invalidInput("unknown user %q", userID)
		}
		return models.Invoice{}, err
	}

	adminName := ""
	if admin, err := s.users.GetByID(ctx, caller.UserID); err == nil {
		adminName = admin.Name
	} else {
		s.log.Warn().Err(err).Str("admin_id", caller.UserID).Msg("resolve admin name failed")
	}

	var bookingID *string
	if id := strings.TrimSpace(input.BookingID); id != "" {
		bookingID = &id
	}

	now := s.now().UTC()
	invoice := models.Invoice{
		ID:          ids.New(),
		UserID:      userID,
		BookingID:   bookingID,
		AdminName:   adminName,
		Amount:      roundCents(amount),
		Description: strings.TrimSpace(input.Description),
		DueDate:     dueDate,
		Status:      status,
		Items:       items,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.invoices.Create(ctx, invoice); err != nil {
		return models.Invoice{}, fmt.Errorf("save invoice: %w", err)
	}

	if err := s.events.Publish(ctx, events.InvoiceCreated, map[string]any{
		"invoiceId": invoice.ID,
		"userId":    invoice.UserID,
		"amount":    invoice.Amount,
		"dueDate":   invoice.DueDate.Format(dateLayout),
	}); err != nil {
		s.log.Warn().Err(err).Str("invoice_id", invoice.ID).Msg("publish invoice event failed")
	}
	return invoice, nil
}

// List scopes clients to their own invoices; admins see all or filter by user.
func (s *InvoiceService) List(ctx context.Context, caller Identity, filterUserID string) ([]models.Invoice, error) {
	owner := caller.UserID
	if caller.IsAdmin() {
		owner = strings.TrimSpace(filterUserID)
	}
	return s.invoices.List(ctx, owner)
}

func (s *InvoiceService) UpdateStatus(ctx context.Context, caller Identity, id string, status string) (models.Invoice, error) {
	if !caller.IsAdmin() {
		return models.Invoice{}, ErrForbidden
	}
	next := models.InvoiceStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return models.Invoice{}, invalidInput("unknown status %q", status)
	}
	invoice, err := s.invoices.UpdateStatus(ctx, id, next)
	if errors.Is(err, repository.ErrInvoiceNotFound) {
		return models.Invoice{}, ErrNotFound
	}
	return invoice, err
}

func buildItems(inputs []InvoiceItemInput) ([]models.InvoiceItem, float64, error) {
	items := make([]models.InvoiceItem, 0, len(inputs))
	var totalCents int64
	for i, in := range inputs {
		if strings.TrimSpace(in.Description) == "" {
			return nil, 0, invalidInput("items[%d].description is required", i)
		}
		if in.Quantity <= 0 {
			return nil, 0, invalidInput("items[%d].quantity must be positive", i)
		}
		if in.UnitPrice < 0 {
			return nil, 0, invalidInput("items[%d].unitPrice must not be negative", i)
		}
		lineCents := toCents(in.Quantity * in.UnitPrice)
		totalCents += lineCents
		items = append(items, models.InvoiceItem{
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Total:       float64(lineCents) / 100,
		})
	}
	return items, float64(totalCents) / 100, nil
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func roundCents(v float64) float64 {
	return float64(toCents(v)) / 100
}
