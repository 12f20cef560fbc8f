package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/api/internal/events"
	"studio/api/internal/ids"
	"studio/api/internal/models"
	"studio/api/internal/repository"
)

const dateLayout = "2006-01-02"

type BookingService struct {
	bookings BookingStore
	events   events.Publisher
	enforce  bool
	log      zerolog.Logger
	now      func() time.Time
}

func NewBookingService(bookings BookingStore, publisher events.Publisher, enforceTransitions bool, log zerolog.Logger) *BookingService {
	return &BookingService{
		bookings: bookings,
		events:   publisher,
		enforce:  enforceTransitions,
		log:      log,
		now:      time.Now,
	}
}

type BookingInput struct {
	CustomerName        string
	Email               string
	Phone               string
	ServiceType         string
	Date                string
	Time                string
	Location            string
	SpecialInstructions string
	Category            string
}

// Create stores a new pending booking. A nil caller books as guest.
func (s *BookingService) Create(ctx context.Context, caller *Identity, input BookingInput) (models.Booking, error) {
	required := map[string]string{
		"customerName": input.CustomerName,
		"email":        input.Email,
		"phone":        input.Phone,
		"serviceType":  input.ServiceType,
		"date":         input.Date,
		"location":     input.Location,
	}
	for _, field := range []string{"customerName", "email", "phone", "serviceType", "date", "location"} {
		if strings.TrimSpace(required[field]) == "" {
			return models.Booking{}, invalidInput("%s is required", field)
		}
	}

	date, err := parseDate(input.Date)
	if err != nil {
		return models.Booking{}, invalidInput("date must be YYYY-MM-DD")
	}

	category := models.BookingCategory(strings.ToLower(strings.TrimSpace(input.Category)))
	if category == "" {
		category = models.BookingCategoryShoot
	}
	if !category.Valid() {
		return models.Booking{}, invalidInput("bookingType must be shoot or studio")
	}

	owner := models.GuestUserID
	if caller != nil {
		owner = caller.UserID
	}

	now := s.now().UTC()
	booking := models.Booking{
		ID:                  ids.New(),
		UserID:              owner,
		CustomerName:        strings.TrimSpace(input.CustomerName),
		Email:               strings.TrimSpace(strings.ToLower(input.Email)),
		Phone:               strings.TrimSpace(input.Phone),
		ServiceType:         strings.TrimSpace(input.ServiceType),
		Date:                date,
		Time:                strings.TrimSpace(input.Time),
		Location:            strings.TrimSpace(input.Location),
		SpecialInstructions: strings.TrimSpace(input.SpecialInstructions),
		Category:            category,
		Status:              models.BookingStatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return models.Booking{}, fmt.Errorf("save booking: %w", err)
	}

	s.publish(ctx, events.BookingCreated, booking)
	return booking, nil
}

// List returns every booking for admins and only the caller's own otherwise.
// Admins may narrow the list with filterUserID.
func (s *BookingService) List(ctx context.Context, caller Identity, filterUserID string) ([]models.Booking, error) {
	owner := caller.UserID
	if caller.IsAdmin() {
		owner = strings.TrimSpace(filterUserID)
	}
	return s.bookings.List(ctx, owner)
}

func (s *BookingService) UpdateStatus(ctx context.Context, caller Identity, id string, status string) (models.Booking, error) {
	if !caller.IsAdmin() {
		return models.Booking{}, ErrForbidden
	}
	next := models.BookingStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return models.Booking{}, invalidInput("unknown status %q", status)
	}

	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return models.Booking{}, ErrNotFound
		}
		return models.Booking{}, err
	}

	if !current.Status.CanTransitionTo(next) {
		if s.enforce {
			return models.Booking{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
		}
		s.log.Warn().Str("booking_id", id).Str("from", string(current.Status)).Str("to", string(next)).
			Msg("booking transition outside state machine allowed")
	}

	updated, err := s.bookings.UpdateStatus(ctx, id, next)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return models.Booking{}, ErrNotFound
		}
		return models.Booking{}, err
	}

	if current.Status != next {
		s.publish(ctx, events.BookingStatusChanged, map[string]any{
			"bookingId": updated.ID,
			"userId":    updated.UserID,
			"email":     updated.Email,
			"from":      current.Status,
			"to":        next,
		})
	}
	return updated, nil
}

func (s *BookingService) publish(ctx context.Context, key string, payload any) {
	if err := s.events.Publish(ctx, key, payload); err != nil {
		s.log.Warn().Err(err).Str("event", key).Msg("publish event failed")
	}
}

// parseDate accepts a calendar date, or an RFC 3339 timestamp from clients
// that serialise date pickers as full instants.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
