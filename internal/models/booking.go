package models

import "time"

// GuestUserID owns bookings submitted without authentication.
const GuestUserID = "guest"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
// Re-applying the current status is allowed.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type BookingCategory string

const (
	BookingCategoryShoot  BookingCategory = "shoot"
	BookingCategoryStudio BookingCategory = "studio"
)

func (c BookingCategory) Valid() bool {
	return c == BookingCategoryShoot || c == BookingCategoryStudio
}

type Booking struct {
	ID                  string
	UserID              string
	CustomerName        string
	Email               string
	Phone               string
	ServiceType         string
	Date                time.Time
	Time                string
	Location            string
	SpecialInstructions string
	Category            BookingCategory
	Status              BookingStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
