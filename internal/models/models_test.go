package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatusTransitions(t *testing.T) {
	tests := []struct {
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{BookingStatusPending, BookingStatusConfirmed, true},
		{BookingStatusPending, BookingStatusCancelled, true},
		{BookingStatusPending, BookingStatusCompleted, false},
		{BookingStatusConfirmed, BookingStatusCompleted, true},
		{BookingStatusConfirmed, BookingStatusCancelled, true},
		{BookingStatusConfirmed, BookingStatusPending, false},
		{BookingStatusCompleted, BookingStatusCancelled, false},
		{BookingStatusCancelled, BookingStatusConfirmed, false},
		{BookingStatusCompleted, BookingStatusCompleted, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestGalleryExpired(t *testing.T) {
	expiry := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	g := Gallery{AutoDelete: true, ExpiresAt: &expiry}
	assert.False(t, g.Expired(expiry.Add(-time.Second)))
	assert.True(t, g.Expired(expiry))
	assert.True(t, g.Expired(expiry.Add(time.Hour)))

	g.AutoDelete = false
	assert.False(t, g.Expired(expiry.Add(time.Hour)), "auto delete off never expires")

	assert.False(t, Gallery{AutoDelete: true}.Expired(expiry), "no expiry set")
}

func TestGallerySharedWith(t *testing.T) {
	g := Gallery{UserIDs: []string{"u1", "u2"}}
	assert.True(t, g.SharedWith("u2"))
	assert.False(t, g.SharedWith("u3"))
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, UserRoleAdmin.Valid())
	assert.False(t, UserRole("superadmin").Valid())
	assert.True(t, BookingCategoryStudio.Valid())
	assert.False(t, BookingCategory("wedding").Valid())
	assert.True(t, InvoiceStatusOverdue.Valid())
	assert.False(t, InvoiceStatus("void").Valid())
	assert.False(t, BookingStatus("archived").Valid())
}
