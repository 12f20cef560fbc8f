package servicetest

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio/api/internal/ids"
	"studio/api/internal/models"
	"studio/api/internal/repository"
	"studio/api/internal/security"
)

// The suites below pin the store semantics the services rely on. They run
// against the in-memory fakes and, when a database is available, against the
// Postgres repositories, so the two cannot drift apart silently.

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash []byte) error
	SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, id string) error
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	FindActive(ctx context.Context, userID string, tokenHash []byte, now time.Time) (models.Session, error)
	ListByUser(ctx context.Context, userID string) ([]models.Session, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error
	Deactivate(ctx context.Context, sessionID string) error
}

type BookingStore interface {
	Create(ctx context.Context, booking models.Booking) error
	GetByID(ctx context.Context, id string) (models.Booking, error)
	List(ctx context.Context, userID string) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) (models.Booking, error)
}

type GalleryStore interface {
	Create(ctx context.Context, gallery models.Gallery) error
	GetByID(ctx context.Context, id string) (models.Gallery, error)
	GetByPublicToken(ctx context.Context, token string) (models.Gallery, error)
	ListByRecipient(ctx context.Context, userID string) ([]models.Gallery, error)
	ListExpired(ctx context.Context, now time.Time) ([]models.Gallery, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type InvoiceStore interface {
	Create(ctx context.Context, invoice models.Invoice) error
	List(ctx context.Context, userID string) ([]models.Invoice, error)
	UpdateStatus(ctx context.Context, id string, status models.InvoiceStatus) (models.Invoice, error)
}

// contractNow is truncated so values survive a database round trip unchanged.
func contractNow() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func newContractUser(now time.Time) models.User {
	id := ids.New()
	return models.User{
		ID:           id,
		Name:         "Contract User",
		Email:        id + "@contract.test",
		PasswordHash: []byte("hash"),
		Role:         models.UserRoleClient,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func UserStoreContract(t *testing.T, users UserStore) {
	ctx := context.Background()
	now := contractNow()

	t.Run("create and lookup", func(t *testing.T) {
		user := newContractUser(now)
		require.NoError(t, users.Create(ctx, user))

		byEmail, err := users.FindByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		byID, err := users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, byID.Email)
		assert.Equal(t, models.UserRoleClient, byID.Role)
		assert.False(t, byID.Verified)
	})

	t.Run("duplicate email", func(t *testing.T) {
		user := newContractUser(now)
		require.NoError(t, users.Create(ctx, user))

		dup := newContractUser(now)
		dup.Email = user.Email
		assert.ErrorIs(t, users.Create(ctx, dup), repository.ErrEmailTaken)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := users.GetByID(ctx, ids.New())
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
		_, err = users.FindByEmail(ctx, ids.New()+"@contract.test")
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
		assert.ErrorIs(t, users.MarkVerified(ctx, ids.New()), repository.ErrUserNotFound)
	})

	t.Run("reset token expiry is exclusive", func(t *testing.T) {
		user := newContractUser(now)
		require.NoError(t, users.Create(ctx, user))

		hash := security.HashTokenHex(ids.New())
		expires := now.Add(time.Hour)
		require.NoError(t, users.SetResetToken(ctx, user.ID, hash, expires))

		found, err := users.FindByResetToken(ctx, hash, expires.Add(-time.Second))
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		_, err = users.FindByResetToken(ctx, hash, expires)
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})

	t.Run("password update clears reset token", func(t *testing.T) {
		user := newContractUser(now)
		require.NoError(t, users.Create(ctx, user))

		hash := security.HashTokenHex(ids.New())
		require.NoError(t, users.SetResetToken(ctx, user.ID, hash, now.Add(time.Hour)))
		require.NoError(t, users.UpdatePassword(ctx, user.ID, []byte("new-hash")))

		_, err := users.FindByResetToken(ctx, hash, now)
		assert.ErrorIs(t, err, repository.ErrUserNotFound)

		stored, err := users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("new-hash"), stored.PasswordHash)
		assert.Nil(t, stored.ResetTokenHash)
	})
}

// SessionStoreContract needs the user store too because sessions reference
// their owner.
func SessionStoreContract(t *testing.T, users UserStore, sessions SessionStore) {
	ctx := context.Background()
	now := contractNow()

	newSession := func(t *testing.T) models.Session {
		t.Helper()
		user := newContractUser(now)
		require.NoError(t, users.Create(ctx, user))
		session := models.Session{
			ID:           ids.New(),
			UserID:       user.ID,
			TokenHash:    security.HashToken(ids.New()),
			IPAddress:    "127.0.0.1",
			UserAgent:    "contract",
			IsActive:     true,
			LastActiveAt: now,
			CreatedAt:    now,
			ExpiresAt:    now.Add(time.Hour),
		}
		require.NoError(t, sessions.Create(ctx, session))
		return session
	}

	t.Run("active until expiry", func(t *testing.T) {
		session := newSession(t)

		found, err := sessions.FindActive(ctx, session.UserID, session.TokenHash, now)
		require.NoError(t, err)
		assert.Equal(t, session.ID, found.ID)
		assert.True(t, found.IsActive)

		_, err = sessions.FindActive(ctx, session.UserID, session.TokenHash, session.ExpiresAt)
		assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	})

	t.Run("bound to owner", func(t *testing.T) {
		session := newSession(t)
		_, err := sessions.FindActive(ctx, ids.New(), session.TokenHash, now)
		assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	})

	t.Run("deactivate", func(t *testing.T) {
		session := newSession(t)
		require.NoError(t, sessions.Deactivate(ctx, session.ID))
		require.NoError(t, sessions.Deactivate(ctx, session.ID))

		_, err := sessions.FindActive(ctx, session.UserID, session.TokenHash, now)
		assert.ErrorIs(t, err, repository.ErrSessionNotFound)

		listed, err := sessions.ListByUser(ctx, session.UserID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.False(t, listed[0].IsActive)
	})

	t.Run("touch", func(t *testing.T) {
		session := newSession(t)
		later := now.Add(10 * time.Minute)
		require.NoError(t, sessions.Touch(ctx, session.ID, later))

		listed, err := sessions.ListByUser(ctx, session.UserID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.True(t, later.Equal(listed[0].LastActiveAt))
	})
}

func newContractGallery(now time.Time, recipient string) models.Gallery {
	return models.Gallery{
		ID:      ids.New(),
		UserIDs: []string{recipient},
		AdminID: "admin",
		Photos: []models.Photo{{
			URL:          "https://media.test/p1.jpg",
			Handle:       "galleries/p1.jpg",
			OriginalName: "p1.jpg",
			MimeType:     "image/jpeg",
			Size:         42,
			UploadedAt:   now,
		}},
		Title:       "Contract",
		PublicToken: ids.New(),
		CreatedAt:   now,
	}
}

func GalleryStoreContract(t *testing.T, galleries GalleryStore) {
	ctx := context.Background()
	now := contractNow()

	t.Run("lookup by id and token", func(t *testing.T) {
		gallery := newContractGallery(now, ids.New())
		require.NoError(t, galleries.Create(ctx, gallery))

		byToken, err := galleries.GetByPublicToken(ctx, gallery.PublicToken)
		require.NoError(t, err)
		assert.Equal(t, gallery.ID, byToken.ID)
		assert.Equal(t, gallery.UserIDs, byToken.UserIDs)
		require.Len(t, byToken.Photos, 1)
		assert.Equal(t, "galleries/p1.jpg", byToken.Photos[0].Handle)
		assert.Equal(t, int64(42), byToken.Photos[0].Size)
		assert.True(t, now.Equal(byToken.Photos[0].UploadedAt))

		byID, err := galleries.GetByID(ctx, gallery.ID)
		require.NoError(t, err)
		assert.Equal(t, gallery.PublicToken, byID.PublicToken)
		assert.Nil(t, byID.ExpiresAt)

		_, err = galleries.GetByPublicToken(ctx, ids.New())
		assert.ErrorIs(t, err, repository.ErrGalleryNotFound)
	})

	t.Run("duplicate public token", func(t *testing.T) {
		gallery := newContractGallery(now, ids.New())
		require.NoError(t, galleries.Create(ctx, gallery))

		dup := newContractGallery(now, ids.New())
		dup.PublicToken = gallery.PublicToken
		assert.ErrorIs(t, galleries.Create(ctx, dup), repository.ErrPublicTokenTaken)
	})

	t.Run("list by recipient newest first", func(t *testing.T) {
		recipient := ids.New()
		older := newContractGallery(now.Add(-time.Hour), recipient)
		newer := newContractGallery(now, recipient)
		other := newContractGallery(now, ids.New())
		for _, g := range []models.Gallery{older, newer, other} {
			require.NoError(t, galleries.Create(ctx, g))
		}

		listed, err := galleries.ListByRecipient(ctx, recipient)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, newer.ID, listed[0].ID)
		assert.Equal(t, older.ID, listed[1].ID)
	})

	t.Run("list expired includes the expiry instant", func(t *testing.T) {
		at := now.Add(24 * time.Hour)
		past := at.Add(-time.Minute)
		future := at.Add(time.Minute)

		due := newContractGallery(now, ids.New())
		due.AutoDelete, due.ExpiresAt = true, &at
		overdue := newContractGallery(now, ids.New())
		overdue.AutoDelete, overdue.ExpiresAt = true, &past
		pending := newContractGallery(now, ids.New())
		pending.AutoDelete, pending.ExpiresAt = true, &future
		kept := newContractGallery(now, ids.New())
		kept.ExpiresAt = &past
		lasting := newContractGallery(now, ids.New())
		lasting.AutoDelete = true
		for _, g := range []models.Gallery{due, overdue, pending, kept, lasting} {
			require.NoError(t, galleries.Create(ctx, g))
		}

		expired, err := galleries.ListExpired(ctx, at)
		require.NoError(t, err)
		var got []string
		for _, g := range expired {
			got = append(got, g.ID)
		}
		assert.Contains(t, got, due.ID)
		assert.Contains(t, got, overdue.ID)
		assert.NotContains(t, got, pending.ID)
		assert.NotContains(t, got, kept.ID)
		assert.NotContains(t, got, lasting.ID)

		for _, g := range expired {
			if g.ID == due.ID {
				assert.True(t, g.Expired(at), "listed galleries must also report expired")
			}
		}
	})

	t.Run("delete once", func(t *testing.T) {
		gallery := newContractGallery(now, ids.New())
		require.NoError(t, galleries.Create(ctx, gallery))

		deleted, err := galleries.Delete(ctx, gallery.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = galleries.Delete(ctx, gallery.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		_, err = galleries.GetByID(ctx, gallery.ID)
		assert.ErrorIs(t, err, repository.ErrGalleryNotFound)
	})
}

func BookingStoreContract(t *testing.T, bookings BookingStore) {
	ctx := context.Background()
	now := contractNow()

	newBooking := func(userID string, createdAt time.Time) models.Booking {
		return models.Booking{
			ID:           ids.New(),
			UserID:       userID,
			CustomerName: "Ada",
			Email:        "ada@contract.test",
			Phone:        "555-0100",
			ServiceType:  "portrait",
			Date:         time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			Time:         "10:00",
			Location:     "Studio A",
			Category:     models.BookingCategoryShoot,
			Status:       models.BookingStatusPending,
			CreatedAt:    createdAt,
			UpdatedAt:    createdAt,
		}
	}

	owner := ids.New()
	older := newBooking(owner, now.Add(-time.Hour))
	newer := newBooking(owner, now)
	other := newBooking(ids.New(), now)
	for _, b := range []models.Booking{older, newer, other} {
		require.NoError(t, bookings.Create(ctx, b))
	}

	t.Run("list by owner newest first", func(t *testing.T) {
		listed, err := bookings.List(ctx, owner)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, newer.ID, listed[0].ID)
		assert.Equal(t, older.ID, listed[1].ID)
	})

	t.Run("empty owner lists all", func(t *testing.T) {
		listed, err := bookings.List(ctx, "")
		require.NoError(t, err)
		var got []string
		for _, b := range listed {
			got = append(got, b.ID)
		}
		for _, id := range []string{older.ID, newer.ID, other.ID} {
			assert.True(t, slices.Contains(got, id), "missing booking %s", id)
		}
	})

	t.Run("update status", func(t *testing.T) {
		updated, err := bookings.UpdateStatus(ctx, newer.ID, models.BookingStatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusConfirmed, updated.Status)

		stored, err := bookings.GetByID(ctx, newer.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusConfirmed, stored.Status)
		assert.Equal(t, "Studio A", stored.Location)

		_, err = bookings.UpdateStatus(ctx, ids.New(), models.BookingStatusConfirmed)
		assert.ErrorIs(t, err, repository.ErrBookingNotFound)
		_, err = bookings.GetByID(ctx, ids.New())
		assert.ErrorIs(t, err, repository.ErrBookingNotFound)
	})
}

func InvoiceStoreContract(t *testing.T, invoices InvoiceStore) {
	ctx := context.Background()
	now := contractNow()

	newInvoice := func(userID string, createdAt time.Time) models.Invoice {
		return models.Invoice{
			ID:          ids.New(),
			UserID:      userID,
			AdminName:   "Admin",
			Amount:      150.5,
			Description: "Portrait session",
			DueDate:     time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
			Status:      models.InvoiceStatusSent,
			Items: []models.InvoiceItem{
				{Description: "Session", Quantity: 1, UnitPrice: 150.5, Total: 150.5},
			},
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		}
	}

	owner := ids.New()
	older := newInvoice(owner, now.Add(-time.Hour))
	newer := newInvoice(owner, now)
	other := newInvoice(ids.New(), now)
	for _, inv := range []models.Invoice{older, newer, other} {
		require.NoError(t, invoices.Create(ctx, inv))
	}

	t.Run("list by owner newest first", func(t *testing.T) {
		listed, err := invoices.List(ctx, owner)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, newer.ID, listed[0].ID)
		assert.Equal(t, older.ID, listed[1].ID)
		assert.InDelta(t, 150.5, listed[0].Amount, 0.001)
		require.Len(t, listed[0].Items, 1)
		assert.Equal(t, "Session", listed[0].Items[0].Description)
	})

	t.Run("empty owner lists all", func(t *testing.T) {
		listed, err := invoices.List(ctx, "")
		require.NoError(t, err)
		var got []string
		for _, inv := range listed {
			got = append(got, inv.ID)
		}
		for _, id := range []string{older.ID, newer.ID, other.ID} {
			assert.True(t, slices.Contains(got, id), "missing invoice %s", id)
		}
	})

	t.Run("update status", func(t *testing.T) {
		updated, err := invoices.UpdateStatus(ctx, newer.ID, models.InvoiceStatusPaid)
		require.NoError(t, err)
		assert.Equal(t, models.InvoiceStatusPaid, updated.Status)

		_, err = invoices.UpdateStatus(ctx, ids.New(), models.InvoiceStatusPaid)
		assert.ErrorIs(t, err, repository.ErrInvoiceNotFound)
	})
}
