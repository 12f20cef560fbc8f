package service

import (
	"context"
	"time"

	"studio/api/internal/models"
	"studio/api/internal/storage"
)

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (models.User, error)
	List(ctx context.Context, role models.UserRole) ([]models.User, error)
	UpdateProfile(ctx context.Context, id string, name string, phone string, completed bool) (models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash []byte) error
	SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error
	SetOTP(ctx context.Context, id string, code string, expiresAt time.Time) error
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

// MediaStore is the external object store photos live in.
type MediaStore interface {
	Put(ctx context.Context, obj storage.Object) (storage.StoredObject, error)
	Remove(ctx context.Context, handle string) error
}

// Identity is the authenticated caller as established by AuthService.Authenticate.
type Identity struct {
	UserID    string
	Role      models.UserRole
	SessionID string
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.UserRoleAdmin
}
