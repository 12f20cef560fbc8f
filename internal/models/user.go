package models

import "time"

type UserRole string

const (
	UserRoleClient UserRole = "client"
	UserRoleAdmin  UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == UserRoleClient || r == UserRoleAdmin
}

type User struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     []byte
	Phone            string
	Role             UserRole
	ProfileCompleted bool
	Verified         bool
	OTPCode          *string
	OTPExpiresAt     *time.Time
	ResetTokenHash   *string
	ResetExpiresAt   *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// Session is one login. Rows are deactivated on logout, never removed.
type Session struct {
	ID           string
	UserID       string
	TokenHash    []byte
	IPAddress    string
	UserAgent    string
	IsActive     bool
	LastActiveAt time.Time
	CreatedAt    time.Time
	ExpiresAt    time.Time
}
