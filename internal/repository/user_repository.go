package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"studio/api/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

const uniqueViolation = "23505"

const userColumns = `
	id, name, email, password_hash, phone, role, profile_completed, verified,
	otp_code, otp_expires_at, reset_token_hash, reset_expires_at, created_at, updated_at
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, name, email, password_hash, phone, role, profile_completed, verified, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $9
		)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.Role,
		user.ProfileCompleted,
		user.Verified,
		user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token_hash = $1 AND reset_expires_at > $2`
	return scanUser(r.pool.QueryRow(ctx, query, tokenHash, now))
}

// List returns users ordered newest first. An empty role lists everyone.
func (r *UserRepository) List(ctx context.Context, role models.UserRole) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ($1 = '' OR role = $1) ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, name string, phone string, completed bool) (models.User, error) {
	query := `
		UPDATE users
		SET name = $2, phone = $3, profile_completed = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, query, id, name, phone, completed))
}

// UpdatePassword replaces the hash and clears any outstanding reset token.
func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash []byte) error {
	const query = `
		UPDATE users
		SET password_hash = $2, reset_token_hash = NULL, reset_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, passwordHash)
}

func (r *UserRepository) SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error {
	const query = `
		UPDATE users SET reset_token_hash = $2, reset_expires_at = $3, updated_at = NOW() WHERE id = $1
	`
	return r.execOne(ctx, query, id, tokenHash, expiresAt)
}

func (r *UserRepository) SetOTP(ctx context.Context, id string, code string, expiresAt time.Time) error {
	const query = `
		UPDATE users SET otp_code = $2, otp_expires_at = $3, updated_at = NOW() WHERE id = $1
	`
	return r.execOne(ctx, query, id, code, expiresAt)
}

func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	const query = `
		UPDATE users SET verified = TRUE, otp_code = NULL, otp_expires_at = NULL, updated_at = NOW() WHERE id = $1
	`
	return r.execOne(ctx, query, id)
}

func (r *UserRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Phone,
		&user.Role,
		&user.ProfileCompleted,
		&user.Verified,
		&user.OTPCode,
		&user.OTPExpiresAt,
		&user.ResetTokenHash,
		&user.ResetExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
