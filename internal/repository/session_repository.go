package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studio/api/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

const sessionColumns = `
	id, user_id, token_hash, ip_address, user_agent, is_active, last_active_at, created_at, expires_at
`

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO user_sessions (
			id, user_id, token_hash, ip_address, user_agent, is_active, last_active_at, created_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.IPAddress,
		session.UserAgent,
		session.IsActive,
		session.LastActiveAt,
		session.CreatedAt,
		session.ExpiresAt,
	)
	return err
}

// FindActive returns the session owned by userID whose token hash matches,
// provided it is still active and not past its absolute expiry.
func (r *SessionRepository) FindActive(ctx context.Context, userID string, tokenHash []byte, now time.Time) (models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM user_sessions
		WHERE user_id = $1 AND token_hash = $2 AND is_active AND expires_at > $3
	`
	return scanSession(r.pool.QueryRow(ctx, query, userID, tokenHash, now))
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM user_sessions
		WHERE user_id = $1
		ORDER BY last_active_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) Touch(ctx context.Context, sessionID string, at time.Time) error {
	const query = `UPDATE user_sessions SET last_active_at = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, sessionID, at)
	return err
}

// Deactivate is idempotent: deactivating an inactive session is not an error.
func (r *SessionRepository) Deactivate(ctx context.Context, sessionID string) error {
	const query = `UPDATE user_sessions SET is_active = FALSE WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, sessionID)
	return err
}

func scanSession(row pgx.Row) (models.Session, error) {
	var session models.Session
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.IPAddress,
		&session.UserAgent,
		&session.IsActive,
		&session.LastActiveAt,
		&session.CreatedAt,
		&session.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}
