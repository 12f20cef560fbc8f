package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studio/api/internal/models"
)

var (
	ErrGalleryNotFound  = errors.New("gallery not found")
	ErrPublicTokenTaken = errors.New("public token already in use")
)

const galleryColumns = `
	id, user_ids, admin_id, photos, title, public_token, expires_at, auto_delete, created_at
`

type GalleryRepository struct {
	pool *pgxpool.Pool
}

func NewGalleryRepository(pool *pgxpool.Pool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

func (r *GalleryRepository) Create(ctx context.Context, gallery models.Gallery) error {
	const query = `
		INSERT INTO galleries (
			id, user_ids, admin_id, photos, title, public_token, expires_at, auto_delete, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	photos := gallery.Photos
	if photos == nil {
		photos = []models.Photo{}
	}

	_, err := r.pool.Exec(ctx, query,
		gallery.ID,
		gallery.UserIDs,
		gallery.AdminID,
		photos,
		gallery.Title,
		gallery.PublicToken,
		gallery.ExpiresAt,
		gallery.AutoDelete,
		gallery.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrPublicTokenTaken
	}
	return err
}

func (r *GalleryRepository) GetByID(ctx context.Context, id string) (models.Gallery, error) {
	query := `SELECT ` + galleryColumns + ` FROM galleries WHERE id = $1`
	return scanGallery(r.pool.QueryRow(ctx, query, id))
}

func (r *GalleryRepository) GetByPublicToken(ctx context.Context, token string) (models.Gallery, error) {
	query := `SELECT ` + galleryColumns + ` FROM galleries WHERE public_token = $1`
	return scanGallery(r.pool.QueryRow(ctx, query, token))
}

func (r *GalleryRepository) ListByRecipient(ctx context.Context, userID string) ([]models.Gallery, error) {
	query := `
		SELECT ` + galleryColumns + `
		FROM galleries
		WHERE $1 = ANY(user_ids)
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, userID)
}

// ListExpired returns auto-delete galleries whose expiry is at or before now,
// the same instant models.Gallery.Expired starts reporting true.
func (r *GalleryRepository) ListExpired(ctx context.Context, now time.Time) ([]models.Gallery, error) {
	query := `
		SELECT ` + galleryColumns + `
		FROM galleries
		WHERE auto_delete AND expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY expires_at
	`
	return r.list(ctx, query, now)
}

// Delete reports whether this call removed the row. A concurrent caller that
// lost the race gets false and no error.
func (r *GalleryRepository) Delete(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM galleries WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *GalleryRepository) list(ctx context.Context, query string, args ...any) ([]models.Gallery, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var galleries []models.Gallery
	for rows.Next() {
		gallery, err := scanGallery(rows)
		if err != nil {
			return nil, err
		}
		galleries = append(galleries, gallery)
	}
	return galleries, rows.Err()
}

func scanGallery(row pgx.Row) (models.Gallery, error) {
	var gallery models.Gallery
	if err := row.Scan(
		&gallery.ID,
		&gallery.UserIDs,
		&gallery.AdminID,
		&gallery.Photos,
		&gallery.Title,
		&gallery.PublicToken,
		&gallery.ExpiresAt,
		&gallery.AutoDelete,
		&gallery.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Gallery{}, ErrGalleryNotFound
		}
		return models.Gallery{}, err
	}
	return gallery, nil
}
