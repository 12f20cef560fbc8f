package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/api/internal/events"
	"studio/api/internal/ids"
	"studio/api/internal/media/sniffer"
	"studio/api/internal/media/svg"
	"studio/api/internal/models"
	"studio/api/internal/repository"
	"studio/api/internal/security"
	"studio/api/internal/storage"
)

const (
	publicTokenLen      = 24
	publicTokenAttempts = 3
	// MaxExpiryHours bounds share links to ten years.
	MaxExpiryHours = 24 * 365 * 10
)

type GalleryService struct {
	galleries   GalleryStore
	media       MediaStore
	events      events.Publisher
	frontendURL string
	maxFileSize int64
	log         zerolog.Logger
	now         func() time.Time
}

func NewGalleryService(
	galleries GalleryStore,
	media MediaStore,
	publisher events.Publisher,
	frontendURL string,
	maxFileSize int64,
	log zerolog.Logger,
) *GalleryService {
	return &GalleryService{
		galleries:   galleries,
		media:       media,
		events:      publisher,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
		maxFileSize: maxFileSize,
		log:         log,
		now:         time.Now,
	}
}

// UploadFile is one file of a gallery upload. Open is called once, in order.
type UploadFile struct {
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

type UploadInput struct {
	UserIDs     []string
	Files       []UploadFile
	Title       string
	ExpiryHours float64
}

type UploadResult struct {
	Gallery  models.Gallery
	ShareURL string
}

func (s *GalleryService) Upload(ctx context.Context, caller Identity, input UploadInput) (UploadResult, error) {
	if !caller.IsAdmin() {
		return UploadResult{}, ErrForbidden
	}

	recipients := dedupe(input.UserIDs)
	if len(recipients) == 0 {
		return UploadResult{}, invalidInput("at least one user is required")
	}
	if len(input.Files) == 0 {
		return UploadResult{}, invalidInput("at least one photo is required")
	}
	if math.IsNaN(input.ExpiryHours) || math.IsInf(input.ExpiryHours, 0) {
		return UploadResult{}, invalidInput("expiryHours must be a finite number")
	}
	if input.ExpiryHours < 0 {
		return UploadResult{}, invalidInput("expiryHours must not be negative")
	}
	if input.ExpiryHours > MaxExpiryHours {
		return UploadResult{}, invalidInput("expiryHours must not exceed %d", MaxExpiryHours)
	}

	now := s.now().UTC()
	gallery := models.Gallery{
		ID:        ids.New(),
		UserIDs:   recipients,
		AdminID:   caller.UserID,
		Title:     strings.TrimSpace(input.Title),
		CreatedAt: now,
	}
	if gallery.Title == "" {
		gallery.Title = "Gallery " + now.Format("2006-01-02")
	}
	if input.ExpiryHours > 0 {
		expiresAt := now.Add(time.Duration(input.ExpiryHours * float64(time.Hour)))
		gallery.ExpiresAt = &expiresAt
		gallery.AutoDelete = true
	}

	photos := make([]models.Photo, 0, len(input.Files))
	for i, file := range input.Files {
		photo, err := s.storePhoto(ctx, gallery.ID, file)
		if err != nil {
			s.rollback(photos)
			return UploadResult{}, fmt.Errorf("photo %d (%s): %w", i, file.Filename, err)
		}
		photos = append(photos, photo)
	}
	gallery.Photos = photos

	if err := s.insertWithToken(ctx, &gallery); err != nil {
		s.rollback(photos)
		return UploadResult{}, fmt.Errorf("save gallery: %w", err)
	}

	if err := s.events.Publish(ctx, events.GalleryShared, map[string]any{
		"galleryId": gallery.ID,
		"userIds":   gallery.UserIDs,
		"photos":    len(gallery.Photos),
		"expiresAt": gallery.ExpiresAt,
	}); err != nil {
		s.log.Warn().Err(err).Str("gallery_id", gallery.ID).Msg("publish gallery event failed")
	}

	s.log.Info().
		Str("gallery_id", gallery.ID).
		Int("photos", len(photos)).
		Strs("user_ids", recipients).
		Bool("auto_delete", gallery.AutoDelete).
		Msg("gallery uploaded")

	return UploadResult{Gallery: gallery, ShareURL: s.ShareURL(gallery.PublicToken)}, nil
}

func (s *GalleryService) ShareURL(publicToken string) string {
	return fmt.Sprintf("%s/gallery/shared/%s", s.frontendURL, publicToken)
}

func (s *GalleryService) storePhoto(ctx context.Context, galleryID string, file UploadFile) (models.Photo, error) {
	rc, err := file.Open()
	if err != nil {
		return models.Photo{}, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, s.maxFileSize+1))
	if err != nil {
		return models.Photo{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return models.Photo{}, invalidInput("empty file")
	}
	if int64(len(data)) > s.maxFileSize {
		return models.Photo{}, invalidInput("file exceeds %d bytes", s.maxFileSize)
	}

	detected, err := sniffer.DetectHead(data)
	if err != nil {
		return models.Photo{}, invalidInput("unsupported file type")
	}
	if detected.Type == sniffer.TypeSVG {
		clean, err := svg.Sanitize(data)
		if err != nil {
			return models.Photo{}, invalidInput("invalid svg")
		}
		data = clean
	}

	key := fmt.Sprintf("galleries/%s/%s.%s", galleryID, ids.New(), detected.Type.Extension())
	stored, err := s.media.Put(ctx, storage.Object{
		Key:         key,
		ContentType: detected.MIME,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		return models.Photo{}, err
	}

	size := stored.Size
	if size == 0 {
		size = int64(len(data))
	}
	return models.Photo{
		URL:          stored.URL,
		Handle:       stored.Handle,
		OriginalName: file.Filename,
		MimeType:     detected.MIME,
		Size:         size,
		UploadedAt:   s.now().UTC(),
	}, nil
}

func (s *GalleryService) insertWithToken(ctx context.Context, gallery *models.Gallery) error {
	var err error
	for attempt := 0; attempt < publicTokenAttempts; attempt++ {
		gallery.PublicToken, err = security.GenerateOpaqueToken(publicTokenLen)
		if err != nil {
			return err
		}
		err = s.galleries.Create(ctx, *gallery)
		if !errors.Is(err, repository.ErrPublicTokenTaken) {
			return err
		}
	}
	return err
}

// rollback removes objects of an upload that will not be recorded. It runs
// detached from the request context, which may already be cancelled.
func (s *GalleryService) rollback(photos []models.Photo) {
	if len(photos) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.removePhotos(ctx, photos); err != nil {
		s.log.Error().Err(err).Msg("rollback uploaded photos failed")
	}
}

// ListForUser returns the galleries shared with userID that are still
// accessible. Expired auto-delete galleries are hidden before cleanup runs.
func (s *GalleryService) ListForUser(ctx context.Context, caller Identity, userID string) ([]models.Gallery, error) {
	if caller.UserID != userID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	galleries, err := s.galleries.ListByRecipient(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	visible := galleries[:0]
	for _, gallery := range galleries {
		if !gallery.Expired(now) {
			visible = append(visible, gallery)
		}
	}
	return visible, nil
}

// GetPublic resolves a share link. The token is the only credential; an
// auto-delete gallery past its expiry reads as gone even before cleanup.
func (s *GalleryService) GetPublic(ctx context.Context, token string) (models.Gallery, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Gallery{}, ErrNotFound
	}
	gallery, err := s.galleries.GetByPublicToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrGalleryNotFound) {
			return models.Gallery{}, ErrNotFound
		}
		return models.Gallery{}, err
	}
	if gallery.Expired(s.now()) {
		return models.Gallery{}, ErrGone
	}
	return gallery, nil
}

// Delete removes every photo (continuing past failures) and then the record.
// Photo failures are reported after the record is gone.
func (s *GalleryService) Delete(ctx context.Context, caller Identity, id string) error {
	if !caller.IsAdmin() {
		return ErrForbidden
	}
	gallery, err := s.galleries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrGalleryNotFound) {
			return ErrNotFound
		}
		return err
	}

	mediaErr := s.removePhotos(ctx, gallery.Photos)
	if mediaErr != nil {
		s.log.Error().Err(mediaErr).Str("gallery_id", id).Msg("some photos could not be deleted")
	}

	if _, err := s.galleries.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete gallery record: %w", err)
	}
	if mediaErr != nil {
		return fmt.Errorf("delete photos: %w", mediaErr)
	}
	return nil
}

// CleanupExpired purges auto-delete galleries past their expiry and returns
// how many records this call removed. A gallery whose photos could not all be
// removed is kept for the next run.
func (s *GalleryService) CleanupExpired(ctx context.Context) (int, error) {
	expired, err := s.galleries.ListExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("list expired galleries: %w", err)
	}

	cleaned := 0
	for _, gallery := range expired {
		if err := ctx.Err(); err != nil {
			return cleaned, err
		}
		if err := s.removePhotos(ctx, gallery.Photos); err != nil {
			s.log.Error().Err(err).Str("gallery_id", gallery.ID).Msg("cleanup: photo deletion failed, will retry")
			continue
		}
		deleted, err := s.galleries.Delete(ctx, gallery.ID)
		if err != nil {
			s.log.Error().Err(err).Str("gallery_id", gallery.ID).Msg("cleanup: delete record failed")
			continue
		}
		if deleted {
			cleaned++
		}
	}

	if cleaned > 0 {
		s.log.Info().Int("cleaned", cleaned).Msg("expired galleries removed")
	}
	return cleaned, nil
}

func (s *GalleryService) removePhotos(ctx context.Context, photos []models.Photo) error {
	var errs []error
	for _, photo := range photos {
		if photo.Handle == "" {
			continue
		}
		if err := s.media.Remove(ctx, photo.Handle); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
