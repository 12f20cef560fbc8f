package models

import (
	"slices"
	"time"
)

// Photo is one media-store object attached to a gallery. Handle is what the
// media store needs to delete it.
type Photo struct {
	URL          string    `json:"url"`
	Handle       string    `json:"handle"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

type Gallery struct {
	ID          string
	UserIDs     []string
	AdminID     string
	Photos      []Photo
	Title       string
	PublicToken string
	ExpiresAt   *time.Time
	AutoDelete  bool
	CreatedAt   time.Time
}

// Expired reports whether the gallery must be treated as gone at now,
// whether or not cleanup has purged it yet.
func (g Gallery) Expired(now time.Time) bool {
	if !g.AutoDelete || g.ExpiresAt == nil {
		return false
	}
	return !now.Before(*g.ExpiresAt)
}

func (g Gallery) SharedWith(userID string) bool {
	return slices.Contains(g.UserIDs, userID)
}
