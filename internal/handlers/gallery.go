package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"studio/api/internal/service"
)

// uploadForm is the validated shape of a gallery upload.
type uploadForm struct {
	UserIDs     []string
	Files       []*multipart.FileHeader
	Title       string
	ExpiryHours float64
}

type uploadResponse struct {
	Gallery     galleryResponse `json:"gallery"`
	ShareURL    string          `json:"shareUrl"`
	PublicToken string          `json:"publicToken"`
}

func (h HandlerSet) UploadGallery(c *gin.Context) {
	if limit := h.cfg.HTTP.MaxUploadMB; limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit<<20)
	}

	form, err := parseUploadForm(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload_too_large"})
			return
		}
		badRequest(c, err.Error())
		return
	}

	files := make([]service.UploadFile, 0, len(form.Files))
	for _, fh := range form.Files {
		files = append(files, service.UploadFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	result, err := h.galleries.Upload(c.Request.Context(), identity(c), service.UploadInput{
		UserIDs:     form.UserIDs,
		Files:       files,
		Title:       form.Title,
		ExpiryHours: form.ExpiryHours,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, uploadResponse{
		Gallery:     toGalleryResponse(result.Gallery),
		ShareURL:    result.ShareURL,
		PublicToken: result.Gallery.PublicToken,
	})
}

var errMalformedForm = errors.New("expected multipart form data")

func parseUploadForm(c *gin.Context) (uploadForm, error) {
	mf, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return uploadForm{}, err
		}
		return uploadForm{}, errMalformedForm
	}

	userIDs, err := parseUserIDs(append(mf.Value["userIds"], mf.Value["userIds[]"]...))
	if err != nil {
		return uploadForm{}, err
	}

	form := uploadForm{
		UserIDs: userIDs,
		Files:   append(mf.File["photos"], mf.File["photos[]"]...),
		Title:   firstValue(mf.Value["title"]),
	}

	if raw := strings.TrimSpace(firstValue(mf.Value["expiryHours"])); raw != "" {
		hours, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(hours) || math.IsInf(hours, 0) {
			return uploadForm{}, errors.New("expiryHours must be a number")
		}
		form.ExpiryHours = hours
	}
	return form, nil
}

// parseUserIDs accepts repeated fields, comma separated lists and JSON
// encoded arrays, in any mix.
func parseUserIDs(values []string) ([]string, error) {
	var ids []string
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "[") {
			var decoded []string
			if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
				return nil, errors.New("userIds must be a list of ids")
			}
			ids = append(ids, decoded...)
			continue
		}
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ids = append(ids, part)
			}
		}
	}
	return ids, nil
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (h HandlerSet) ListGalleries(c *gin.Context) {
	galleries, err := h.galleries.ListForUser(c.Request.Context(), identity(c), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(galleries, toGalleryResponse))
}

func (h HandlerSet) GetPublicGallery(c *gin.Context) {
	gallery, err := h.galleries.GetPublic(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	full := toGalleryResponse(gallery)
	c.JSON(http.StatusOK, publicGalleryResponse{
		ID:        full.ID,
		Title:     full.Title,
		Photos:    full.Photos,
		ExpiresAt: gallery.ExpiresAt,
		CreatedAt: gallery.CreatedAt,
	})
}

func (h HandlerSet) DeleteGallery(c *gin.Context) {
	if err := h.galleries.Delete(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "gallery deleted"})
}

func (h HandlerSet) CronCleanup(c *gin.Context) {
	cleaned, err := h.galleries.CleanupExpired(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "cleanup completed",
		"cleaned": cleaned,
	})
}
