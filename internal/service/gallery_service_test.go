package service

import (
	"bytes"
	"context"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio/api/internal/events"
	"studio/api/internal/models"
	"studio/api/internal/service/servicetest"
)

var jpegBytes = append([]byte{0xff, 0xd8, 0xff, 0xe0}, bytes.Repeat([]byte{0x42}, 64)...)

func uploadFile(name string, data []byte) UploadFile {
	return UploadFile{
		Filename: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

type galleryFixture struct {
	svc       *GalleryService
	galleries *servicetest.FakeGalleries
	media     *servicetest.FakeMedia
	events    *servicetest.FakePublisher
	clock     *testClock
}

func newGalleryFixture(t *testing.T) *galleryFixture {
	t.Helper()
	f := &galleryFixture{
		galleries: servicetest.NewFakeGalleries(),
		media:     servicetest.NewFakeMedia(),
		events:    &servicetest.FakePublisher{},
		clock:     newTestClock(),
	}
	f.svc = NewGalleryService(f.galleries, f.media, f.events, "https://studio.test/", 1<<20, zerolog.Nop())
	f.svc.now = f.clock.Now
	return f
}

func (f *galleryFixture) upload(t *testing.T, recipients []string, photos int, expiryHours float64) UploadResult {
	t.Helper()
	files := make([]UploadFile, 0, photos)
	for i := 0; i < photos; i++ {
		files = append(files, uploadFile("photo.jpg", jpegBytes))
	}
	result, err := f.svc.Upload(context.Background(), adminIdentity, UploadInput{
		UserIDs:     recipients,
		Files:       files,
		Title:       "Shoot",
		ExpiryHours: expiryHours,
	})
	require.NoError(t, err)
	return result
}

func TestUploadShareScenario(t *testing.T) {
	f := newGalleryFixture(t)
	ctx := context.Background()

	result, err := f.svc.Upload(ctx, adminIdentity, UploadInput{
		UserIDs: []string{"u1", "u2"},
		Files: []UploadFile{
			uploadFile("a.jpg", jpegBytes),
			uploadFile("b.jpg", jpegBytes),
			uploadFile("c.jpg", jpegBytes),
		},
		Title:       "Sunset Shoot",
		ExpiryHours: 24,
	})
	require.NoError(t, err)

	gallery := result.Gallery
	require.Len(t, gallery.Photos, 3)
	assert.Equal(t, "Sunset Shoot", gallery.Title)
	assert.Equal(t, adminIdentity.UserID, gallery.AdminID)
	assert.True(t, gallery.AutoDelete)
	require.NotNil(t, gallery.ExpiresAt)
	assert.Equal(t, testEpoch.Add(24*time.Hour), *gallery.ExpiresAt)
	assert.NotEmpty(t, gallery.PublicToken)
	assert.Equal(t, "https://studio.test/gallery/shared/"+gallery.PublicToken, result.ShareURL)

	for _, photo := range gallery.Photos {
		assert.True(t, strings.HasPrefix(photo.Handle, "galleries/"+gallery.ID+"/"))
		assert.True(t, strings.HasSuffix(photo.Handle, ".jpg"))
		assert.Equal(t, "image/jpeg", photo.MimeType)
		assert.Equal(t, int64(len(jpegBytes)), photo.Size)
		assert.True(t, f.media.Has(photo.Handle))
	}

	for _, user := range []Identity{
		{UserID: "u1", Role: models.UserRoleClient},
		{UserID: "u2", Role: models.UserRoleClient},
	} {
		list, err := f.svc.ListForUser(ctx, user, user.UserID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, gallery.ID, list[0].ID)
	}

	token := result.ShareURL[strings.LastIndex(result.ShareURL, "/")+1:]
	shared, err := f.svc.GetPublic(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, gallery.Photos, shared.Photos)

	assert.Equal(t, []string{events.GalleryShared}, f.events.Keys())
}

func TestUploadValidation(t *testing.T) {
	f := newGalleryFixture(t)
	ctx := context.Background()
	files := []UploadFile{uploadFile("a.jpg", jpegBytes)}

	_, err := f.svc.Upload(ctx, clientIdentity, UploadInput{UserIDs: []string{"u1"}, Files: files})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Upload(ctx, adminIdentity, UploadInput{UserIDs: []string{" ", ""}, Files: files})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Upload(ctx, adminIdentity, UploadInput{UserIDs: []string{"u1"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Upload(ctx, adminIdentity, UploadInput{UserIDs: []string{"u1"}, Files: files, ExpiryHours: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Zero(t, f.galleries.Len())
	assert.Zero(t, f.media.Len())
}

func TestUploadDeduplicatesRecipients(t *testing.T) {
	f := newGalleryFixture(t)
	result := f.upload(t, []string{"u1", " u1 ", "u2"}, 1, 0)
	assert.Equal(t, []string{"u1", "u2"}, result.Gallery.UserIDs)
}

func TestUploadRejectsUnknownTypeAndRollsBack(t *testing.T) {
	f := newGalleryFixture(t)

	_, err := f.svc.Upload(context.Background(), adminIdentity, UploadInput{
		UserIDs: []string{"u1"},
		Files: []UploadFile{
			uploadFile("a.jpg", jpegBytes),
			uploadFile("notes.txt", []byte("just some text")),
		},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, f.media.Len(), "first photo removed again")
	assert.Len(t, f.media.Removed(), 1)
	assert.Zero(t, f.galleries.Len())
}

func TestUploadMediaFailureIsSurfaced(t *testing.T) {
	f := newGalleryFixture(t)
	f.media.FailPutAfter = 1

	_, err := f.svc.Upload(context.Background(), adminIdentity, UploadInput{
		UserIDs: []string{"u1"},
		Files:   []UploadFile{uploadFile("a.jpg", jpegBytes), uploadFile("b.jpg", jpegBytes)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, servicetest.ErrMediaUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, f.media.Len())
	assert.Zero(t, f.galleries.Len())
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	f := newGalleryFixture(t)
	big := append([]byte{0xff, 0xd8, 0xff, 0xe0}, make([]byte, 1<<20)...)

	_, err := f.svc.Upload(context.Background(), adminIdentity, UploadInput{
		UserIDs: []string{"u1"},
		Files:   []UploadFile{uploadFile("big.jpg", big)},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUploadSanitisesSVG(t *testing.T) {
	f := newGalleryFixture(t)
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script><rect width="1"/></svg>`)

	result, err := f.svc.Upload(context.Background(), adminIdentity, UploadInput{
		UserIDs: []string{"u1"},
		Files:   []UploadFile{uploadFile("logo.svg", svg)},
	})
	require.NoError(t, err)

	photo := result.Gallery.Photos[0]
	assert.Equal(t, "image/svg+xml", photo.MimeType)
	stored := string(f.media.Get(photo.Handle))
	assert.NotContains(t, stored, "script")
	assert.Contains(t, stored, "<rect")
}

func TestUploadWithoutExpiryNeverExpires(t *testing.T) {
	f := newGalleryFixture(t)
	result := f.upload(t, []string{"u1"}, 1, 0)

	assert.False(t, result.Gallery.AutoDelete)
	assert.Nil(t, result.Gallery.ExpiresAt)

	f.clock.Advance(365 * 24 * time.Hour)
	_, err := f.svc.GetPublic(context.Background(), result.Gallery.PublicToken)
	assert.NoError(t, err)
}

func TestPublicGalleryExpiresWithoutCleanup(t *testing.T) {
	f := newGalleryFixture(t)
	ctx := context.Background()
	result := f.upload(t, []string{"u1"}, 2, 2)
	token := result.Gallery.PublicToken

	f.clock.Advance(2*time.Hour - time.Second)
	_, err := f.svc.GetPublic(ctx, token)
	assert.NoError(t, err)

	f.clock.Advance(time.Second)
	_, err = f.svc.GetPublic(ctx, token)
	assert.ErrorIs(t, err, ErrGone)

	f.clock.Advance(time.Hour)
	_, err = f.svc.GetPublic(ctx, token)
	assert.ErrorIs(t, err, ErrGone)
	assert.Equal(t, 1, f.galleries.Len(), "record still present")

	_, err = f.svc.GetPublic(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.GetPublic(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCleanupExpiredIsIdempotent(t *testing.T) {
	f := newGalleryFixture(t)
	ctx := context.Background()

	expiredA := f.upload(t, []string{"u1"}, 2, 1)
	expiredB := f.upload(t, []string{"u2"}, 1, 12)
	live := f.upload(t, []string{"u1"}, 1, 48)
	forever := f.upload(t, []string{"u1"}, 1, 0)

	f.clock.Advance(24 * time.Hour)

	cleaned, err := f.svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cleaned)

	cleaned, err = f.svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, cleaned)

	for _, gone := range []UploadResult{expiredA, expiredB} {
		_, err := f.galleries.GetByID(ctx, gone.Gallery.ID)
		assert.Error(t, err)
		for _, photo := range gone.Gallery.Photos {
			assert.False(t, f.media.Has(photo.Handle))
		}
	}
	for _, kept := range []UploadResult{live, forever} {
		_, err := f.galleries.GetByID(ctx, kept.Gallery.ID)
		assert.NoError(t, err)
		assert.True(t, f.media.Has(kept.Gallery.Photos[0].Handle))
	}
}

func TestCleanupRetriesGalleryWithFailedPhotoDelete(t *testing.T) {
	f := newGalleryFixture(t)
	ctx := context.Background()
	result := f.upload(t, []string{"u1"}, 2, 1)
	handle := result.Gallery.Photos[1].Handle
	f.media.SetFailRemove(handle, true)

	f.clock.Advance(2 * time.Hour)
	cleaned, err := f.svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, cleaned)
	assert.Equal(t, 1, f.galleries.Len())

	f.media.SetFailRemove(handle, false)
	cleaned, err = f.svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleaned)
	assert.Zero(t, f.galleries.Len())
	assert.Zero(t, f.media.Len())
}

func TestDeleteGallery(t *testing.T) {
	f := newGalleryFixture(t)
	ctx := context.Background()
	result := f.upload(t, []string{"u1"}, 2, 0)

	assert.ErrorIs(t, f.svc.Delete(ctx, clientIdentity, result.Gallery.ID), ErrForbidden)
	assert.ErrorIs(t, f.svc.Delete(ctx, adminIdentity, "missing"), ErrNotFound)

	require.NoError(t, f.svc.Delete(ctx, adminIdentity, result.Gallery.ID))
	assert.Zero(t, f.galleries.Len())
	assert.Zero(t, f.media.Len())

	assert.ErrorIs(t, f.svc.Delete(ctx, adminIdentity, result.Gallery.ID), ErrNotFound)
}

func TestDeleteGalleryContinuesPastMediaFailures(t *testing.T) {
	f := newGalleryFixture(t)
	ctx := context.Background()
	result := f.upload(t, []string{"u1"}, 3, 0)
	f.media.SetFailRemove(result.Gallery.Photos[0].Handle, true)

	err := f.svc.Delete(ctx, adminIdentity, result.Gallery.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, servicetest.ErrMediaUnavailable)

	assert.Zero(t, f.galleries.Len(), "record removed regardless")
	assert.Len(t, f.media.Removed(), 2, "remaining photos still deleted")
}

func TestListForUserAuthorization(t *testing.T) {
	f := newGalleryFixture(t)
	ctx := context.Background()
	f.upload(t, []string{"u1"}, 1, 0)
	f.clock.Advance(time.Minute)
	f.upload(t, []string{"u1", "u2"}, 1, 0)

	_, err := f.svc.ListForUser(ctx, clientIdentity, "u1")
	assert.ErrorIs(t, err, ErrForbidden)

	list, err := f.svc.ListForUser(ctx, adminIdentity, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt), "newest first")

	list, err = f.svc.ListForUser(ctx, Identity{UserID: "u2", Role: models.UserRoleClient}, "u2")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUploadRejectsUnboundedExpiry(t *testing.T) {
	f := newGalleryFixture(t)
	ctx := context.Background()
	files := []UploadFile{uploadFile("a.jpg", jpegBytes)}

	for _, hours := range []float64{MaxExpiryHours + 1, 1e7, 1e10, math.Inf(1), math.Inf(-1), math.NaN()} {
		_, err := f.svc.Upload(ctx, adminIdentity, UploadInput{UserIDs: []string{"u1"}, Files: files, ExpiryHours: hours})
		assert.ErrorIs(t, err, ErrInvalidInput, "expiryHours=%v", hours)
	}
	assert.Zero(t, f.galleries.Len())
	assert.Zero(t, f.media.Len())

	result := f.upload(t, []string{"u1"}, 1, MaxExpiryHours)
	require.NotNil(t, result.Gallery.ExpiresAt)
	assert.Equal(t, testEpoch.Add(MaxExpiryHours*time.Hour), *result.Gallery.ExpiresAt)

	cleaned, err := f.svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, cleaned)
	_, err = f.svc.GetPublic(ctx, result.Gallery.PublicToken)
	assert.NoError(t, err)
}

func TestListForUserHidesExpiredGalleries(t *testing.T) {
	f := newGalleryFixture(t)
	ctx := context.Background()
	recipient := Identity{UserID: "u1", Role: models.UserRoleClient}

	expiring := f.upload(t, []string{"u1"}, 2, 1)
	lasting := f.upload(t, []string{"u1"}, 1, 0)

	list, err := f.svc.ListForUser(ctx, recipient, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	f.clock.Advance(2 * time.Hour)

	for _, caller := range []Identity{recipient, adminIdentity} {
		list, err = f.svc.ListForUser(ctx, caller, "u1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, lasting.Gallery.ID, list[0].ID)
	}

	_, err = f.galleries.GetByID(ctx, expiring.Gallery.ID)
	assert.NoError(t, err, "record remains until cleanup")
}
