// Package servicetest holds in-memory stand-ins for the stores and
// collaborators the services depend on. They mirror the repository
// semantics closely enough for service and handler tests.
package servicetest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"sort"
	"sync"
	"time"

	studiomail "studio/api/internal/mail"
	"studio/api/internal/models"
	"studio/api/internal/repository"
	"studio/api/internal/storage"
)

type FakeUsers struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewFakeUsers() *FakeUsers {
	return &FakeUsers{users: make(map[string]models.User)}
}

func (f *FakeUsers) Create(_ context.Context, user models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *FakeUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *FakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *FakeUsers) FindByResetToken(_ context.Context, tokenHash string, now time.Time) (models.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, u := range f.users {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash &&
			u.ResetExpiresAt != nil && u.ResetExpiresAt.After(now) {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *FakeUsers) List(_ context.Context, role models.UserRole) ([]models.User, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.User
	for _, u := range f.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *FakeUsers) UpdateProfile(_ context.Context, id string, name string, phone string, completed bool) (models.User, error) {
	var out models.User
	err := f.update(id, func(u *models.User) {
		u.Name = name
		u.Phone = phone
		u.ProfileCompleted = completed
		out = *u
	})
	return out, err
}

func (f *FakeUsers) UpdatePassword(_ context.Context, id string, passwordHash []byte) error {
	return f.update(id, func(u *models.User) {
		u.PasswordHash = passwordHash
		u.ResetTokenHash = nil
		u.ResetExpiresAt = nil
	})
}

func (f *FakeUsers) SetResetToken(_ context.Context, id string, tokenHash string, expiresAt time.Time) error {
	return f.update(id, func(u *models.User) {
		u.ResetTokenHash = &tokenHash
		u.ResetExpiresAt = &expiresAt
	})
}

func (f *FakeUsers) SetOTP(_ context.Context, id string, code string, expiresAt time.Time) error {
	return f.update(id, func(u *models.User) {
		u.OTPCode = &code
		u.OTPExpiresAt = &expiresAt
	})
}

func (f *FakeUsers) MarkVerified(_ context.Context, id string) error {
	return f.update(id, func(u *models.User) {
		u.Verified = true
		u.OTPCode = nil
		u.OTPExpiresAt = nil
	})
}

// Put stores user as-is, bypassing the uniqueness check.
func (f *FakeUsers) Put(user models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
}

func (f *FakeUsers) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.users)
}

func (f *FakeUsers) update(id string, fn func(*models.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(&u)
	f.users[id] = u
	return nil
}

type FakeSessions struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewFakeSessions() *FakeSessions {
	return &FakeSessions{sessions: make(map[string]models.Session)}
}

func (f *FakeSessions) Create(_ context.Context, session models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = session
	return nil
}

func (f *FakeSessions) FindActive(_ context.Context, userID string, tokenHash []byte, now time.Time) (models.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.sessions {
		if s.UserID == userID && bytes.Equal(s.TokenHash, tokenHash) && s.IsActive && s.ExpiresAt.After(now) {
			return s, nil
		}
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (f *FakeSessions) ListByUser(_ context.Context, userID string) ([]models.Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActiveAt.After(out[j].LastActiveAt) })
	return out, nil
}

func (f *FakeSessions) Touch(_ context.Context, sessionID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		s.LastActiveAt = at
		f.sessions[sessionID] = s
	}
	return nil
}

func (f *FakeSessions) Deactivate(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		s.IsActive = false
		f.sessions[sessionID] = s
	}
	return nil
}

type FakeBookings struct {
	mu       sync.RWMutex
	bookings map[string]models.Booking
}

func NewFakeBookings() *FakeBookings {
	return &FakeBookings{bookings: make(map[string]models.Booking)}
}

func (f *FakeBookings) Create(_ context.Context, booking models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[booking.ID] = booking
	return nil
}

func (f *FakeBookings) GetByID(_ context.Context, id string) (models.Booking, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	b, ok := f.bookings[id]
	if !ok {
		return models.Booking{}, repository.ErrBookingNotFound
	}
	return b, nil
}

func (f *FakeBookings) List(_ context.Context, userID string) ([]models.Booking, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if userID == "" || b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *FakeBookings) UpdateStatus(_ context.Context, id string, status models.BookingStatus) (models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return models.Booking{}, repository.ErrBookingNotFound
	}
	b.Status = status
	f.bookings[id] = b
	return b, nil
}

type FakeGalleries struct {
	mu        sync.RWMutex
	galleries map[string]models.Gallery
}

func NewFakeGalleries() *FakeGalleries {
	return &FakeGalleries{galleries: make(map[string]models.Gallery)}
}

func (f *FakeGalleries) Create(_ context.Context, gallery models.Gallery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.galleries {
		if g.PublicToken == gallery.PublicToken {
			return repository.ErrPublicTokenTaken
		}
	}
	f.galleries[gallery.ID] = gallery
	return nil
}

func (f *FakeGalleries) GetByID(_ context.Context, id string) (models.Gallery, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	g, ok := f.galleries[id]
	if !ok {
		return models.Gallery{}, repository.ErrGalleryNotFound
	}
	return g, nil
}

func (f *FakeGalleries) GetByPublicToken(_ context.Context, token string) (models.Gallery, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, g := range f.galleries {
		if g.PublicToken == token {
			return g, nil
		}
	}
	return models.Gallery{}, repository.ErrGalleryNotFound
}

func (f *FakeGalleries) ListByRecipient(_ context.Context, userID string) ([]models.Gallery, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.Gallery
	for _, g := range f.galleries {
		if slices.Contains(g.UserIDs, userID) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *FakeGalleries) ListExpired(_ context.Context, now time.Time) ([]models.Gallery, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.Gallery
	for _, g := range f.galleries {
		if g.AutoDelete && g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *FakeGalleries) Delete(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.galleries[id]; !ok {
		return false, nil
	}
	delete(f.galleries, id)
	return true, nil
}

// Put stores gallery as-is.
func (f *FakeGalleries) Put(gallery models.Gallery) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.galleries[gallery.ID] = gallery
}

func (f *FakeGalleries) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.galleries)
}

type FakeInvoices struct {
	mu       sync.RWMutex
	invoices map[string]models.Invoice
}

func NewFakeInvoices() *FakeInvoices {
	return &FakeInvoices{invoices: make(map[string]models.Invoice)}
}

func (f *FakeInvoices) Create(_ context.Context, invoice models.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices[invoice.ID] = invoice
	return nil
}

func (f *FakeInvoices) List(_ context.Context, userID string) ([]models.Invoice, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.Invoice
	for _, inv := range f.invoices {
		if userID == "" || inv.UserID == userID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *FakeInvoices) UpdateStatus(_ context.Context, id string, status models.InvoiceStatus) (models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return models.Invoice{}, repository.ErrInvoiceNotFound
	}
	inv.Status = status
	f.invoices[id] = inv
	return inv, nil
}

// FakeMedia keeps uploaded bytes by handle. FailPutAfter makes every upload
// after the first n fail; FailRemove injects errors per handle.
type FakeMedia struct {
	mu           sync.Mutex
	objects      map[string][]byte
	FailPutAfter int
	FailRemove   map[string]bool
	putCount     int
	removed      []string
}

func NewFakeMedia() *FakeMedia {
	return &FakeMedia{
		objects:      make(map[string][]byte),
		FailPutAfter: -1,
		FailRemove:   make(map[string]bool),
	}
}

var ErrMediaUnavailable = errors.New("media store unavailable")

func (f *FakeMedia) Put(_ context.Context, obj storage.Object) (storage.StoredObject, error) {
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return storage.StoredObject{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCount++
	if f.FailPutAfter >= 0 && f.putCount > f.FailPutAfter {
		return storage.StoredObject{}, ErrMediaUnavailable
	}
	f.objects[obj.Key] = data
	return storage.StoredObject{
		URL:    "https://media.test/" + obj.Key,
		Handle: obj.Key,
		Size:   int64(len(data)),
	}, nil
}

// Remove treats missing handles as already deleted.
func (f *FakeMedia) Remove(_ context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailRemove[handle] {
		return ErrMediaUnavailable
	}
	delete(f.objects, handle)
	f.removed = append(f.removed, handle)
	return nil
}

func (f *FakeMedia) Has(handle string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[handle]
	return ok
}

func (f *FakeMedia) Get(handle string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[handle]
}

func (f *FakeMedia) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func (f *FakeMedia) Removed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.removed)
}

func (f *FakeMedia) SetFailRemove(handle string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailRemove[handle] = fail
}

// FakeMailer records messages instead of sending them.
type FakeMailer struct {
	mu   sync.Mutex
	Err  error
	sent []studiomail.Message
}

func (f *FakeMailer) Send(_ context.Context, msg studiomail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.Err
}

func (f *FakeMailer) Sent() []studiomail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sent)
}

type PublishedEvent struct {
	Key     string
	Payload any
}

// FakePublisher records published events.
type FakePublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

func (f *FakePublisher) Publish(_ context.Context, routingKey string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, PublishedEvent{Key: routingKey, Payload: payload})
	return nil
}

func (f *FakePublisher) Close() error { return nil }

func (f *FakePublisher) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.events))
	for _, e := range f.events {
		keys = append(keys, e.Key)
	}
	return keys
}
