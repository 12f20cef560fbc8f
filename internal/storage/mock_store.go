package storage

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// MockStore stands in for the media store when no credentials are
// configured. Uploads are drained and logged and the returned URLs point at
// a placeholder host.
type MockStore struct {
	log     zerolog.Logger
	baseURL string

	mu      sync.Mutex
	objects map[string]int64
}

func NewMockStore(log zerolog.Logger, baseURL string) *MockStore {
	if baseURL == "" {
		baseURL = "https://media.invalid/mock"
	}
	return &MockStore{
		log:     log,
		baseURL: baseURL,
		objects: make(map[string]int64),
	}
}

func (s *MockStore) Put(_ context.Context, obj Object) (StoredObject, error) {
	n, err := io.Copy(io.Discard, obj.Body)
	if err != nil {
		return StoredObject{}, fmt.Errorf("read upload: %w", err)
	}

	s.mu.Lock()
	s.objects[obj.Key] = n
	s.mu.Unlock()

	s.log.Warn().Str("key", obj.Key).Int64("size", n).Msg("media store not configured, upload discarded")
	return StoredObject{
		URL:    s.baseURL + "/" + obj.Key,
		Handle: obj.Key,
		Size:   n,
	}, nil
}

func (s *MockStore) Remove(_ context.Context, handle string) error {
	s.mu.Lock()
	delete(s.objects, handle)
	s.mu.Unlock()

	s.log.Debug().Str("key", handle).Msg("mock media delete")
	return nil
}

func (s *MockStore) Ping(context.Context) error {
	return nil
}

// Len reports how many objects are currently held.
func (s *MockStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
