package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCleaner struct {
	calls   int
	cleaned int
	err     error
}

func (c *countingCleaner) CleanupExpired(context.Context) (int, error) {
	c.calls++
	return c.cleaned, c.err
}

func TestHandleCleanupTask(t *testing.T) {
	cleaner := &countingCleaner{cleaned: 3}
	p := NewProcessor(cleaner, zerolog.Nop())

	values := CleanupTask(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026-03-01T12:00:00Z", values["requestedAt"])

	require.NoError(t, p.Handle(context.Background(), redis.XMessage{ID: "1-0", Values: values}))
	assert.Equal(t, 1, cleaner.calls)
}

func TestHandleCleanupFailureIsReturned(t *testing.T) {
	boom := errors.New("storage down")
	p := NewProcessor(&countingCleaner{err: boom}, zerolog.Nop())

	err := p.Handle(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]interface{}{"type": TypeCleanup}})
	assert.ErrorIs(t, err, boom)
}

func TestHandleUnknownTaskIsDropped(t *testing.T) {
	cleaner := &countingCleaner{}
	p := NewProcessor(cleaner, zerolog.Nop())

	err := p.Handle(context.Background(), redis.XMessage{ID: "2-0", Values: map[string]interface{}{"type": "thumbnail"}})
	assert.NoError(t, err)
	assert.Zero(t, cleaner.calls)
}

func TestHandleUndecodableTaskIsDropped(t *testing.T) {
	cleaner := &countingCleaner{}
	p := NewProcessor(cleaner, zerolog.Nop())

	err := p.Handle(context.Background(), redis.XMessage{ID: "3-0", Values: map[string]interface{}{"type": 123}})
	assert.NoError(t, err)
	assert.Zero(t, cleaner.calls)
}
