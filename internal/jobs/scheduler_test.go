package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"studio/api/internal/tasks"
)

type fakeQueue struct {
	err    error
	values []map[string]any
}

func (q *fakeQueue) Enqueue(_ context.Context, values map[string]any) (string, error) {
	q.values = append(q.values, values)
	if q.err != nil {
		return "", q.err
	}
	return "1-0", nil
}

type fakeCleaner struct{ calls int }

func (c *fakeCleaner) CleanupExpired(context.Context) (int, error) {
	c.calls++
	return 1, nil
}

func fixedNow() time.Time { return time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC) }

func TestTriggerCleanupEnqueues(t *testing.T) {
	queue := &fakeQueue{}
	cleaner := &fakeCleaner{}
	s := NewScheduler("0 0 * * * *", queue, cleaner, zerolog.Nop())
	s.now = fixedNow

	s.triggerCleanup()

	assert.Zero(t, cleaner.calls)
	assert.Equal(t, []map[string]any{tasks.CleanupTask(fixedNow())}, queue.values)
}

func TestTriggerCleanupFallsBackInProcess(t *testing.T) {
	queue := &fakeQueue{err: errors.New("redis gone")}
	cleaner := &fakeCleaner{}
	s := NewScheduler("0 0 * * * *", queue, cleaner, zerolog.Nop())

	s.triggerCleanup()

	assert.Len(t, queue.values, 1)
	assert.Equal(t, 1, cleaner.calls)
}

func TestTriggerCleanupWithoutQueue(t *testing.T) {
	cleaner := &fakeCleaner{}
	s := NewScheduler("0 0 * * * *", nil, cleaner, zerolog.Nop())

	s.triggerCleanup()

	assert.Equal(t, 1, cleaner.calls)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler("every hour", nil, &fakeCleaner{}, zerolog.Nop())
	assert.Error(t, s.Start())

	disabled := NewScheduler("", nil, &fakeCleaner{}, zerolog.Nop())
	assert.NoError(t, disabled.Start())
	disabled.Stop(context.Background())
}
