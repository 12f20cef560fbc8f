package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"studio/api/internal/tasks"
)

// Enqueuer hands a task to the worker stream.
type Enqueuer interface {
	Enqueue(ctx context.Context, values map[string]any) (string, error)
}

// Scheduler triggers gallery cleanup on a cron schedule. With a queue the
// work goes to the worker binary; without one, or when enqueueing fails, it
// runs in this process.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	queue    Enqueuer
	cleaner  tasks.Cleaner
	timeout  time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func NewScheduler(schedule string, queue Enqueuer, cleaner tasks.Cleaner, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		schedule: schedule,
		queue:    queue,
		cleaner:  cleaner,
		timeout:  5 * time.Minute,
		log:      log,
		now:      time.Now,
	}
}

func (s *Scheduler) Start() error {
	if s.schedule == "" {
		s.log.Info().Msg("cleanup schedule disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.triggerCleanup); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("schedule", s.schedule).Bool("queued", s.queue != nil).Msg("scheduler started")
	return nil
}

// Stop waits for a running job, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) triggerCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if s.queue != nil {
		id, err := s.queue.Enqueue(ctx, tasks.CleanupTask(s.now()))
		if err == nil {
			s.log.Debug().Str("message_id", id).Msg("cleanup task enqueued")
			return
		}
		s.log.Error().Err(err).Msg("enqueue cleanup failed, running in-process")
	}

	cleaned, err := s.cleaner.CleanupExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("cleanup failed")
		return
	}
	s.log.Info().Int("cleaned", cleaned).Msg("cleanup finished")
}
