package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const TypeCleanup = "cleanup"

// Cleaner purges expired galleries.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

type Processor struct {
	cleaner Cleaner
	logger  zerolog.Logger
}

type TaskPayload struct {
	Type        string `json:"type"`
	RequestedAt string `json:"requestedAt"`
}

// CleanupTask is the stream entry the scheduler enqueues.
func CleanupTask(now time.Time) map[string]any {
	return map[string]any{
		"type":        TypeCleanup,
		"requestedAt": now.UTC().Format(time.RFC3339),
	}
}

func NewProcessor(cleaner Cleaner, logger zerolog.Logger) *Processor {
	return &Processor{
		cleaner: cleaner,
		logger:  logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	// A malformed entry never decodes on retry; drop it so it gets acked.
	if err := decodePayload(msg.Values, &payload); err != nil {
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping undecodable task")
		return nil
	}

	switch payload.Type {
	case TypeCleanup:
		return p.handleCleanup(ctx, msg.ID, payload)
	default:
		p.logger.Warn().Str("type", payload.Type).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}
}

func decodePayload(values map[string]interface{}, out *TaskPayload) error {
	bytes, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}

func (p *Processor) handleCleanup(ctx context.Context, messageID string, payload TaskPayload) error {
	cleaned, err := p.cleaner.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	p.logger.Info().
		Str("message_id", messageID).
		Str("requested_at", payload.RequestedAt).
		Int("cleaned", cleaned).
		Msg("cleanup task done")
	return nil
}
