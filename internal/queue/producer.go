package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Producer appends tasks to a redis stream.
type Producer struct {
	client  *redis.Client
	stream  string
	timeout time.Duration
}

func NewProducer(client *redis.Client, stream string, timeout time.Duration) *Producer {
	return &Producer{client: client, stream: stream, timeout: timeout}
}

func (p *Producer) Enqueue(ctx context.Context, values map[string]any) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return id, nil
}
