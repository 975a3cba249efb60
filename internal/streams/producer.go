package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher appends activity events to a Redis Stream
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a Publisher on an existing Redis client
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// Publish appends ev to the activity stream
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if ev.ID == "" || ev.OccurredAt.IsZero() {
		stamped := NewEvent(ev.Type)
		if ev.ID == "" {
			ev.ID = stamped.ID
		}
		if ev.OccurredAt.IsZero() {
			ev.OccurredAt = stamped.OccurredAt
		}
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamActivity,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload":        string(payload),
			"published_at":   time.Now().Unix(),
			"schema_version": SchemaVersionV1,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}
	return nil
}

// NopPublisher drops events. Used when Redis is not configured and in tests.
type NopPublisher struct{}

// Publish implements the publisher contract without side effects
func (NopPublisher) Publish(_ context.Context, ev Event) error {
	slog.Debug("Activity event dropped", "type", ev.Type)
	return nil
}
