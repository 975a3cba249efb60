package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	readBlock      = 5 * time.Second
	errorBackoff   = 2 * time.Second
	reclaimEvery   = 30 * time.Second
	reclaimMinIdle = time.Minute
	reclaimBatch   = 50
)

// streamClient is the part of *redis.Client the consumer uses
type streamClient interface {
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	Close() error
}

// ActivityConsumer reads activity events from the stream through a consumer group
type ActivityConsumer struct {
	rdb          streamClient
	groupName    string
	consumerName string

	backoff      time.Duration
	reclaimEvery time.Duration
	minIdle      time.Duration
	lastReclaim  time.Time
}

// NewActivityConsumer creates the consumer group if needed and returns a consumer
func NewActivityConsumer(ctx context.Context, redisURL, consumerName string) (*ActivityConsumer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	// Read timeout must exceed the XReadGroup Block duration
	opts.ReadTimeout = 2 * readBlock

	client := redis.NewClient(opts)

	// Start ID "0" reads from the beginning when the group is new
	err = client.XGroupCreateMkStream(ctx, StreamActivity, GroupActivityLoggers, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		client.Close()
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return newConsumer(client, consumerName), nil
}

func newConsumer(rdb streamClient, consumerName string) *ActivityConsumer {
	return &ActivityConsumer{
		rdb:          rdb,
		groupName:    GroupActivityLoggers,
		consumerName: consumerName,
		backoff:      errorBackoff,
		reclaimEvery: reclaimEvery,
		minIdle:      reclaimMinIdle,
	}
}

// Consume runs a blocking loop handing decoded events to handler until ctx
// ends. Messages left pending by a failed handler, here or on a dead
// consumer, are claimed again once they have been idle for minIdle.
func (c *ActivityConsumer) Consume(ctx context.Context, handler func(context.Context, Event) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if time.Since(c.lastReclaim) >= c.reclaimEvery {
			c.reclaim(ctx, handler)
			c.lastReclaim = time.Now()
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupName,
			Consumer: c.consumerName,
			Streams:  []string{StreamActivity, ">"},
			Count:    10,
			Block:    readBlock,
		}).Result()

		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Blocking reads time out when the stream is idle
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			slog.Error("Failed to read from stream", "error", err, "retry_in", c.backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff):
			}
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				c.process(ctx, handler, message)
			}
		}
	}
}

// reclaim takes over idle pending messages and processes them
func (c *ActivityConsumer) reclaim(ctx context.Context, handler func(context.Context, Event) error) {
	start := "0-0"
	for {
		messages, next, err := c.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   StreamActivity,
			Group:    c.groupName,
			Consumer: c.consumerName,
			MinIdle:  c.minIdle,
			Start:    start,
			Count:    reclaimBatch,
		}).Result()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, redis.Nil) {
				slog.Error("Failed to claim pending messages", "error", err)
			}
			return
		}
		if len(messages) > 0 {
			slog.Info("Reclaimed pending activity messages", "count", len(messages))
		}
		for _, message := range messages {
			c.process(ctx, handler, message)
		}
		if next == "" || next == "0-0" || len(messages) == 0 {
			return
		}
		start = next
	}
}

func (c *ActivityConsumer) process(ctx context.Context, handler func(context.Context, Event) error, message redis.XMessage) {
	ev, err := decodeMessage(message)
	if err != nil {
		// Poison message: ACK so it does not sit in the PEL forever
		slog.Error("Dropping undecodable activity message", "error", err, "message_id", message.ID)
		c.ack(ctx, message.ID)
		return
	}

	if err := handler(ctx, ev); err != nil {
		// Left pending; reclaim picks it up after minIdle
		slog.Error("Activity handler failed", "error", err, "event_id", ev.ID)
		return
	}
	c.ack(ctx, message.ID)
}

func (c *ActivityConsumer) ack(ctx context.Context, id string) {
	if err := c.rdb.XAck(ctx, StreamActivity, c.groupName, id).Err(); err != nil {
		slog.Error("Failed to ACK message", "error", err, "message_id", id)
	}
}

func decodeMessage(message redis.XMessage) (Event, error) {
	var ev Event
	payload, ok := message.Values["payload"].(string)
	if !ok {
		return ev, errors.New("missing payload")
	}
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if ev.ID == "" || ev.Type == "" {
		return ev, errors.New("event without id or type")
	}
	return ev, nil
}

// Close closes the Redis client connection
func (c *ActivityConsumer) Close() error {
	return c.rdb.Close()
}

// StartActivityConsumer starts the consumer in a background goroutine and
// returns a stop function
func StartActivityConsumer(redisURL string, db *gorm.DB) (stop func(), err error) {
	ctx, cancel := context.WithCancel(context.Background())

	consumer, err := NewActivityConsumer(ctx, redisURL, "activity-logger-1")
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create activity consumer: %w", err)
	}

	go func() {
		if err := consumer.Consume(ctx, PersistActivity(db)); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Activity consumer stopped with error", "error", err)
		}
	}()

	slog.Info("Activity consumer started")

	return func() {
		cancel()
		consumer.Close()
	}, nil
}
