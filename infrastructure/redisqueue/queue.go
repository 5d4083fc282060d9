// Package redisqueue implements the queue port on a Redis list using the
// reliable-queue pattern: received payloads move to a processing list and
// stay there until deleted.
package redisqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"transcode-worker/domain/queue"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ProcessingSuffix is appended to the queue name to form the in-flight list
const ProcessingSuffix = ":processing"

// API is the subset of the Redis client used by Queue
type API interface {
	BLMove(ctx context.Context, source, destination, srcpos, destpos string, timeout time.Duration) *redis.StringCmd
	LMove(ctx context.Context, source, destination, srcpos, destpos string) *redis.StringCmd
	LRem(ctx context.Context, key string, count int64, value interface{}) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Config holds connection settings for Redis
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Queue implements queue.Queue on a Redis list
type Queue struct {
	client     API
	name       string
	processing string
	logger     *zap.Logger
}

// NewClient creates a Redis client and verifies the connection
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewQueue binds to the list called name
func NewQueue(client API, name string, logger *zap.Logger) (*Queue, error) {
	if name == "" {
		return nil, fmt.Errorf("queue name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("using queue", zap.String("list", name))
	return &Queue{
		client:     client,
		name:       name,
		processing: name + ProcessingSuffix,
		logger:     logger,
	}, nil
}

// Receive moves up to opts.MaxMessages payloads onto the processing list.
// Only the first move blocks, for at most opts.WaitTime.
func (q *Queue) Receive(ctx context.Context, opts queue.ReceiveOptions) ([]queue.Message, error) {
	maxMessages := opts.MaxMessages
	if maxMessages <= 0 {
		maxMessages = 1
	}

	var msgs []queue.Message
	for i := 0; i < maxMessages; i++ {
		var cmd *redis.StringCmd
		if i == 0 && opts.WaitTime > 0 {
			cmd = q.client.BLMove(ctx, q.name, q.processing, "LEFT", "RIGHT", opts.WaitTime)
		} else {
			cmd = q.client.LMove(ctx, q.name, q.processing, "LEFT", "RIGHT")
		}

		payload, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			if len(msgs) == 0 {
				return nil, fmt.Errorf("move from %s: %w", q.name, err)
			}
			// the earlier payloads already sit on the processing list
			q.logger.Warn("receive stopped early",
				zap.String("list", q.name),
				zap.Int("received", len(msgs)),
				zap.Error(err))
			break
		}

		msgs = append(msgs, queue.Message{
			ID:            uuid.NewString(),
			Body:          payload,
			ReceiptHandle: payload,
		})
	}
	return msgs, nil
}

// Requeue moves every payload left on the processing list back to the
// head of the pending list, oldest first, and returns how many moved.
// It must only run while no other consumer shares the processing list.
func (q *Queue) Requeue(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.client.LMove(ctx, q.processing, q.name, "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("requeue from %s: %w", q.processing, err)
		}
		n++
	}
}

// Delete removes one occurrence of the payload from the processing list
func (q *Queue) Delete(ctx context.Context, receiptHandle string) error {
	n, err := q.client.LRem(ctx, q.processing, 1, receiptHandle).Result()
	if err != nil {
		return fmt.Errorf("remove from %s: %w", q.processing, err)
	}
	if n == 0 {
		q.logger.Warn("message was not in the processing list", zap.String("list", q.processing))
	}
	return nil
}

var _ queue.Queue = (*Queue)(nil)
