package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ledger-service/internal/logger"
)

// message is the payload each subscriber receives on its own channel.
type message struct {
	Kind          EventKind `json:"kind"`
	UserID        uuid.UUID `json:"user_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewRedisClient parses a redis:// URL and checks the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// Channel is the pub/sub channel a user's clients subscribe to.
func Channel(prefix string, userID uuid.UUID) string {
	return prefix + ":" + userID.String()
}

// RedisPublisher fans an event out with PUBLISH, one message per affected user.
type RedisPublisher struct {
	client redis.Cmdable
	prefix string
	logger *logger.Logger
}

func NewRedisPublisher(client redis.Cmdable, prefix string, log *logger.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		prefix: prefix,
		logger: log,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if len(event.UserIDs) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, userID := range event.UserIDs {
		payload, err := json.Marshal(message{
			Kind:          event.Kind,
			UserID:        userID,
			TransactionID: event.TransactionID,
			OccurredAt:    event.OccurredAt,
		})
		if err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		pipe.Publish(ctx, Channel(p.prefix, userID), payload)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		p.logger.WithFields(map[string]interface{}{
			"kind":           event.Kind,
			"transaction_id": event.TransactionID,
		}).Warn("Failed to publish event: %v", err)
		return fmt.Errorf("failed to publish %s: %w", event.Kind, err)
	}

	return nil
}
