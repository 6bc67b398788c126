package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// WebhookStream carries ids of freshly enqueued webhook events so the
// dispatch worker can pick them up without waiting for the next sweep.
// Delivery state itself lives in the database; the stream is only a nudge.
const WebhookStream = "webhooks:delivery"

type StreamProducer struct {
	client *redis.Client
}

func NewStreamProducer(client *redis.Client) *StreamProducer {
	return &StreamProducer{client: client}
}

// PublishWebhookEvent announces a newly enqueued webhook event.
func (p *StreamProducer) PublishWebhookEvent(ctx context.Context, eventID string) error {
	args := &redis.XAddArgs{
		Stream: WebhookStream,
		Values: map[string]any{
			"event_id":  eventID,
			"timestamp": time.Now().Unix(),
		},
	}

	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish webhook event: %w", err)
	}
	return nil
}

type StreamConsumer struct {
	client        *redis.Client
	stream        string
	group         string
	consumer      string
	batchSize     int64
	blockDuration time.Duration
}

func NewStreamConsumer(
	client *redis.Client,
	stream string,
	group string,
	consumer string,
	batchSize int64,
	blockDuration time.Duration,
) *StreamConsumer {
	return &StreamConsumer{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      consumer,
		batchSize:     batchSize,
		blockDuration: blockDuration,
	}
}

func (c *StreamConsumer) CreateGroup(ctx context.Context) error {
	// Create stream if it doesn't exist
	const busyGroupMsg = "BUSYGROUP"
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), busyGroupMsg) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func (c *StreamConsumer) Read(ctx context.Context) ([]redis.XStream, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    c.batchSize,
		Block:    c.blockDuration,
	}).Result()

	if err != nil {
		if err == redis.Nil {
			// No new messages
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	return streams, nil
}

func (c *StreamConsumer) Ack(ctx context.Context, messageID string) error {
	if err := c.client.XAck(ctx, c.stream, c.group, messageID).Err(); err != nil {
		return fmt.Errorf("failed to ack message: %w", err)
	}
	return nil
}
