// Package redisqueue hands notifications to a downstream relay through a
// Redis list.
package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fentz26/issuewatch/internal/connectors"
	"github.com/fentz26/issuewatch/internal/models"
)

// Envelope is the JSON document pushed onto the list.
type Envelope struct {
	ID        string    `json:"id"`
	IssueKey  string    `json:"issue_key"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Queue pushes envelopes with LPUSH; consumers pop with BRPOP, so the list
// is FIFO from the consumer's side.
type Queue struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// New creates a Queue on an existing client.
func New(client *redis.Client, key string) *Queue {
	if key == "" {
		key = "issuewatch:notifications"
	}
	return &Queue{client: client, key: key, now: time.Now}
}

// Name returns the sink identifier.
func (q *Queue) Name() string {
	return "redis"
}

// Send enqueues one message.
func (q *Queue) Send(ctx context.Context, msg models.Notification) error {
	data, err := json.Marshal(Envelope{
		ID:        uuid.New().String(),
		IssueKey:  msg.IssueKey,
		Text:      msg.Text,
		CreatedAt: q.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: encode envelope: %v", connectors.ErrDeliveryFailed, err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("%w: lpush %s: %v", connectors.ErrDeliveryFailed, q.key, err)
	}
	return nil
}
