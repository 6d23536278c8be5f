package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// NotificationsQueue is the Redis list the delivery workers drain.
const NotificationsQueue = "notifications:queue"

// RedisNotifier pushes notification envelopes onto a Redis queue so the
// delivery workers can fan them out to push and email transports. Delivery is
// fire-and-forget on the caller's side.
type RedisNotifier struct {
	logger *slog.Logger
	client *redis.Client
	queue  string
}

// NewRedisNotifier creates a notifier bound to the default notifications queue.
func NewRedisNotifier(logger *slog.Logger, client *redis.Client) *RedisNotifier {
	return &RedisNotifier{
		logger: logger,
		client: client,
		queue:  NotificationsQueue,
	}
}

type notificationEnvelope struct {
	TenantID  int64          `json:"tenant_id"`
	CookID    int64          `json:"cook_id"`
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// Notify enqueues a notification for the given cook.
func (n *RedisNotifier) Notify(ctx context.Context, tenantID, cookID int64, kind string, payload map[string]any) error {
	body, err := json.Marshal(notificationEnvelope{
		TenantID:  tenantID,
		CookID:    cookID,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := n.client.LPush(ctx, n.queue, body).Err(); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}

	n.logger.DebugContext(ctx, "Notification enqueued",
		"tenant_id", tenantID,
		"cook_id", cookID,
		"kind", kind)

	return nil
}

// LogNotifier writes notifications to the application log. It stands in for
// RedisNotifier when no Redis instance is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, tenantID, cookID int64, kind string, payload map[string]any) error {
	n.logger.InfoContext(ctx, "Notification",
		"tenant_id", tenantID,
		"cook_id", cookID,
		"kind", kind,
		"payload", payload)
	return nil
}
