package clients

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisNotifierEnqueuesEnvelope(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	notifier := NewRedisNotifier(slog.Default(), client)

	err := notifier.Notify(context.Background(), 7, 42, "funds_withdrawable", map[string]any{
		"order_number": "ORD-1001",
		"amount":       int64(5000),
	})
	require.NoError(t, err)

	raw, err := client.RPop(context.Background(), NotificationsQueue).Result()
	require.NoError(t, err)

	var envelope notificationEnvelope
	require.NoError(t, json.Unmarshal([]byte(raw), &envelope))
	require.Equal(t, int64(7), envelope.TenantID)
	require.Equal(t, int64(42), envelope.CookID)
	require.Equal(t, "funds_withdrawable", envelope.Kind)
	require.Equal(t, "ORD-1001", envelope.Payload["order_number"])
	require.False(t, envelope.CreatedAt.IsZero())
}

func TestRedisNotifierQueueOrder(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	notifier := NewRedisNotifier(slog.Default(), client)
	ctx := context.Background()

	require.NoError(t, notifier.Notify(ctx, 1, 10, "funds_withdrawable", nil))
	require.NoError(t, notifier.Notify(ctx, 1, 10, "withdrawal_failed", nil))

	// LPUSH prepends, so a consumer draining with RPOP sees FIFO order.
	raw, err := client.RPop(ctx, NotificationsQueue).Result()
	require.NoError(t, err)

	var envelope notificationEnvelope
	require.NoError(t, json.Unmarshal([]byte(raw), &envelope))
	require.Equal(t, "funds_withdrawable", envelope.Kind)
}
