package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_Publish(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	amqpURI, cleanup := amqpURIForTest(ctx, t)
	defer cleanup()

	conn, err := Connect(amqpURI, 3, time.Second)
	require.NoError(t, err)
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("failed to close connection: %v", err)
		}
	}()

	const exchange = "subscriptions-test"
	ch, err := SetupChannel(conn, exchange)
	require.NoError(t, err)

	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(queue.Name, "subscription.*", exchange, false, nil))

	publisher := NewPublisher(ch, exchange)
	defer func() {
		_ = publisher.Close()
	}()

	type TestEvent struct {
		Type   string `json:"type"`
		UserID int64  `json:"user_id"`
	}

	t.Run("routed by key", func(t *testing.T) {
		event := TestEvent{Type: "subscription.created", UserID: 7}
		require.NoError(t, publisher.Publish(ctx, "subscription.created", event))

		deliveries, err := ch.Consume(queue.Name, "test-consumer", true, false, false, false, nil)
		require.NoError(t, err)

		select {
		case d := <-deliveries:
			var got TestEvent
			require.NoError(t, json.Unmarshal(d.Body, &got))
			assert.Equal(t, event, got)
			assert.Equal(t, "application/json", d.ContentType)
			assert.Equal(t, "subscription.created", d.RoutingKey)
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for message")
		}
	})

	t.Run("marshal error", func(t *testing.T) {
		badMsg := struct {
			Ch chan int `json:"ch"`
		}{
			Ch: make(chan int),
		}

		err := publisher.Publish(ctx, "subscription.created", badMsg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rabbitmq.PublishMessage")
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		err := publisher.Publish(cctx, "subscription.created", TestEvent{})
		require.ErrorIs(t, err, context.Canceled)
	})
}
