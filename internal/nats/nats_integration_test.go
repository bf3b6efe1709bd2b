//go:build integration

package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/worklog-bot/worklog/internal/config"
)

func setupNATSContainer(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2-alpine",
			ExposedPorts: []string{"4222/tcp"},
			Cmd:          []string{"--jetstream", "--store_dir", "/data"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4222")
	require.NoError(t, err)

	client, err := NewClient(ctx, config.NATSConfig{URL: fmt.Sprintf("nats://%s:%s", host, port.Port())})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

func fetchOne[T any](t *testing.T, consumer jetstream.Consumer) T {
	t.Helper()
	msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
	require.NoError(t, err)

	var got T
	var n int
	for m := range msgs.Messages() {
		require.NoError(t, json.Unmarshal(m.Data(), &got))
		require.NoError(t, m.Ack())
		n++
	}
	require.Equal(t, 1, n)
	return got
}

func TestPublishConsume(t *testing.T) {
	client := setupNATSContainer(t)
	ctx := context.Background()

	publisher := NewPublisher(client.JetStream())
	consumerMgr := NewConsumerManager(client.JetStream())

	t.Run("inbound message with attachment", func(t *testing.T) {
		require.NoError(t, publisher.PublishInboundMessage(ctx, InboundMessage{
			ID:            "in-1",
			FromJID:       "ana@example.org/phone",
			ToJID:         "worklog.example.org",
			Body:          "whiteboard",
			AttachmentURL: "https://upload.example.org/a.jpg",
			StanzaType:    "chat",
			ReceivedAt:    time.Now().UTC(),
		}))

		consumer, err := consumerMgr.EnsureConsumer(ctx, StreamMessages, "test-inbound", SubjectInboundMessage)
		require.NoError(t, err)

		got := fetchOne[InboundMessage](t, consumer)
		assert.Equal(t, "in-1", got.ID)
		assert.Equal(t, "https://upload.example.org/a.jpg", got.AttachmentURL)
	})

	t.Run("outbound reply", func(t *testing.T) {
		require.NoError(t, publisher.PublishOutboundMessage(ctx, OutboundMessage{
			ID: "out-1", ToJID: "ana@example.org/phone", FromJID: "worklog.example.org", Body: "Saved", InReplyTo: "in-1",
		}))

		consumer, err := consumerMgr.EnsureConsumer(ctx, StreamMessages, "test-outbound", SubjectOutboundMessage)
		require.NoError(t, err)

		got := fetchOne[OutboundMessage](t, consumer)
		assert.Equal(t, "in-1", got.InReplyTo)
	})

	t.Run("audit event", func(t *testing.T) {
		require.NoError(t, publisher.PublishAuditEvent(ctx, AuditEvent{
			UserID: "ana@example.org", EventType: EventQuotaRejected, Severity: "warn",
			Command: "send_command", Timestamp: time.Now().UTC(),
		}))

		consumer, err := consumerMgr.EnsureConsumer(ctx, StreamEvents, "test-audit", SubjectAuditEvent)
		require.NoError(t, err)

		got := fetchOne[AuditEvent](t, consumer)
		assert.Equal(t, EventQuotaRejected, got.EventType)
		assert.Equal(t, "send_command", got.Command)
	})

	t.Run("client is healthy", func(t *testing.T) {
		assert.True(t, client.Healthy())
	})
}
