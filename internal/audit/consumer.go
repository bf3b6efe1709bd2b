package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/worklog-bot/worklog/internal/nats"
)

const consumerName = "audit-persister"

// Inserter persists audit log entries.
type Inserter interface {
	Insert(ctx context.Context, l *Log) error
}

// Consumer listens on the audit event NATS subject and persists entries to the database.
type Consumer struct {
	repo        Inserter
	consumerMgr *inats.ConsumerManager
}

// NewConsumer creates a new audit event Consumer.
func NewConsumer(repo Inserter, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, consumerName, inats.SubjectAuditEvent)
	if err != nil {
		return err
	}

	slog.Info("audit consumer started", "consumer", consumerName)

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("audit consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			if c.persist(ctx, msg.Data()) {
				_ = msg.Ack()
			} else {
				_ = msg.Nak()
			}
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// persist stores one encoded event. Malformed payloads are reported as
// handled so they are not redelivered forever.
func (c *Consumer) persist(ctx context.Context, data []byte) bool {
	var event inats.AuditEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("audit consumer: unmarshaling event", "error", err)
		return true
	}

	l := fromEvent(event)
	if err := c.repo.Insert(ctx, l); err != nil {
		slog.Error("audit consumer: persisting audit log", "error", err, "event_type", event.EventType)
		return false
	}

	slog.Debug("audit consumer: persisted event", "event_type", event.EventType, "user", event.UserID)
	return true
}

func fromEvent(event inats.AuditEvent) *Log {
	l := &Log{
		ID:        uuid.New(),
		UserID:    event.UserID,
		EventType: event.EventType,
		Severity:  event.Severity,
		Command:   event.Command,
		CreatedAt: event.Timestamp,
	}
	if l.Severity == "" {
		l.Severity = "info"
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if len(event.Details) > 0 {
		if data, err := json.Marshal(event.Details); err == nil {
			l.Details = data
		}
	}
	return l
}
