package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inats "github.com/worklog-bot/worklog/internal/nats"
)

type fakeInserter struct {
	logs []*Log
	err  error
}

func (f *fakeInserter) Insert(_ context.Context, l *Log) error {
	if f.err != nil {
		return f.err
	}
	f.logs = append(f.logs, l)
	return nil
}

func TestFromEvent(t *testing.T) {
	ts := time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)
	l := fromEvent(inats.AuditEvent{
		UserID:    "ana@example.org",
		EventType: inats.EventQuotaRejected,
		Severity:  "warn",
		Command:   "send_command",
		Details:   map[string]any{"limit": 1},
		Timestamp: ts,
	})

	assert.Equal(t, "ana@example.org", l.UserID)
	assert.Equal(t, inats.EventQuotaRejected, l.EventType)
	assert.Equal(t, "warn", l.Severity)
	assert.Equal(t, "send_command", l.Command)
	assert.Equal(t, ts, l.CreatedAt)

	var details map[string]any
	require.NoError(t, json.Unmarshal(l.Details, &details))
	assert.EqualValues(t, 1, details["limit"])
}

func TestFromEvent_Defaults(t *testing.T) {
	l := fromEvent(inats.AuditEvent{UserID: "ana@example.org", EventType: inats.EventLineDeleted})

	assert.Equal(t, "info", l.Severity)
	assert.False(t, l.CreatedAt.IsZero())
	assert.Empty(t, l.Details)
}

func TestConsumer_Persist(t *testing.T) {
	repo := &fakeInserter{}
	c := NewConsumer(repo, nil)

	data, err := json.Marshal(inats.AuditEvent{UserID: "ana@example.org", EventType: inats.EventReportExported})
	require.NoError(t, err)

	assert.True(t, c.persist(context.Background(), data))
	require.Len(t, repo.logs, 1)
	assert.Equal(t, inats.EventReportExported, repo.logs[0].EventType)

	// Malformed payloads are dropped rather than redelivered.
	assert.True(t, c.persist(context.Background(), []byte("{")))
	assert.Len(t, repo.logs, 1)

	repo.err = errors.New("db down")
	assert.False(t, c.persist(context.Background(), data))
}

func TestBuildFilter(t *testing.T) {
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	where, args := buildFilter("ana@example.org", ListParams{EventType: "quota_rejected", From: &from})

	assert.Equal(t, "user_id = $1 AND event_type = $2 AND created_at >= $3", where)
	assert.Equal(t, []any{"ana@example.org", "quota_rejected", from}, args)
}

func TestListParams_Normalize(t *testing.T) {
	p := ListParams{Page: 0, PageSize: 500}
	p.normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
}
