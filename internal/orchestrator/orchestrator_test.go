package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/worklog-bot/worklog/internal/bot"
	"github.com/worklog-bot/worklog/internal/daylog"
	inats "github.com/worklog-bot/worklog/internal/nats"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []inats.OutboundMessage
	err  error
}

func (r *recordingPublisher) PublishOutboundMessage(_ context.Context, msg inats.OutboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

type processorFunc func(ctx context.Context, req bot.Request) string

func (f processorFunc) Process(ctx context.Context, req bot.Request) string { return f(ctx, req) }

func encode(t *testing.T, msg inats.InboundMessage) []byte {
	t.Helper()
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	return b
}

func runBatch(o *Orchestrator, batch ...[]byte) {
	var g errgroup.Group
	g.SetLimit(o.maxConcurrent)
	for _, data := range batch {
		o.dispatch(context.Background(), &g, data)
	}
	_ = g.Wait()
}

func TestOrchestrator_HandleRepliesToSender(t *testing.T) {
	pub := &recordingPublisher{}
	var got bot.Request
	o := NewOrchestrator(pub, nil, NewValidator("worklog.example.org", nil), processorFunc(func(_ context.Context, req bot.Request) string {
		got = req
		return "Saved"
	}), 4, time.Second)

	runBatch(o, encode(t, inats.InboundMessage{
		ID:         "m1",
		FromJID:    "ana@example.org/phone",
		ToJID:      "worklog.example.org",
		Body:       "/send LetMeIn",
		StanzaType: "chat",
	}))

	assert.Equal(t, "ana@example.org", got.UserID)
	assert.Equal(t, "send", got.Command)
	assert.Equal(t, []string{"LetMeIn"}, got.Args)

	require.Len(t, pub.msgs, 1)
	out := pub.msgs[0]
	assert.Equal(t, "ana@example.org/phone", out.ToJID)
	assert.Equal(t, "worklog.example.org", out.FromJID)
	assert.Equal(t, "Saved", out.Body)
	assert.Equal(t, "m1", out.InReplyTo)
	assert.NotEmpty(t, out.ID)
}

func TestOrchestrator_HandleDropsInvalidAndSilent(t *testing.T) {
	pub := &recordingPublisher{}
	calls := 0
	o := NewOrchestrator(pub, nil, NewValidator("worklog.example.org", nil), processorFunc(func(context.Context, bot.Request) string {
		calls++
		return ""
	}), 1, 0)

	runBatch(o, []byte("{not json"), encode(t, inats.InboundMessage{FromJID: "a@b", ToJID: "other.org", Body: "x"}))
	assert.Zero(t, calls)

	runBatch(o, encode(t, inats.InboundMessage{FromJID: "a@b", ToJID: "worklog.example.org", Body: "x"}))
	assert.Equal(t, 1, calls)
	assert.Empty(t, pub.msgs)
}

func TestOrchestrator_CommandTimeout(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats down")}
	var deadline time.Time
	o := NewOrchestrator(pub, nil, NewValidator("", nil), processorFunc(func(ctx context.Context, _ bot.Request) string {
		deadline, _ = ctx.Deadline()
		<-ctx.Done()
		return "too slow: " + ctx.Err().Error()
	}), 1, 20*time.Millisecond)

	start := time.Now()
	runBatch(o, encode(t, inats.InboundMessage{FromJID: "a@b", Body: "x"}))

	assert.WithinDuration(t, start.Add(20*time.Millisecond), deadline, 50*time.Millisecond)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "too slow: context deadline exceeded", pub.msgs[0].Body)
}

func TestOrchestrator_KeepsPerUserOrder(t *testing.T) {
	log := daylog.NewLog(daylog.NewMemoryTable(), daylog.NewLocalLocker(), time.UTC)
	// Earlier messages take longer, so unordered dispatch would append them last.
	delays := map[string]time.Duration{"fix bug": 40 * time.Millisecond, "review": 20 * time.Millisecond}
	o := NewOrchestrator(&recordingPublisher{}, nil, NewValidator("", nil), processorFunc(func(ctx context.Context, req bot.Request) string {
		time.Sleep(delays[req.Text])
		if err := log.AppendText(ctx, req.UserID, log.Today(), req.Text); err != nil {
			return err.Error()
		}
		return ""
	}), 4, time.Second)

	msg := func(from, body string) []byte {
		return encode(t, inats.InboundMessage{FromJID: from, Body: body, StanzaType: "chat"})
	}
	runBatch(o,
		msg("ana@example.org/phone", "fix bug"),
		msg("bob@example.org", "standup"),
		msg("ana@example.org/laptop", "review"),
		msg("ana@example.org/phone", "deploy"),
	)

	ctx := context.Background()
	desc, err := log.Description(ctx, "ana@example.org", log.Today())
	require.NoError(t, err)
	assert.Equal(t, "fix bug\nreview\ndeploy", desc)
	desc, err = log.Description(ctx, "bob@example.org", log.Today())
	require.NoError(t, err)
	assert.Equal(t, "standup", desc)
	assert.Empty(t, o.lanes.tails)
}

func TestOrchestrator_OtherUsersDoNotWait(t *testing.T) {
	release := make(chan struct{})
	bobDone := make(chan struct{})
	o := NewOrchestrator(&recordingPublisher{}, nil, NewValidator("", nil), processorFunc(func(_ context.Context, req bot.Request) string {
		if req.UserID == "ana@example.org" {
			<-release
		} else {
			close(bobDone)
		}
		return ""
	}), 2, time.Second)

	var g errgroup.Group
	g.SetLimit(o.maxConcurrent)
	o.dispatch(context.Background(), &g, encode(t, inats.InboundMessage{FromJID: "ana@example.org", Body: "slow"}))
	o.dispatch(context.Background(), &g, encode(t, inats.InboundMessage{FromJID: "bob@example.org", Body: "fast"}))

	select {
	case <-bobDone:
	case <-time.After(time.Second):
		t.Fatal("bob's message waited behind ana's")
	}
	close(release)
	require.NoError(t, g.Wait())
}
