package orchestrator

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"

	"github.com/worklog-bot/worklog/internal/bot"
	inats "github.com/worklog-bot/worklog/internal/nats"
)

const consumerName = "dispatcher"

// Processor answers one chat request.
type Processor interface {
	Process(ctx context.Context, req bot.Request) string
}

// OutboundPublisher publishes replies for XMPP delivery.
type OutboundPublisher interface {
	PublishOutboundMessage(ctx context.Context, msg inats.OutboundMessage) error
}

// Orchestrator consumes inbound messages, runs them through the bot and
// publishes the replies. Each user's messages are handled in order.
type Orchestrator struct {
	publisher      OutboundPublisher
	consumerMgr    *inats.ConsumerManager
	validator      *Validator
	processor      Processor
	maxConcurrent  int
	commandTimeout time.Duration
	lanes          *userLanes
}

// NewOrchestrator creates a new Orchestrator. At most maxConcurrent messages
// are processed at once and each gets commandTimeout to finish.
func NewOrchestrator(
	publisher OutboundPublisher,
	consumerMgr *inats.ConsumerManager,
	validator *Validator,
	processor Processor,
	maxConcurrent int,
	commandTimeout time.Duration,
) *Orchestrator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		publisher:      publisher,
		consumerMgr:    consumerMgr,
		validator:      validator,
		processor:      processor,
		maxConcurrent:  maxConcurrent,
		commandTimeout: commandTimeout,
		lanes:          newUserLanes(),
	}
}

// Start begins the dispatch loop. It returns after ctx is cancelled and the
// in-flight messages are done.
func (o *Orchestrator) Start(ctx context.Context) error {
	consumer, err := o.consumerMgr.EnsureConsumer(ctx, inats.StreamMessages, consumerName, inats.SubjectInboundMessage)
	if err != nil {
		return err
	}

	slog.Info("dispatcher started", "consumer", consumerName, "max_concurrent", o.maxConcurrent)

	var g errgroup.Group
	g.SetLimit(o.maxConcurrent)
	defer g.Wait()

	for {
		msgs, err := consumer.Fetch(o.maxConcurrent, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("fetching inbound messages", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			// Appends are not idempotent: ack before processing so a
			// redelivery never logs the same line twice.
			if err := msg.Ack(); err != nil {
				slog.Warn("acking inbound message", "error", err)
			}
			o.dispatch(ctx, &g, msg.Data())
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// dispatch decodes one message and schedules it on g. Messages from the same
// user run one at a time in arrival order; different users run concurrently.
func (o *Orchestrator) dispatch(ctx context.Context, g *errgroup.Group, data []byte) {
	inbound, ok := o.decode(data)
	if !ok {
		return
	}
	prev, done := o.lanes.enter(bot.BareJID(inbound.FromJID))
	g.Go(func() error {
		defer done()
		if prev != nil {
			<-prev
		}
		o.handle(ctx, inbound)
		return nil
	})
}

func (o *Orchestrator) decode(data []byte) (inats.InboundMessage, bool) {
	var inbound inats.InboundMessage
	if err := json.Unmarshal(data, &inbound); err != nil {
		slog.Error("unmarshaling inbound message", "error", err)
		return inbound, false
	}
	if err := o.validator.Validate(inbound); err != nil {
		slog.Debug("dropping inbound message", "error", err, "id", inbound.ID, "from", inbound.FromJID)
		return inbound, false
	}
	return inbound, true
}

func (o *Orchestrator) handle(ctx context.Context, inbound inats.InboundMessage) {
	req := bot.ParseRequest(inbound.ID, bot.BareJID(inbound.FromJID), inbound.Body, inbound.AttachmentURL)
	slog.Debug("dispatching message", "id", inbound.ID, "user", req.UserID, "command", req.Command)

	cmdCtx := ctx
	if o.commandTimeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, o.commandTimeout)
		defer cancel()
	}
	reply := o.processor.Process(cmdCtx, req)
	if reply == "" {
		return
	}

	outbound := inats.OutboundMessage{
		ID:        uuid.New().String(),
		ToJID:     inbound.FromJID,
		FromJID:   inbound.ToJID,
		Body:      reply,
		InReplyTo: inbound.ID,
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.publisher.PublishOutboundMessage(pubCtx, outbound); err != nil {
		slog.Error("publishing outbound message", "error", err, "to", outbound.ToJID)
	}
}
