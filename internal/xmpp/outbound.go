package xmpp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
	"gosrc.io/xmpp/stanza"

	inats "github.com/worklog-bot/worklog/internal/nats"
)

const relayConsumer = "outbound-relay"

// StanzaSender is the part of an XMPP session the relay needs.
type StanzaSender interface {
	Send(packet stanza.Packet) error
}

// OutboundRelay consumes bot replies from NATS and delivers them via XMPP.
type OutboundRelay struct {
	sender      StanzaSender
	consumerMgr *inats.ConsumerManager
}

// NewOutboundRelay creates a new OutboundRelay.
func NewOutboundRelay(sender StanzaSender, consumerMgr *inats.ConsumerManager) *OutboundRelay {
	return &OutboundRelay{sender: sender, consumerMgr: consumerMgr}
}

// Start begins consuming outbound messages. It blocks until ctx is cancelled.
func (r *OutboundRelay) Start(ctx context.Context) error {
	consumer, err := r.consumerMgr.EnsureConsumer(ctx, inats.StreamMessages, relayConsumer, inats.SubjectOutboundMessage)
	if err != nil {
		return err
	}

	slog.Info("outbound relay started", "consumer", relayConsumer)

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("fetching outbound messages", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			switch r.deliver(msg.Data()) {
			case deliveryDone:
				_ = msg.Ack()
			case deliveryRetry:
				_ = msg.Nak()
			case deliveryDrop:
				_ = msg.Term()
			}
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

type delivery int

const (
	deliveryDone delivery = iota
	deliveryRetry
	deliveryDrop
)

func (r *OutboundRelay) deliver(data []byte) delivery {
	var outbound inats.OutboundMessage
	if err := json.Unmarshal(data, &outbound); err != nil {
		slog.Error("unmarshaling outbound message", "error", err)
		return deliveryDrop
	}
	if outbound.ToJID == "" || outbound.Body == "" {
		slog.Warn("dropping outbound message without recipient or body", "id", outbound.ID)
		return deliveryDrop
	}

	if err := r.sender.Send(outboundStanza(outbound)); err != nil {
		slog.Error("sending outbound XMPP message", "error", err, "to", outbound.ToJID)
		return deliveryRetry
	}

	slog.Debug("sent outbound XMPP message", "to", outbound.ToJID, "in_reply_to", outbound.InReplyTo)
	return deliveryDone
}
