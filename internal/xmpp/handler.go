package xmpp

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gosrc.io/xmpp"
	"gosrc.io/xmpp/stanza"

	inats "github.com/worklog-bot/worklog/internal/nats"
)

// Handler processes incoming XMPP stanzas and bridges them to NATS.
type Handler struct {
	publisher *inats.Publisher
}

// NewHandler creates a new XMPP stanza handler.
func NewHandler(publisher *inats.Publisher) *Handler {
	return &Handler{publisher: publisher}
}

// HandleMessage publishes incoming <message> stanzas with text or an
// out-of-band attachment to NATS.
func (h *Handler) HandleMessage(s xmpp.Sender, p stanza.Packet) {
	msg, ok := p.(stanza.Message)
	if !ok {
		return
	}

	inbound, ok := toInbound(msg, time.Now().UTC())
	if !ok {
		return
	}

	slog.Debug("XMPP message received",
		"from", msg.From,
		"to", msg.To,
		"type", string(msg.Type),
		"attachment", inbound.AttachmentURL != "",
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.publisher.PublishInboundMessage(ctx, inbound); err != nil {
		slog.Error("publishing inbound message", "error", err, "from", msg.From)
		h.sendError(s, msg.From, msg.To, "Internal error processing your message")
		return
	}
}

// toInbound converts a message stanza. It reports false for stanzas with
// neither text nor attachment (chat states, receipts).
func toInbound(msg stanza.Message, now time.Time) (inats.InboundMessage, bool) {
	body := strings.TrimSpace(msg.Body)

	var attachment string
	var oob stanza.OOB
	if msg.Get(&oob) && oob.URL != "" {
		attachment = oob.URL
		// Clients repeat the URL in the body for readers without OOB support.
		if body == oob.URL {
			body = ""
		}
		if body == "" {
			body = strings.TrimSpace(oob.Desc)
		}
	}

	if body == "" && attachment == "" {
		return inats.InboundMessage{}, false
	}
	return inats.InboundMessage{
		ID:            uuid.New().String(),
		FromJID:       msg.From,
		ToJID:         msg.To,
		Body:          body,
		AttachmentURL: attachment,
		StanzaType:    string(msg.Type),
		ReceivedAt:    now,
	}, true
}

// HandlePresence processes incoming <presence> stanzas, auto-approving subscribe requests.
func (h *Handler) HandlePresence(s xmpp.Sender, p stanza.Packet) {
	pres, ok := p.(stanza.Presence)
	if !ok {
		return
	}

	slog.Debug("XMPP presence received",
		"from", pres.From,
		"to", pres.To,
		"type", string(pres.Type),
	)

	if reply, ok := presenceReply(pres); ok {
		if err := s.Send(reply); err != nil {
			slog.Error("sending presence subscribed reply", "error", err)
		}
	}
}

func presenceReply(pres stanza.Presence) (stanza.Presence, bool) {
	if pres.Type != stanza.PresenceTypeSubscribe {
		return stanza.Presence{}, false
	}
	return stanza.Presence{
		Attrs: stanza.Attrs{
			From: pres.To,
			To:   pres.From,
			Type: stanza.PresenceTypeSubscribed,
		},
	}, true
}

// HandleIQ processes incoming <iq> stanzas.
func (h *Handler) HandleIQ(_ xmpp.Sender, p stanza.Packet) {
	iq, ok := p.(*stanza.IQ)
	if !ok {
		return
	}
	slog.Debug("XMPP IQ received", "from", iq.From, "to", iq.To, "type", string(iq.Type))
}

func outboundStanza(outbound inats.OutboundMessage) stanza.Message {
	return stanza.Message{
		Attrs: stanza.Attrs{
			From: outbound.FromJID,
			To:   outbound.ToJID,
			Type: stanza.MessageTypeChat,
			Id:   outbound.ID,
		},
		Body: outbound.Body,
	}
}

func (h *Handler) sendError(s xmpp.Sender, to, from, body string) {
	msg := stanza.Message{
		Attrs: stanza.Attrs{
			From: from,
			To:   to,
			Type: stanza.MessageTypeChat,
		},
		Body: body,
	}
	if err := s.Send(msg); err != nil {
		slog.Error("sending error message", "error", err)
	}
}
