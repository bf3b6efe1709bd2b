package orchestrator

import (
	"fmt"
	"strings"

	inats "github.com/worklog-bot/worklog/internal/nats"
)

const maxBodyLen = 4000

// Validator drops inbound messages the bot must not act on.
type Validator struct {
	botDomain      string
	allowedDomains []string
}

// NewValidator creates a Validator for messages addressed to botDomain.
// An empty allowedDomains accepts senders from any domain.
func NewValidator(botDomain string, allowedDomains []string) *Validator {
	return &Validator{botDomain: botDomain, allowedDomains: allowedDomains}
}

// Validate checks that the message is addressed to the bot, comes from an
// allowed domain and carries something to process.
func (v *Validator) Validate(msg inats.InboundMessage) error {
	if msg.FromJID == "" {
		return fmt.Errorf("message has no sender")
	}
	switch msg.StanzaType {
	case "error", "groupchat", "headline":
		return fmt.Errorf("stanza type %q is not handled", msg.StanzaType)
	}
	if v.botDomain != "" && !strings.EqualFold(extractDomain(msg.ToJID), v.botDomain) {
		return fmt.Errorf("message addressed to %q, not to %q", msg.ToJID, v.botDomain)
	}
	if len(v.allowedDomains) > 0 {
		senderDomain := extractDomain(msg.FromJID)
		if !domainAllowed(senderDomain, v.allowedDomains) {
			return fmt.Errorf("sender domain %q not in allowed domains", senderDomain)
		}
	}
	if strings.TrimSpace(msg.Body) == "" && msg.AttachmentURL == "" {
		return fmt.Errorf("message is empty")
	}
	if len(msg.Body) > maxBodyLen {
		return fmt.Errorf("message body is %d bytes, limit is %d", len(msg.Body), maxBodyLen)
	}
	return nil
}

func extractDomain(jid string) string {
	// Strip resource
	bare := jid
	if idx := strings.Index(jid, "/"); idx >= 0 {
		bare = jid[:idx]
	}
	// Get domain after @
	if idx := strings.Index(bare, "@"); idx >= 0 {
		return bare[idx+1:]
	}
	return bare
}

func domainAllowed(domain string, allowed []string) bool {
	for _, d := range allowed {
		if strings.EqualFold(d, domain) {
			return true
		}
	}
	return false
}
