package nats

import (
	"time"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamMessages = "WORKLOG_MESSAGES"
	StreamEvents   = "WORKLOG_EVENTS"
)

// Subject constants.
const (
	SubjectInboundMessage  = "worklog.messages.inbound"
	SubjectOutboundMessage = "worklog.messages.outbound"
	SubjectAuditEvent      = "worklog.events.audit"
)

// InboundMessage is published when a chat message reaches the bot.
type InboundMessage struct {
	ID            string    `json:"id"`
	FromJID       string    `json:"from_jid"`
	ToJID         string    `json:"to_jid"`
	Body          string    `json:"body"`
	AttachmentURL string    `json:"attachment_url,omitempty"`
	StanzaType    string    `json:"stanza_type"`
	ReceivedAt    time.Time `json:"received_at"`
}

// OutboundMessage is published to send a message back via XMPP.
type OutboundMessage struct {
	ID        string `json:"id"`
	ToJID     string `json:"to_jid"`
	FromJID   string `json:"from_jid"`
	Body      string `json:"body"`
	InReplyTo string `json:"in_reply_to,omitempty"`
}

// Audit event types.
const (
	EventQuotaRejected    = "quota_rejected"
	EventQuotaBypassed    = "quota_bypassed"
	EventSummaryGenerated = "summary_generated"
	EventReportExported   = "report_exported"
	EventLineDeleted      = "line_deleted"
	EventLimitChanged     = "limit_changed"
	EventAuthBlocked      = "auth_blocked"
	EventAccessReset      = "access_reset"
	EventCommandFailed    = "command_failed"
)

// AuditEvent is published for compliance/audit logging.
type AuditEvent struct {
	UserID    string         `json:"user_id"`
	EventType string         `json:"event_type"`
	Severity  string         `json:"severity"` // info, warn, error
	Command   string         `json:"command,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
