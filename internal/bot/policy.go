package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/worklog-bot/worklog/internal/daylog"
	"github.com/worklog-bot/worklog/internal/metrics"
	inats "github.com/worklog-bot/worklog/internal/nats"
	"github.com/worklog-bot/worklog/internal/quota"
	"github.com/worklog-bot/worklog/internal/report"
	"github.com/worklog-bot/worklog/internal/summarizer"
)

// QuotaGate decides whether a metered command may run.
type QuotaGate interface {
	IsGated(command string) bool
	Decide(ctx context.Context, userID, command string, args []string) quota.Decision
	Record(ctx context.Context, userID, command string) bool
}

// AuditSink receives audit events. Publishing is best effort.
type AuditSink interface {
	PublishAuditEvent(ctx context.Context, event inats.AuditEvent) error
}

// Policy wraps handlers with the daily quota and turns their errors into
// replies, so a handler never leaves the user without an answer.
type Policy struct {
	gate  QuotaGate
	audit AuditSink
}

func NewPolicy(gate QuotaGate, audit AuditSink) *Policy {
	return &Policy{gate: gate, audit: audit}
}

// Wrap returns a handler that applies the policy to h. command is the usage
// key h is metered under; ungated commands run without accounting. Usage is
// recorded only after h succeeds, so a failed call does not consume quota.
// The returned handler never returns an error.
func (p *Policy) Wrap(command string, h Handler) Handler {
	return func(ctx context.Context, req Request) (string, error) {
		gated := p.gate.IsGated(command)
		if gated {
			switch p.gate.Decide(ctx, req.UserID, command, req.Args) {
			case quota.Rejected:
				p.emit(ctx, req.UserID, command, inats.EventQuotaRejected, "warn", nil)
				metrics.CommandsTotal.WithLabelValues(command, "quota_rejected").Inc()
				return fmt.Sprintf(msgQuotaExceeded, "/"+req.Command), nil
			case quota.Bypassed:
				p.emit(ctx, req.UserID, command, inats.EventQuotaBypassed, "info", nil)
			}
		}

		reply, err := run(ctx, h, req)
		if err != nil {
			metrics.CommandsTotal.WithLabelValues(command, outcome(err)).Inc()
			return p.translate(ctx, req, command, err), nil
		}

		if gated && !p.gate.Record(ctx, req.UserID, command) {
			slog.Warn("bot: usage not recorded", "user", req.UserID, "command", command)
		}
		metrics.CommandsTotal.WithLabelValues(command, "ok").Inc()
		return reply, nil
	}
}

func run(ctx context.Context, h Handler, req Request) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bot: handler panicked", "panic", r, "user", req.UserID, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, req)
}

func (p *Policy) translate(ctx context.Context, req Request, command string, err error) string {
	var upstream *summarizer.UpstreamError
	switch {
	case errors.Is(err, daylog.ErrEmptyDescription):
		slog.Warn("bot: nothing logged today", "user", req.UserID, "command", command)
		return msgNoMessages
	case errors.Is(err, report.ErrNoRows):
		slog.Warn("bot: nothing to export", "user", req.UserID, "command", command)
		return msgNoRecords
	case errors.Is(err, summarizer.ErrMissingCredential):
		slog.Error("bot: AI API key missing", "command", command)
		return msgMissingKey
	case errors.As(err, &upstream):
		slog.Error("bot: AI call failed", "error", err, "provider", upstream.Provider, "status", upstream.Status, "user", req.UserID)
		return msgUpstream
	case errors.Is(err, daylog.ErrLockTimeout):
		slog.Warn("bot: daily log row busy", "user", req.UserID, "command", command)
		return msgLockTimeout
	default:
		slog.Error("bot: command failed", "error", err, "user", req.UserID, "command", command)
		p.emit(ctx, req.UserID, command, inats.EventCommandFailed, "error", map[string]any{"error": err.Error()})
		return fmt.Sprintf(msgUnexpected, err)
	}
}

func outcome(err error) string {
	var upstream *summarizer.UpstreamError
	switch {
	case errors.Is(err, daylog.ErrEmptyDescription), errors.Is(err, report.ErrNoRows):
		return "empty_input"
	case errors.Is(err, summarizer.ErrMissingCredential):
		return "missing_credential"
	case errors.As(err, &upstream):
		return "upstream_error"
	default:
		return "error"
	}
}

func (p *Policy) emit(ctx context.Context, userID, command, eventType, severity string, details map[string]any) {
	emitAudit(ctx, p.audit, inats.AuditEvent{
		UserID:    userID,
		EventType: eventType,
		Severity:  severity,
		Command:   command,
		Details:   details,
		Timestamp: time.Now().UTC(),
	})
}

func emitAudit(ctx context.Context, sink AuditSink, event inats.AuditEvent) {
	if sink == nil {
		return
	}
	if err := sink.PublishAuditEvent(ctx, event); err != nil {
		slog.Warn("bot: publishing audit event", "error", err, "event", event.EventType)
	}
}
