package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/worklog-bot/worklog/internal/daylog"
	inats "github.com/worklog-bot/worklog/internal/nats"
)

func (b *Bot) handleStart(context.Context, Request) (string, error) {
	return msgWelcome, nil
}

func (b *Bot) handleHelp(_ context.Context, req Request) (string, error) {
	if b.isAdmin(req.UserID) {
		return msgHelp + msgAdminHelp, nil
	}
	return msgHelp, nil
}

func (b *Bot) handleText(ctx context.Context, req Request) (string, error) {
	if err := b.deps.Log.AppendText(ctx, req.UserID, b.deps.Log.Today(), req.Text); err != nil {
		return "", err
	}
	return msgLogged, nil
}

func (b *Bot) handleList(ctx context.Context, req Request) (string, error) {
	msgs, err := b.deps.Log.Messages(ctx, req.UserID, b.deps.Log.Today())
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return msgNoMessages, nil
	}

	var sb strings.Builder
	sb.WriteString(msgTodayHeader)
	for i, m := range msgs {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, m)
	}
	return sb.String(), nil
}

func (b *Bot) handleDelete(ctx context.Context, req Request) (string, error) {
	if len(req.Args) != 1 {
		return msgDeleteUsage, nil
	}
	n, err := strconv.Atoi(req.Args[0])
	if err != nil || n < 1 {
		return msgDeleteUsage, nil
	}

	ok, err := b.deps.Log.DeleteLine(ctx, req.UserID, b.deps.Log.Today(), n-1)
	if err != nil {
		return "", err
	}
	if !ok {
		return fmt.Sprintf(msgDeleteMissing, n), nil
	}
	b.audit(ctx, req.UserID, UsageKey(CmdDelete), inats.EventLineDeleted, "info", map[string]any{"index": n - 1})
	return fmt.Sprintf(msgDeleted, n), nil
}

// handleSend summarises today's log and stores the answer in the row.
func (b *Bot) handleSend(ctx context.Context, req Request) (string, error) {
	today := b.deps.Log.Today()
	desc, err := b.deps.Log.Description(ctx, req.UserID, today)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(desc) == "" {
		return "", daylog.ErrEmptyDescription
	}

	summary, err := b.deps.Summarizer.Summarize(ctx, desc)
	if err != nil {
		return "", err
	}
	if err := b.deps.Log.SetAIResponse(ctx, req.UserID, today, summary); err != nil {
		return "", err
	}
	b.audit(ctx, req.UserID, UsageKey(CmdSend), inats.EventSummaryGenerated, "info", map[string]any{"chars": len(summary)})
	return summary, nil
}

func (b *Bot) handleSummary(ctx context.Context, req Request) (string, error) {
	text, err := b.deps.Log.AIResponse(ctx, req.UserID, b.deps.Log.Today())
	if err != nil {
		return "", err
	}
	if text == "" {
		return msgNoSummary, nil
	}
	return text, nil
}

func (b *Bot) handleGet(ctx context.Context, req Request) (string, error) {
	link, err := b.deps.Exporter.Export(ctx, req.UserID)
	if err != nil {
		return "", err
	}
	b.audit(ctx, req.UserID, UsageKey(CmdGet), inats.EventReportExported, "info", map[string]any{"link": link})
	return fmt.Sprintf(msgReportReady, link), nil
}

func (b *Bot) handleUsage(ctx context.Context, req Request) (string, error) {
	snap, err := b.deps.Usage.Snapshot(ctx, req.UserID, b.deps.Gate.DefaultLimit())
	if err != nil {
		return "", err
	}

	names := []string{CmdSend, CmdGet}
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf(msgUsageLine, "/"+name, snap.Counts[UsageKey(name)], snap.Limit))
	}
	return strings.Join(lines, "\n") + msgUsageResetHint, nil
}

func (b *Bot) handleSetLimit(ctx context.Context, req Request) (string, error) {
	if !b.isAdmin(req.UserID) {
		return msgNotAdmin, nil
	}
	if len(req.Args) != 2 {
		return msgSetLimitUsage, nil
	}
	target := BareJID(req.Args[0])
	n, err := strconv.Atoi(req.Args[1])
	if err != nil || n < 1 {
		return msgSetLimitUsage, nil
	}

	if !b.deps.Usage.SetUserLimit(ctx, target, n) {
		return msgLimitFailed, nil
	}
	slog.Info("bot: user limit changed", "admin", req.UserID, "user", target, "limit", n)
	b.audit(ctx, target, UsageKey(CmdSetLimit), inats.EventLimitChanged, "info", map[string]any{"limit": n, "by": req.UserID})
	return fmt.Sprintf(msgLimitSet, target, n), nil
}

func (b *Bot) audit(ctx context.Context, userID, command, eventType, severity string, details map[string]any) {
	emitAudit(ctx, b.deps.Audit, inats.AuditEvent{
		UserID:    userID,
		EventType: eventType,
		Severity:  severity,
		Command:   command,
		Details:   details,
		Timestamp: time.Now().UTC(),
	})
}
