package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/worklog-bot/worklog/internal/auth"
	"github.com/worklog-bot/worklog/internal/drive"
	inats "github.com/worklog-bot/worklog/internal/nats"
	"github.com/worklog-bot/worklog/internal/quota"
	"github.com/worklog-bot/worklog/internal/summarizer"
	"github.com/worklog-bot/worklog/internal/usage"
)

// DailyLog is the daily log the bot reads and writes.
type DailyLog interface {
	Today() string
	AppendText(ctx context.Context, userID, date, line string) error
	SetLink(ctx context.Context, userID, date, link string) error
	SetAIResponse(ctx context.Context, userID, date, text string) error
	DeleteLine(ctx context.Context, userID, date string, index int) (bool, error)
	Description(ctx context.Context, userID, date string) (string, error)
	Messages(ctx context.Context, userID, date string) ([]string, error)
	AIResponse(ctx context.Context, userID, date string) (string, error)
}

// Exporter produces a report for a user and returns a link to it.
type Exporter interface {
	Export(ctx context.Context, userID string) (string, error)
}

// PhotoStore stores photos and returns the file and its day folder.
type PhotoStore interface {
	UploadPhoto(ctx context.Context, userID, day, filename, description string, r io.Reader) (*drive.File, *drive.File, error)
}

// UsageAdmin reads and changes quota state for /usage and /setlimit.
type UsageAdmin interface {
	Snapshot(ctx context.Context, userID string, def int) (*usage.Snapshot, error)
	SetUserLimit(ctx context.Context, userID string, limit int) bool
}

// AccessGate holds the access password state of users.
type AccessGate interface {
	Enabled() bool
	Authenticated(ctx context.Context, userID string) (bool, error)
	Attempt(ctx context.Context, userID, text string) (auth.Result, error)
	Remaining(ctx context.Context, userID string) (int, error)
}

// Throttler limits how many messages a user may send per minute.
type Throttler interface {
	CheckAndIncrement(ctx context.Context, userID string, maxPerMinute int) (bool, error)
}

// Deps are the collaborators of a Bot. Photos, Access, Throttle and Audit
// are optional.
type Deps struct {
	Log        DailyLog
	Summarizer summarizer.Summarizer
	Exporter   Exporter
	Photos     PhotoStore
	Usage      UsageAdmin
	Gate       *quota.Gate
	Access     AccessGate
	Throttle   Throttler
	Audit      AuditSink
	HTTPClient *http.Client
}

// Options tune a Bot.
type Options struct {
	AdminIDs          []string
	MessagesPerMinute int
	MaxPhotoBytes     int64
	// UploadHosts lists the hosts photos may be fetched from. Empty accepts
	// any public https host.
	UploadHosts []string
}

// Bot routes requests to handlers wrapped by the quota policy.
type Bot struct {
	deps     Deps
	opts     Options
	admins   map[string]struct{}
	handlers map[string]Handler
	text     Handler
	photo    Handler
}

func New(deps Deps, opts Options) *Bot {
	if deps.HTTPClient == nil {
		deps.HTTPClient = NewAttachmentClient(time.Minute)
	}
	b := &Bot{deps: deps, opts: opts, admins: make(map[string]struct{})}
	for _, id := range opts.AdminIDs {
		b.admins[strings.ToLower(BareJID(id))] = struct{}{}
	}

	policy := NewPolicy(deps.Gate, deps.Audit)
	wrap := func(name string, h Handler) Handler {
		return policy.Wrap(UsageKey(name), h)
	}
	b.handlers = map[string]Handler{
		CmdStart:    wrap(CmdStart, b.handleStart),
		CmdHelp:     wrap(CmdHelp, b.handleHelp),
		CmdList:     wrap(CmdList, b.handleList),
		CmdDelete:   wrap(CmdDelete, b.handleDelete),
		CmdSend:     wrap(CmdSend, b.handleSend),
		CmdGet:      wrap(CmdGet, b.handleGet),
		CmdSummary:  wrap(CmdSummary, b.handleSummary),
		CmdUsage:    wrap(CmdUsage, b.handleUsage),
		CmdSetLimit: wrap(CmdSetLimit, b.handleSetLimit),
	}
	b.text = policy.Wrap("text", b.handleText)
	b.photo = policy.Wrap("photo", b.handlePhoto)
	return b
}

// Process handles one request and returns the reply. It returns "" when
// there is nothing to say.
func (b *Bot) Process(ctx context.Context, req Request) string {
	if reply, ok := b.checkAccess(ctx, req); !ok {
		return reply
	}

	var h Handler
	switch {
	case req.AttachmentURL != "":
		h = b.photo
	case req.Command != "":
		var ok bool
		if h, ok = b.handlers[req.Command]; !ok {
			return fmt.Sprintf(msgUnknownCommand, req.Command)
		}
	case req.Text != "":
		h = b.text
	default:
		return ""
	}

	reply, _ := h(ctx, req)
	return reply
}

// checkAccess applies the password gate and the per-minute throttle. It
// reports false with the reply to send when the request must stop here.
func (b *Bot) checkAccess(ctx context.Context, req Request) (string, bool) {
	if g := b.deps.Access; g != nil && g.Enabled() {
		ok, err := g.Authenticated(ctx, req.UserID)
		if err != nil {
			slog.Error("bot: checking access", "error", err, "user", req.UserID)
			return msgTryLater, false
		}
		if !ok {
			return b.passwordAttempt(ctx, req), false
		}
	}

	if b.deps.Throttle != nil && b.opts.MessagesPerMinute > 0 {
		allowed, err := b.deps.Throttle.CheckAndIncrement(ctx, req.UserID, b.opts.MessagesPerMinute)
		if err != nil {
			slog.Warn("bot: throttle unavailable", "error", err, "user", req.UserID)
		} else if !allowed {
			return msgSlowDown, false
		}
	}
	return "", true
}

func (b *Bot) passwordAttempt(ctx context.Context, req Request) string {
	if req.Command == CmdStart || req.AttachmentURL != "" || req.Text == "" {
		return msgPasswordPrompt
	}

	res, err := b.deps.Access.Attempt(ctx, req.UserID, req.Text)
	if err != nil {
		slog.Error("bot: password attempt", "error", err, "user", req.UserID)
		return msgTryLater
	}
	switch res {
	case auth.Accepted:
		return msgPasswordOK
	case auth.Blocked:
		b.audit(ctx, req.UserID, "", inats.EventAuthBlocked, "warn", nil)
		return msgBlocked
	default:
		left, err := b.deps.Access.Remaining(ctx, req.UserID)
		if err != nil {
			return msgPasswordPrompt
		}
		return fmt.Sprintf(msgPasswordWrong, left)
	}
}

func (b *Bot) isAdmin(userID string) bool {
	_, ok := b.admins[strings.ToLower(BareJID(userID))]
	return ok
}

// BareJID strips the resource from an XMPP address.
func BareJID(jid string) string {
	if i := strings.IndexByte(jid, '/'); i >= 0 {
		return jid[:i]
	}
	return jid
}
