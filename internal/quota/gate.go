package quota

import (
	"context"
	"log/slog"
	"strings"

	"github.com/worklog-bot/worklog/internal/metrics"
)

// Usage keys of the metered commands.
const (
	CommandSend = "send_command"
	CommandGet  = "get_command"
)

// UsageStore is the subset of the usage store the gate needs.
type UsageStore interface {
	GetUsage(ctx context.Context, userID, command string) int
	IncrementUsage(ctx context.Context, userID, command string) bool
	GetUserLimit(ctx context.Context, userID string, def int) int
}

// Decision is the outcome of a quota check.
type Decision int

const (
	Allowed Decision = iota
	Bypassed
	Rejected
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Bypassed:
		return "bypassed"
	default:
		return "rejected"
	}
}

// Gate meters the gated commands per user and calendar day.
type Gate struct {
	store        UsageStore
	defaultLimit int
	bypassToken  string
	gated        map[string]struct{}
}

// NewGate creates a Gate. An empty bypassToken disables bypass.
func NewGate(store UsageStore, defaultLimit int, bypassToken string) *Gate {
	if defaultLimit < 1 {
		defaultLimit = 1
	}
	return &Gate{
		store:        store,
		defaultLimit: defaultLimit,
		bypassToken:  strings.ToLower(bypassToken),
		gated: map[string]struct{}{
			CommandSend: {},
			CommandGet:  {},
		},
	}
}

// DefaultLimit is the daily limit for users without an override.
func (g *Gate) DefaultLimit() int {
	return g.defaultLimit
}

// IsGated reports whether command is subject to the daily quota.
func (g *Gate) IsGated(command string) bool {
	_, ok := g.gated[command]
	return ok
}

// Allow reports whether the user has uses left today. Storage errors read as
// zero usage and the default limit, so an outage never blocks users.
func (g *Gate) Allow(ctx context.Context, userID, command string) bool {
	usage := g.store.GetUsage(ctx, userID, command)
	limit := g.store.GetUserLimit(ctx, userID, g.defaultLimit)
	return usage < limit
}

// HasBypass reports whether any argument contains the bypass token, ignoring case.
func (g *Gate) HasBypass(args []string) bool {
	if g.bypassToken == "" {
		return false
	}
	for _, arg := range args {
		if strings.Contains(strings.ToLower(arg), g.bypassToken) {
			return true
		}
	}
	return false
}

// Decide checks a gated command invocation. Ungated commands are always allowed.
func (g *Gate) Decide(ctx context.Context, userID, command string, args []string) Decision {
	if !g.IsGated(command) {
		return Allowed
	}

	decision := Rejected
	switch {
	case g.Allow(ctx, userID, command):
		decision = Allowed
	case g.HasBypass(args):
		decision = Bypassed
		slog.Info("quota: bypass token used", "user", userID, "command", command)
	}

	metrics.QuotaDecisionsTotal.WithLabelValues(command, decision.String()).Inc()
	return decision
}

// Record counts one successful use of command.
func (g *Gate) Record(ctx context.Context, userID, command string) bool {
	return g.store.IncrementUsage(ctx, userID, command)
}
