package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/worklog-bot/worklog/internal/metrics"
)

// Store is the usage store used by the quota gate. Reads never fail: storage
// errors are logged and degrade to 0 or the caller's default. Writes report
// success as a bool.
type Store struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

// NewStore creates a Store whose "today" is computed in loc.
func NewStore(repo Repository, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{repo: repo, loc: loc, now: time.Now}
}

// WithClock replaces the time source, for tests and tooling.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Today returns the current date key.
func (s *Store) Today() string {
	return dateKey(s.now(), s.loc)
}

// GetUsage returns today's count for (userID, command), 0 when absent or on error.
func (s *Store) GetUsage(ctx context.Context, userID, command string) int {
	count, err := s.repo.GetCount(ctx, userID, command, s.Today())
	if err != nil {
		metrics.UsageStoreErrorsTotal.WithLabelValues("get_usage").Inc()
		slog.Error("usage: reading count failed, assuming 0", "error", err, "user", userID, "command", command)
		return 0
	}
	return count
}

// IncrementUsage adds one use for today. It returns false if the write failed.
func (s *Store) IncrementUsage(ctx context.Context, userID, command string) bool {
	count, err := s.repo.Increment(ctx, userID, command, s.Today())
	if err != nil {
		metrics.UsageStoreErrorsTotal.WithLabelValues("increment_usage").Inc()
		slog.Error("usage: increment failed", "error", err, "user", userID, "command", command)
		return false
	}
	slog.Debug("usage incremented", "user", userID, "command", command, "count", count)
	return true
}

// GetUserLimit returns the user's override or def when none is set or on error.
func (s *Store) GetUserLimit(ctx context.Context, userID string, def int) int {
	limit, ok, err := s.repo.GetLimit(ctx, userID)
	if err != nil {
		metrics.UsageStoreErrorsTotal.WithLabelValues("get_user_limit").Inc()
		slog.Error("usage: reading limit failed, using default", "error", err, "user", userID, "default", def)
		return def
	}
	if !ok {
		return def
	}
	return limit
}

// SetUserLimit stores a per-user override. Non-positive limits are rejected.
func (s *Store) SetUserLimit(ctx context.Context, userID string, limit int) bool {
	if limit < 1 {
		slog.Warn("usage: refusing non-positive limit", "user", userID, "limit", limit)
		return false
	}
	if err := s.repo.SetLimit(ctx, userID, limit); err != nil {
		metrics.UsageStoreErrorsTotal.WithLabelValues("set_user_limit").Inc()
		slog.Error("usage: setting limit failed", "error", err, "user", userID, "limit", limit)
		return false
	}
	slog.Info("usage limit set", "user", userID, "limit", limit)
	return true
}

// Snapshot returns today's counts and the effective limit. Unlike the quota
// reads it surfaces storage errors, since it only feeds admin tooling.
func (s *Store) Snapshot(ctx context.Context, userID string, def int) (*Snapshot, error) {
	today := s.Today()
	counts, err := s.repo.CountsForDate(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("reading usage snapshot: %w", err)
	}
	limit, ok, err := s.repo.GetLimit(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading usage snapshot: %w", err)
	}
	if !ok {
		limit = def
	}
	return &Snapshot{UserID: userID, Date: today, Limit: limit, HasOverride: ok, Counts: counts}, nil
}

// Prune deletes usage rows older than retentionDays. Today is never pruned.
func (s *Store) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 1 {
		retentionDays = 1
	}
	cutoff := dateKey(s.now().AddDate(0, 0, -retentionDays), s.loc)
	n, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Ping checks the backing database.
func (s *Store) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
