package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	authedKeyPrefix   = "auth:ok:"
	attemptsKeyPrefix = "auth:attempts:"
)

// Result is the outcome of a password attempt.
type Result int

const (
	Accepted Result = iota
	Rejected
	Blocked
)

// Gate asks new chat users for the access password before they can log
// anything. State lives in Redis so it survives restarts.
type Gate struct {
	rdb         *redis.Client
	hash        string
	maxAttempts int
}

// NewGate creates a Gate. An empty hash disables it: every user is let in.
func NewGate(rdb *redis.Client, passwordHash string, maxAttempts int) *Gate {
	if maxAttempts < 1 {
		maxAttempts = 10
	}
	return &Gate{rdb: rdb, hash: passwordHash, maxAttempts: maxAttempts}
}

func (g *Gate) Enabled() bool { return g.hash != "" }

// Authenticated reports whether userID already passed the gate.
func (g *Gate) Authenticated(ctx context.Context, userID string) (bool, error) {
	if !g.Enabled() {
		return true, nil
	}
	n, err := g.rdb.Exists(ctx, authedKeyPrefix+userID).Result()
	if err != nil {
		return false, fmt.Errorf("checking auth state: %w", err)
	}
	return n == 1, nil
}

// Attempts returns the failed attempts recorded for userID.
func (g *Gate) Attempts(ctx context.Context, userID string) (int, error) {
	n, err := g.rdb.Get(ctx, attemptsKeyPrefix+userID).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading attempts: %w", err)
	}
	return n, nil
}

// Remaining is how many more failures userID may make before being blocked.
func (g *Gate) Remaining(ctx context.Context, userID string) (int, error) {
	n, err := g.Attempts(ctx, userID)
	if err != nil {
		return 0, err
	}
	return max(g.maxAttempts-n, 0), nil
}

// Attempt checks text against the password. A blocked user stays blocked
// even when the password is right.
func (g *Gate) Attempt(ctx context.Context, userID, text string) (Result, error) {
	if !g.Enabled() {
		return Accepted, nil
	}
	attempts, err := g.Attempts(ctx, userID)
	if err != nil {
		return Rejected, err
	}
	if attempts >= g.maxAttempts {
		return Blocked, nil
	}

	if ComparePassword(g.hash, strings.TrimSpace(text)) == nil {
		pipe := g.rdb.TxPipeline()
		pipe.Set(ctx, authedKeyPrefix+userID, 1, 0)
		pipe.Del(ctx, attemptsKeyPrefix+userID)
		if _, err := pipe.Exec(ctx); err != nil {
			return Rejected, fmt.Errorf("storing auth state: %w", err)
		}
		slog.Info("auth: user authenticated", "user", userID)
		return Accepted, nil
	}

	n, err := g.rdb.Incr(ctx, attemptsKeyPrefix+userID).Result()
	if err != nil {
		return Rejected, fmt.Errorf("recording attempt: %w", err)
	}
	if int(n) >= g.maxAttempts {
		slog.Warn("auth: user blocked", "user", userID, "attempts", n)
		return Blocked, nil
	}
	return Rejected, nil
}

// Reset clears the attempts and the authenticated flag of userID.
func (g *Gate) Reset(ctx context.Context, userID string) error {
	if err := g.rdb.Del(ctx, authedKeyPrefix+userID, attemptsKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("resetting auth state: %w", err)
	}
	return nil
}
