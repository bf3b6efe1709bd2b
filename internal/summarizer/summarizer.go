// Package summarizer turns a day's work log into a short AI-written summary.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/worklog-bot/worklog/internal/config"
	"github.com/worklog-bot/worklog/internal/metrics"
)

// Summarizer produces a summary for the given log text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// New returns the summarizer for the configured provider. A provider whose API
// key is empty is still returned; it fails with ErrMissingCredential on use so
// the user gets a configuration message instead of a startup crash.
func New(cfg config.AIConfig) (Summarizer, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	switch strings.ToLower(cfg.Provider) {
	case config.ProviderGemini, "":
		return NewGemini(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Temperature, timeout, cfg.Language), nil
	case config.ProviderDeepSeek:
		return NewOpenAICompat(config.ProviderDeepSeek, cfg.DeepSeekURL, cfg.DeepSeekAPIKey, cfg.DeepSeekModel, cfg.Temperature, timeout, cfg.Language), nil
	case config.ProviderGroq:
		return NewOpenAICompat(config.ProviderGroq, cfg.GroqURL, cfg.GroqAPIKey, cfg.GroqModel, cfg.Temperature, timeout, cfg.Language), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

func observe(provider string, err error) {
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrMissingCredential):
		status = "missing_credential"
	default:
		status = "error"
	}
	metrics.SummarizerRequestsTotal.WithLabelValues(provider, status).Inc()
}
