package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// Storage
	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.Password == "" {
			errs = append(errs, "DB_PASSWORD is required")
		}
		if c.DB.Port < 1 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
		}
	case DriverSQLite:
		if c.DB.SQLitePath == "" {
			errs = append(errs, "DB_SQLITE_PATH is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("DB_DRIVER must be postgres or sqlite, got %q", c.DB.Driver))
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}
	if c.XMPP.ComponentPort < 1 || c.XMPP.ComponentPort > 65535 {
		errs = append(errs, fmt.Sprintf("XMPP_COMPONENT_PORT must be 1–65535, got %d", c.XMPP.ComponentPort))
	}

	if c.XMPP.ComponentSecret == "" {
		errs = append(errs, "XMPP_COMPONENT_SECRET is required")
	}

	// Daily log table
	switch c.Table.Driver {
	case TableSheets:
		if c.Table.SpreadsheetID == "" {
			errs = append(errs, "SHEETS_SPREADSHEET_ID is required when TABLE_DRIVER=sheets")
		}
		if !c.Google.HasCredentials() {
			errs = append(errs, "Google credentials are required when TABLE_DRIVER=sheets")
		}
	case TableMemory:
		slog.Warn("TABLE_DRIVER=memory keeps daily logs in process memory only")
	default:
		errs = append(errs, fmt.Sprintf("TABLE_DRIVER must be sheets or memory, got %q", c.Table.Driver))
	}

	if c.Drive.Enabled && len(c.Bot.UploadHosts) == 0 {
		slog.Warn("BOT_UPLOAD_HOSTS is empty, photos are fetched from any public https host")
	}
	if c.Drive.Enabled && !c.Google.HasCredentials() {
		errs = append(errs, "Google credentials are required when DRIVE_ENABLED=true")
	}
	if c.Google.OAuthClientFile != "" && c.Google.OAuthTokenFile == "" {
		errs = append(errs, "GOOGLE_OAUTH_TOKEN_FILE is required with GOOGLE_OAUTH_CLIENT_FILE")
	}

	// AI provider: a missing key is reported to users at call time, not here.
	switch c.AI.Provider {
	case ProviderGemini, ProviderDeepSeek, ProviderGroq:
	default:
		errs = append(errs, fmt.Sprintf("AI_PROVIDER must be gemini, deepseek or groq, got %q", c.AI.Provider))
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		errs = append(errs, fmt.Sprintf("AI_TEMPERATURE must be 0–2, got %g", c.AI.Temperature))
	}

	if c.Quota.DefaultLimit < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_DEFAULT_LIMIT must be at least 1, got %d", c.Quota.DefaultLimit))
	}
	if c.Quota.BypassToken == "" {
		slog.Warn("QUOTA_BYPASS_TOKEN is empty, quota bypass is disabled")
	}

	// Auth
	if c.Auth.PasswordHash == "" {
		slog.Warn("AUTH_PASSWORD_HASH is empty, access password gate is disabled")
	} else if !strings.HasPrefix(c.Auth.PasswordHash, "$2") {
		errs = append(errs, "AUTH_PASSWORD_HASH must be a bcrypt hash")
	}
	if c.Auth.MaxAttempts < 1 {
		errs = append(errs, "AUTH_MAX_ATTEMPTS must be at least 1")
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, "AUTH_JWT_SECRET must be at least 32 characters")
	}
	if c.Auth.JWTSecret == "" {
		slog.Warn("AUTH_JWT_SECRET is empty, admin API is disabled")
	}

	// Reports
	switch c.Report.Publisher {
	case PublisherDrive:
		if !c.Drive.Enabled {
			errs = append(errs, "REPORT_PUBLISHER=drive requires DRIVE_ENABLED=true")
		}
	case PublisherLocal:
	default:
		errs = append(errs, fmt.Sprintf("REPORT_PUBLISHER must be drive or local, got %q", c.Report.Publisher))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("TIMEZONE %q is not a known location", c.Timezone))
	}
	if _, err := cron.ParseStandard(c.Usage.PruneSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("USAGE_PRUNE_SCHEDULE is invalid: %v", err))
	}
	if c.Usage.RetentionDays < 1 {
		errs = append(errs, "USAGE_RETENTION_DAYS must be at least 1")
	}
	if c.Bot.MaxConcurrent < 1 {
		errs = append(errs, "BOT_MAX_CONCURRENT must be at least 1")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}

// HasCredentials reports whether any Google credential source is configured.
func (c GoogleConfig) HasCredentials() bool {
	return c.CredentialsFile != "" || c.CredentialsJSON != "" || c.OAuthClientFile != ""
}
