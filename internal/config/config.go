package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	NATS     NATSConfig
	XMPP     XMPPConfig
	Table    TableConfig
	Google   GoogleConfig
	Drive    DriveConfig
	AI       AIConfig
	Quota    QuotaConfig
	Auth     AuthConfig
	Bot      BotConfig
	Report   ReportConfig
	Usage    UsageConfig
	Log      LogConfig
	Timezone string
}

type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
	// Admin API rate limit, requests per window.
	RateLimit       int
	RateLimitWindow int
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SSLMode    string
	MaxConns   int32
	SQLitePath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL string
}

type XMPPConfig struct {
	ComponentHost   string
	ComponentPort   int
	ComponentName   string
	ComponentSecret string
	// AllowedDomains restricts which sender domains may use the bot; empty allows all.
	AllowedDomains []string
}

func (c XMPPConfig) ComponentAddr() string {
	return fmt.Sprintf("%s:%d", c.ComponentHost, c.ComponentPort)
}

// BotJID is the address users talk to.
func (c XMPPConfig) BotJID() string {
	return c.ComponentName
}

// Daily log table drivers.
const (
	TableSheets = "sheets"
	TableMemory = "memory"
)

type TableConfig struct {
	Driver        string
	SpreadsheetID string
	SheetName     string
	LockTTL       time.Duration
	LockWait      time.Duration
}

// GoogleConfig selects how Sheets and Drive clients authenticate. Either a
// credentials JSON (service account, inline or file) or an OAuth client
// secret plus a stored user token.
type GoogleConfig struct {
	CredentialsFile string
	CredentialsJSON string
	OAuthClientFile string
	OAuthTokenFile  string
}

type DriveConfig struct {
	Enabled        bool
	ParentFolderID string
	MaxPhotoBytes  int64
}

// AI providers.
const (
	ProviderGemini   = "gemini"
	ProviderDeepSeek = "deepseek"
	ProviderGroq     = "groq"
)

type AIConfig struct {
	Provider       string
	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string
	DeepSeekAPIKey string
	DeepSeekModel  string
	DeepSeekURL    string
	GroqAPIKey     string
	GroqModel      string
	GroqURL        string
	Temperature    float64
	Language       string
	Timeout        time.Duration
}

type QuotaConfig struct {
	DefaultLimit int
	BypassToken  string
}

type AuthConfig struct {
	PasswordHash string
	MaxAttempts  int
	AdminJIDs    []string
	JWTSecret    string
	JWTExpiry    time.Duration
}

type BotConfig struct {
	MaxConcurrent     int
	MessagesPerMinute int
	CommandTimeout    time.Duration
	// UploadHosts are the hosts photo attachments may be fetched from,
	// normally the XEP-0363 upload service. Empty accepts any public host.
	UploadHosts []string
}

// Report publishers.
const (
	PublisherDrive = "drive"
	PublisherLocal = "local"
)

type ReportConfig struct {
	Publisher     string
	Dir           string
	PublicBaseURL string
}

type UsageConfig struct {
	RetentionDays int
	PruneSchedule string
}

type LogConfig struct {
	Level  string
	Format string
}

// Location resolves the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            k.String("server.host"),
			Port:            k.Int("server.port"),
			CORSOrigins:     splitList(k.String("server.cors.origins")),
			RateLimit:       k.Int("server.rate.limit.max"),
			RateLimitWindow: k.Int("server.rate.limit.window"),
		},
		DB: DBConfig{
			Driver:     k.String("db.driver"),
			Host:       k.String("db.host"),
			Port:       k.Int("db.port"),
			User:       k.String("db.user"),
			Password:   k.String("db.password"),
			Name:       k.String("db.name"),
			SSLMode:    k.String("db.sslmode"),
			MaxConns:   int32(k.Int("db.max.conns")),
			SQLitePath: k.String("db.sqlite.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		XMPP: XMPPConfig{
			ComponentHost:   k.String("xmpp.component.host"),
			ComponentPort:   k.Int("xmpp.component.port"),
			ComponentName:   k.String("xmpp.component.name"),
			ComponentSecret: k.String("xmpp.component.secret"),
			AllowedDomains:  splitList(k.String("xmpp.allowed.domains")),
		},
		Table: TableConfig{
			Driver:        k.String("table.driver"),
			SpreadsheetID: k.String("sheets.spreadsheet.id"),
			SheetName:     k.String("sheets.sheet.name"),
		},
		Google: GoogleConfig{
			CredentialsFile: k.String("google.credentials.file"),
			CredentialsJSON: k.String("google.credentials.json"),
			OAuthClientFile: k.String("google.oauth.client.file"),
			OAuthTokenFile:  k.String("google.oauth.token.file"),
		},
		Drive: DriveConfig{
			Enabled:        k.Bool("drive.enabled"),
			ParentFolderID: k.String("drive.parent.folder.id"),
			MaxPhotoBytes:  k.Int64("drive.max.photo.bytes"),
		},
		AI: AIConfig{
			Provider:       strings.ToLower(k.String("ai.provider")),
			GeminiAPIKey:   k.String("gemini.api.key"),
			GeminiModel:    k.String("gemini.model"),
			GeminiBaseURL:  k.String("gemini.base.url"),
			DeepSeekAPIKey: k.String("deepseek.api.key"),
			DeepSeekModel:  k.String("deepseek.model"),
			DeepSeekURL:    k.String("deepseek.base.url"),
			GroqAPIKey:     k.String("groq.api.key"),
			GroqModel:      k.String("groq.model"),
			GroqURL:        k.String("groq.base.url"),
			Temperature:    k.Float64("ai.temperature"),
			Language:       k.String("ai.language"),
		},
		Quota: QuotaConfig{
			DefaultLimit: k.Int("quota.default.limit"),
			BypassToken:  k.String("quota.bypass.token"),
		},
		Auth: AuthConfig{
			PasswordHash: k.String("auth.password.hash"),
			MaxAttempts:  k.Int("auth.max.attempts"),
			AdminJIDs:    splitList(k.String("auth.admin.jids")),
			JWTSecret:    k.String("auth.jwt.secret"),
		},
		Bot: BotConfig{
			MaxConcurrent:     k.Int("bot.max.concurrent"),
			MessagesPerMinute: k.Int("bot.messages.per.minute"),
			UploadHosts:       splitList(k.String("bot.upload.hosts")),
		},
		Report: ReportConfig{
			Publisher:     k.String("report.publisher"),
			Dir:           k.String("report.dir"),
			PublicBaseURL: k.String("report.public.base.url"),
		},
		Usage: UsageConfig{
			RetentionDays: k.Int("usage.retention.days"),
			PruneSchedule: k.String("usage.prune.schedule"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
		Timezone: k.String("timezone"),
	}

	applyDefaults(cfg)

	// Parse durations
	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"ai.timeout", "60s", &cfg.AI.Timeout},
		{"auth.jwt.expiry", "12h", &cfg.Auth.JWTExpiry},
		{"bot.command.timeout", "2m", &cfg.Bot.CommandTimeout},
		{"table.lock.ttl", "30s", &cfg.Table.LockTTL},
		{"table.lock.wait", "10s", &cfg.Table.LockWait},
	}
	for _, d := range durations {
		raw := k.String(d.key)
		if raw == "" {
			raw = d.def
		}
		*d.dst, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", d.key, err)
		}
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 60
	}
	if cfg.Server.RateLimitWindow == 0 {
		cfg.Server.RateLimitWindow = 60
	}
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = DriverPostgres
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "worklog"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "worklog"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 10
	}
	if cfg.DB.SQLitePath == "" {
		cfg.DB.SQLitePath = "worklog.db"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.XMPP.ComponentHost == "" {
		cfg.XMPP.ComponentHost = "localhost"
	}
	if cfg.XMPP.ComponentPort == 0 {
		cfg.XMPP.ComponentPort = 5275
	}
	if cfg.XMPP.ComponentName == "" {
		cfg.XMPP.ComponentName = "worklog.localhost"
	}
	if cfg.Table.Driver == "" {
		cfg.Table.Driver = TableSheets
	}
	if cfg.Table.SheetName == "" {
		cfg.Table.SheetName = "Sheet1"
	}
	if cfg.Drive.MaxPhotoBytes == 0 {
		cfg.Drive.MaxPhotoBytes = 20 << 20
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = ProviderGemini
	}
	if cfg.AI.GeminiModel == "" {
		cfg.AI.GeminiModel = "gemini-2.0-flash"
	}
	if cfg.AI.GeminiBaseURL == "" {
		cfg.AI.GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.AI.DeepSeekModel == "" {
		cfg.AI.DeepSeekModel = "deepseek-chat"
	}
	if cfg.AI.DeepSeekURL == "" {
		cfg.AI.DeepSeekURL = "https://api.deepseek.com/v1"
	}
	if cfg.AI.GroqModel == "" {
		cfg.AI.GroqModel = "llama-3.3-70b-versatile"
	}
	if cfg.AI.GroqURL == "" {
		cfg.AI.GroqURL = "https://api.groq.com/openai/v1"
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.7
	}
	if cfg.AI.Language == "" {
		cfg.AI.Language = "English"
	}
	if cfg.Quota.DefaultLimit == 0 {
		cfg.Quota.DefaultLimit = 1
	}
	if cfg.Auth.MaxAttempts == 0 {
		cfg.Auth.MaxAttempts = 10
	}
	if cfg.Bot.MaxConcurrent == 0 {
		cfg.Bot.MaxConcurrent = 16
	}
	if cfg.Bot.MessagesPerMinute == 0 {
		cfg.Bot.MessagesPerMinute = 30
	}
	if cfg.Report.Publisher == "" {
		if cfg.Drive.Enabled {
			cfg.Report.Publisher = PublisherDrive
		} else {
			cfg.Report.Publisher = PublisherLocal
		}
	}
	if cfg.Report.Dir == "" {
		cfg.Report.Dir = "reports"
	}
	if cfg.Usage.RetentionDays == 0 {
		cfg.Usage.RetentionDays = 90
	}
	if cfg.Usage.PruneSchedule == "" {
		cfg.Usage.PruneSchedule = "0 3 * * *"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
