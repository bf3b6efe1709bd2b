package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/worklog-bot/worklog/internal/admin"
	"github.com/worklog-bot/worklog/internal/api"
	"github.com/worklog-bot/worklog/internal/audit"
	"github.com/worklog-bot/worklog/internal/auth"
	"github.com/worklog-bot/worklog/internal/bot"
	"github.com/worklog-bot/worklog/internal/config"
	"github.com/worklog-bot/worklog/internal/database"
	"github.com/worklog-bot/worklog/internal/daylog"
	"github.com/worklog-bot/worklog/internal/drive"
	"github.com/worklog-bot/worklog/internal/gcp"
	mw "github.com/worklog-bot/worklog/internal/middleware"
	inats "github.com/worklog-bot/worklog/internal/nats"
	"github.com/worklog-bot/worklog/internal/orchestrator"
	"github.com/worklog-bot/worklog/internal/quota"
	iredis "github.com/worklog-bot/worklog/internal/redis"
	"github.com/worklog-bot/worklog/internal/report"
	"github.com/worklog-bot/worklog/internal/server"
	"github.com/worklog-bot/worklog/internal/sheets"
	"github.com/worklog-bot/worklog/internal/summarizer"
	"github.com/worklog-bot/worklog/internal/usage"
	ixmpp "github.com/worklog-bot/worklog/internal/xmpp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("worklog stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	loc := cfg.Location()

	if err := database.RunMigrations(cfg.DB); err != nil {
		return err
	}

	// Usage store
	var (
		usageRepo  usage.Repository
		auditRepo  *audit.Repository
		auditLists admin.AuditLister
	)
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pool.Close()
		usageRepo = usage.NewPostgresRepository(pool)
		auditRepo = audit.NewRepository(pool)
		auditLists = auditRepo
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.DB.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		usageRepo = usage.NewSQLiteRepository(db)
		slog.Info("audit log persistence needs postgres, audit events are published only")
	}
	usageStore := usage.NewStore(usageRepo, loc)

	pruner, err := usage.NewPruner(usageStore, cfg.Usage.RetentionDays, cfg.Usage.PruneSchedule, loc)
	if err != nil {
		return err
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer redisClient.Close()

	// Google
	var googleOpts []option.ClientOption
	if cfg.Google.HasCredentials() {
		googleOpts, err = gcp.ClientOptions(ctx, cfg.Google)
		if err != nil {
			return err
		}
	}

	dayLog, err := newDayLog(ctx, cfg, redisClient, googleOpts)
	if err != nil {
		return err
	}

	var (
		photos    bot.PhotoStore
		publisher report.Publisher
		reports   http.Handler
	)
	var driveStore *drive.Store
	if cfg.Drive.Enabled {
		driveStore, err = drive.New(ctx, cfg.Drive.ParentFolderID, googleOpts...)
		if err != nil {
			return err
		}
		photos = driveStore
	}
	switch cfg.Report.Publisher {
	case config.PublisherDrive:
		publisher = report.NewDrivePublisher(driveStore)
	default:
		local := report.NewLocalPublisher(cfg.Report.Dir, cfg.Report.PublicBaseURL)
		publisher = local
		reports = local.Handler()
	}

	sum, err := summarizer.New(cfg.AI)
	if err != nil {
		return err
	}

	// NATS
	natsClient, err := inats.NewClient(ctx, cfg.NATS)
	if err != nil {
		return fmt.Errorf("connecting to nats: %w", err)
	}
	defer natsClient.Close()

	natsPub := inats.NewPublisher(natsClient.JetStream())
	consumerMgr := inats.NewConsumerManager(natsClient.JetStream())

	// Bot
	accessGate := auth.NewGate(redisClient, cfg.Auth.PasswordHash, cfg.Auth.MaxAttempts)
	b := bot.New(bot.Deps{
		Log:        dayLog,
		Summarizer: sum,
		Exporter:   report.NewExporter(dayLog, publisher),
		Photos:     photos,
		Usage:      usageStore,
		Gate:       quota.NewGate(usageStore, cfg.Quota.DefaultLimit, cfg.Quota.BypassToken),
		Access:     accessGate,
		Throttle:   quota.NewThrottle(redisClient),
		Audit:      natsPub,
		HTTPClient: bot.NewAttachmentClient(time.Minute),
	}, bot.Options{
		AdminIDs:          cfg.Auth.AdminJIDs,
		MessagesPerMinute: cfg.Bot.MessagesPerMinute,
		MaxPhotoBytes:     cfg.Drive.MaxPhotoBytes,
		UploadHosts:       cfg.Bot.UploadHosts,
	})

	dispatcher := orchestrator.NewOrchestrator(
		natsPub,
		consumerMgr,
		orchestrator.NewValidator(cfg.XMPP.BotJID(), cfg.XMPP.AllowedDomains),
		b,
		cfg.Bot.MaxConcurrent,
		cfg.Bot.CommandTimeout,
	)

	// XMPP
	component, err := ixmpp.NewComponent(cfg.XMPP, ixmpp.NewHandler(natsPub))
	if err != nil {
		return fmt.Errorf("creating xmpp component: %w", err)
	}
	relay := ixmpp.NewOutboundRelay(component, consumerMgr)

	// HTTP
	handlers := api.HandlerSet{Reports: reports}
	if cfg.Auth.JWTSecret != "" {
		authSvc := auth.NewService(auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry), redisClient)
		authHandler := auth.NewHandler(authSvc)
		adminHandler := admin.NewHandler(usageStore, auditLists, natsPub, cfg.Quota.DefaultLimit)
		if accessGate.Enabled() {
			adminHandler.WithAccess(accessGate)
		}

		handlers.AuthMiddleware = auth.Middleware(authSvc)
		handlers.Whoami = authHandler.Whoami
		handlers.RevokeToken = authHandler.Revoke
		handlers.GetUsage = adminHandler.GetUsage
		handlers.SetLimit = adminHandler.SetLimit
		handlers.ListAudit = adminHandler.ListAudit
		if accessGate.Enabled() {
			handlers.ResetAccess = adminHandler.ResetAccess
		}
	}

	router := api.NewRouter(api.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		AdminRateLimiter:   mw.NewRateLimiter(redisClient, "admin", cfg.Server.RateLimit, cfg.Server.RateLimitWindow).Middleware,
		Checks: map[string]api.HealthCheck{
			"database": usageStore.Ping,
			"redis": func(ctx context.Context) error {
				return iredis.HealthCheck(ctx, redisClient)
			},
			"nats": func(context.Context) error {
				if !natsClient.Healthy() {
					return errors.New("nats disconnected")
				}
				return nil
			},
			"xmpp": func(context.Context) error {
				if !component.Connected() {
					return ixmpp.ErrNotConnected
				}
				return nil
			},
		},
	}, handlers)
	srv := server.New(cfg.Server, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })
	g.Go(func() error { return component.Start(ctx) })
	g.Go(func() error { return relay.Start(ctx) })
	g.Go(func() error { return dispatcher.Start(ctx) })
	g.Go(func() error {
		pruner.Start(ctx)
		return nil
	})
	if auditRepo != nil {
		consumer := audit.NewConsumer(auditRepo, consumerMgr)
		g.Go(func() error { return consumer.Start(ctx) })
	}

	slog.Info("worklog bot running",
		"jid", cfg.XMPP.BotJID(),
		"table", cfg.Table.Driver,
		"ai_provider", cfg.AI.Provider,
		"reports", cfg.Report.Publisher,
	)
	return g.Wait()
}

func newDayLog(ctx context.Context, cfg *config.Config, rdb *redis.Client, googleOpts []option.ClientOption) (*daylog.Log, error) {
	switch cfg.Table.Driver {
	case config.TableSheets:
		table, err := sheets.New(ctx, cfg.Table.SpreadsheetID, cfg.Table.SheetName, googleOpts...)
		if err != nil {
			return nil, err
		}
		locker := daylog.NewRedisLocker(rdb, cfg.Table.LockTTL, cfg.Table.LockWait)
		return daylog.NewLog(table, locker, cfg.Location()), nil
	default:
		// A process-local table only races within this process.
		return daylog.NewLog(daylog.NewMemoryTable(), daylog.NewLocalLocker(), cfg.Location()), nil
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
