package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/worklog-bot/worklog/internal/bot"
	"github.com/worklog-bot/worklog/internal/config"
	"github.com/worklog-bot/worklog/internal/database"
	"github.com/worklog-bot/worklog/internal/usage"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := database.RunMigrations(cfg.DB); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", cfg.DB.Driver)
			return nil
		},
	}
}

func newUsageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage <jid>",
		Short: "Show today's usage and limit of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, closeStore, err := openUsageStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			snap, err := store.Snapshot(cmd.Context(), bot.BareJID(args[0]), cfg.Quota.DefaultLimit)
			if err != nil {
				return err
			}

			if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(snap)
			}

			out := cmd.OutOrStdout()
			source := "default"
			if snap.HasOverride {
				source = "override"
			}
			fmt.Fprintf(out, "%s on %s, limit %d (%s)\n", snap.UserID, snap.Date, snap.Limit, source)
			commands := make([]string, 0, len(snap.Counts))
			for c := range snap.Counts {
				commands = append(commands, c)
			}
			sort.Strings(commands)
			for _, c := range commands {
				fmt.Fprintf(out, "  %-16s %d\n", c, snap.Counts[c])
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Output JSON")
	return cmd
}

func newSetLimitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-limit <jid> <max-uses>",
		Short: "Override the daily limit of gated commands for a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("max-uses must be a positive integer, got %q", args[1])
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, closeStore, err := openUsageStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			user := bot.BareJID(args[0])
			if !store.SetUserLimit(cmd.Context(), user, n) {
				return fmt.Errorf("could not store limit for %s", user)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "limit for %s set to %d\n", user, n)
			return nil
		},
	}
}

func openUsageStore(ctx context.Context, cfg *config.Config) (*usage.Store, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		return usage.NewStore(usage.NewPostgresRepository(pool), cfg.Location()), pool.Close, nil
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.DB.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return usage.NewStore(usage.NewSQLiteRepository(db), cfg.Location()), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.DB.Driver)
	}
}
