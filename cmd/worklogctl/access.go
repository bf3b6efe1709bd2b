package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/worklog-bot/worklog/internal/auth"
	"github.com/worklog-bot/worklog/internal/bot"
	"github.com/worklog-bot/worklog/internal/config"
	iredis "github.com/worklog-bot/worklog/internal/redis"
)

func newUnblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <jid>",
		Short: "Clear failed password attempts so a blocked user can log in again",
		Long: "Clears the access password state of a user. The user is asked for the\n" +
			"password again on their next message.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			rdb, err := iredis.NewClient(cmd.Context(), cfg.Redis)
			if err != nil {
				return err
			}
			defer rdb.Close()

			userID := bot.BareJID(args[0])
			gate := auth.NewGate(rdb, cfg.Auth.PasswordHash, cfg.Auth.MaxAttempts)
			if err := gate.Reset(cmd.Context(), userID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "access state for %s cleared\n", userID)
			return nil
		},
	}
}
