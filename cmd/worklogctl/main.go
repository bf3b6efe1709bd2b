// Command worklogctl administers a worklog bot deployment: schema
// migrations, per-user limits, blocked users, admin API tokens and Google
// credentials.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "worklogctl",
		Short:         "Administer the worklog bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(),
		newUsageCmd(),
		newSetLimitCmd(),
		newUnblockCmd(),
		newTokenCmd(),
		newHashPasswordCmd(),
		newGoogleAuthCmd(),
	)
	return root
}
