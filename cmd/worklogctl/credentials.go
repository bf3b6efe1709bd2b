package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/worklog-bot/worklog/internal/auth"
	"github.com/worklog-bot/worklog/internal/config"
	"github.com/worklog-bot/worklog/internal/gcp"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("AUTH_JWT_SECRET is not set")
			}
			token, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry).Issue(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "Subject recorded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default AUTH_JWT_EXPIRY)")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Read an access password from stdin and print its bcrypt hash for AUTH_PASSWORD_HASH",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readLine(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("password is empty")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newGoogleAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "google-auth",
		Short: "Authorize Sheets and Drive access with an OAuth client and store the user token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Google.OAuthClientFile == "" || cfg.Google.OAuthTokenFile == "" {
				return errors.New("GOOGLE_OAUTH_CLIENT_FILE and GOOGLE_OAUTH_TOKEN_FILE are required")
			}

			oauthCfg, err := gcp.OAuthConfig(cfg.Google.OAuthClientFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			url := oauthCfg.AuthCodeURL("worklog", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
			fmt.Fprintf(out, "Open this URL, grant access, then paste the code:\n\n%s\n\ncode: ", url)

			code, err := readLine(cmd.InOrStdin())
			if err != nil {
				return err
			}
			tok, err := oauthCfg.Exchange(cmd.Context(), code)
			if err != nil {
				return fmt.Errorf("exchanging authorization code: %w", err)
			}
			if err := gcp.SaveToken(cfg.Google.OAuthTokenFile, tok); err != nil {
				return err
			}
			fmt.Fprintf(out, "token saved to %s\n", cfg.Google.OAuthTokenFile)
			return nil
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
