// Package gcp builds authenticated client options for the Google Sheets and
// Drive APIs.
package gcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/worklog-bot/worklog/internal/config"
)

// Scopes needed by the daily log table and the photo store.
var Scopes = []string{
	"https://www.googleapis.com/auth/drive",
	"https://www.googleapis.com/auth/spreadsheets",
}

// ErrNoCredentials is returned when no credential source is configured.
var ErrNoCredentials = errors.New("no google credentials configured")

// ClientOptions returns options authenticating with, in order of preference,
// inline credentials JSON, a credentials file, or an OAuth client secret plus
// a stored user token.
func ClientOptions(ctx context.Context, cfg config.GoogleConfig) ([]option.ClientOption, error) {
	if creds := strings.TrimSpace(cfg.CredentialsJSON); creds != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}, nil
	}
	if cfg.CredentialsFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}, nil
	}
	if cfg.OAuthClientFile != "" {
		oauthCfg, err := OAuthConfig(cfg.OAuthClientFile)
		if err != nil {
			return nil, err
		}
		tok, err := LoadToken(cfg.OAuthTokenFile)
		if err != nil {
			return nil, err
		}
		return []option.ClientOption{option.WithTokenSource(oauthCfg.TokenSource(ctx, tok))}, nil
	}
	return nil, ErrNoCredentials
}

// OAuthConfig reads an installed-app client secret file.
func OAuthConfig(path string) (*oauth2.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading oauth client file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(raw, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing oauth client file: %w", err)
	}
	return cfg, nil
}

// storedToken accepts both the oauth2.Token layout and the authorized-user
// layout written by Google's Python tooling ("token" instead of "access_token").
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
}

// LoadToken reads a user token file.
func LoadToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading oauth token file: %w", err)
	}

	var st storedToken
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("parsing oauth token file: %w", err)
	}

	tok := &oauth2.Token{
		AccessToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
		TokenType:    st.TokenType,
		Expiry:       st.Expiry,
	}
	if tok.AccessToken == "" {
		tok.AccessToken = st.Token
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("oauth token file %s holds no token", path)
	}
	return tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	raw, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding oauth token: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("writing oauth token file: %w", err)
	}
	return nil
}
