package gcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/worklog-bot/worklog/internal/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadToken_AuthorizedUserLayout(t *testing.T) {
	path := writeFile(t, "token.json", `{"token":"ya29.abc","refresh_token":"1//r","client_id":"x","expiry":"2026-03-14T10:00:00Z"}`)

	tok, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "ya29.abc", tok.AccessToken)
	assert.Equal(t, "1//r", tok.RefreshToken)
	assert.Equal(t, 2026, tok.Expiry.Year())
}

func TestLoadToken_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	want := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	require.NoError(t, SaveToken(path, want))

	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.True(t, want.Expiry.Equal(got.Expiry))
}

func TestLoadToken_Empty(t *testing.T) {
	path := writeFile(t, "token.json", `{}`)
	_, err := LoadToken(path)
	assert.Error(t, err)
}

func TestClientOptions(t *testing.T) {
	ctx := context.Background()

	_, err := ClientOptions(ctx, config.GoogleConfig{})
	assert.ErrorIs(t, err, ErrNoCredentials)

	opts, err := ClientOptions(ctx, config.GoogleConfig{CredentialsFile: "/etc/worklog/sa.json"})
	require.NoError(t, err)
	assert.Len(t, opts, 1)

	client := writeFile(t, "client.json", `{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`)
	token := writeFile(t, "token.json", `{"access_token":"a","refresh_token":"r"}`)
	opts, err = ClientOptions(ctx, config.GoogleConfig{OAuthClientFile: client, OAuthTokenFile: token})
	require.NoError(t, err)
	assert.Len(t, opts, 1)
}
