// Package auth obtains and stores the OAuth2 token used for remote sync.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/trivial-focus-tracker/internal/fsutil"
)

// ErrNotLoggedIn is returned by Client when no token has been stored.
var ErrNotLoggedIn = errors.New("not logged in (run `tft login`)")

// Config describes the identity provider and where the token lives.
type Config struct {
	ClientID      string
	DeviceAuthURL string
	TokenURL      string
	Scopes        []string
	// TokenFile is where the token is persisted.
	TokenFile string
	// StaticToken, when set, is sent as the bearer token and no OAuth2
	// flow is used.
	StaticToken string
}

// TokenFilePath returns the default token location under dataDir.
func TokenFilePath(dataDir string) string {
	return filepath.Join(dataDir, "auth", "token.json")
}

func (c Config) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID: c.ClientID,
		Scopes:   c.Scopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: c.DeviceAuthURL,
			TokenURL:      c.TokenURL,
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// LoadToken loads a previously saved token. A missing file yields nil, nil.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file (delete %s to re-authenticate): %w", path, err)
	}
	return &tok, nil
}

// SaveToken persists a token atomically with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("saving token file: %w", err)
	}
	return nil
}

// Login runs the device code flow, printing the verification instructions
// to out, and stores the resulting token.
func Login(ctx context.Context, cfg Config, out io.Writer) (*oauth2.Token, error) {
	if cfg.ClientID == "" || cfg.DeviceAuthURL == "" || cfg.TokenURL == "" {
		return nil, errors.New("auth.client_id, auth.device_auth_url and auth.token_url must be configured")
	}
	oc := cfg.oauth2Config()

	resp, err := oc.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device auth request failed: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "To sign in, use a web browser to open the page:")
	fmt.Fprintf(out, "  %s\n", resp.VerificationURI)
	fmt.Fprintf(out, "Enter the code: %s\n", resp.UserCode)
	fmt.Fprintln(out)

	tok, err := oc.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("device authentication failed: %w", err)
	}
	if err := SaveToken(cfg.TokenFile, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Client returns an HTTP client that adds the bearer token to every
// request. Stored tokens are refreshed as needed and refreshed tokens are
// written back to TokenFile.
func Client(ctx context.Context, cfg Config) (*http.Client, error) {
	if cfg.StaticToken != "" {
		return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.StaticToken,
			TokenType:   "Bearer",
		})), nil
	}

	tok, err := LoadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, ErrNotLoggedIn
	}

	ts := cfg.oauth2Config().TokenSource(ctx, tok)
	saving := &savingTokenSource{ts: ts, path: cfg.TokenFile, last: tok.AccessToken}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, saving)), nil
}

// savingTokenSource wraps a TokenSource and persists refreshed tokens.
type savingTokenSource struct {
	ts   oauth2.TokenSource
	path string
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		// Best-effort save; ignore errors.
		_ = SaveToken(s.path, tok)
		s.last = tok.AccessToken
	}
	return tok, nil
}
