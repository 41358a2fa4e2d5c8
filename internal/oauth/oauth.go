// Package oauth implements the OAuth Token Manager: loading Google Cloud
// credentials from disk, validating their file permissions, and
// refreshing the access token on demand with single-flight semantics.
//
// Grounded on original_source/src/oauth/manager.rs. The Rust source's
// Arc<RwLock<Credentials>> + Mutex double-checked-locking pattern is
// reproduced here with sync.RWMutex + sync.Mutex; the refresh call
// itself goes through internal/retry the same way the original layers
// its retry helper over reqwest.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/howard-nolan/geminiproxy/internal/config"
	"github.com/howard-nolan/geminiproxy/internal/metrics"
	"github.com/howard-nolan/geminiproxy/internal/retry"
)

// ClientID and ClientSecret are the compiled-in public OAuth2 client
// credentials used for both token refresh and the installed-app login
// flow (Q), identical to the original's OAUTH_CLIENT_ID/SECRET.
const (
	ClientID     = "681255809395-oo8ft2oprdrnp9e3aqf6av3hmdib135j.apps.googleusercontent.com"
	ClientSecret = "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"
	authEndpoint = "https://accounts.google.com/o/oauth2/v2/auth"
	// Scope is the OAuth2 scope requested by both refresh and login.
	Scope = "https://www.googleapis.com/auth/cloud-platform"
)

// tokenEndpoint is a var, not a const, solely so tests can point it at a
// local httptest server instead of Google's real token endpoint.
var tokenEndpoint = "https://oauth2.googleapis.com/token"

// endpoint returns the oauth2.Endpoint this package's refresh and
// login flows exchange tokens against; authEndpoint and tokenEndpoint
// are held as package-level strings (rather than inlined) so tests can
// redirect tokenEndpoint at an httptest server.
func endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{AuthURL: authEndpoint, TokenURL: tokenEndpoint}
}

// Credentials is the on-disk/in-memory shape of a Google OAuth2 token
// set, field-for-field compatible with the credentials file the
// original writes.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiryDate   int64  `json:"expiry_date"` // unix millis
	Scope        string `json:"scope"`
	IDToken      string `json:"id_token,omitempty"`
}

// isExpired reports whether the token expires within bufferSeconds of now.
func (c Credentials) isExpired(bufferSeconds int64) bool {
	now := time.Now().UnixMilli()
	return c.ExpiryDate-now <= bufferSeconds*1000
}

// Manager owns the lifecycle of one set of Google OAuth2 credentials:
// loading from disk, validating permissions, and refreshing with
// single-flight semantics.
type Manager struct {
	mu          sync.RWMutex
	creds       Credentials
	refreshLock sync.Mutex
	path        string
	cfg         config.OAuthConfig
	metrics     *metrics.Registry
	oauthConfig *oauth2.Config
}

// New loads credentials from cfg.CredentialsPath, validating that the
// file is 0600 or 0400 on POSIX, and returns a ready Manager.
func New(cfg config.OAuthConfig, reg *metrics.Registry) (*Manager, error) {
	creds, err := loadCredentials(cfg.CredentialsPath)
	if err != nil {
		return nil, err
	}
	return &Manager{
		creds:   creds,
		path:    cfg.CredentialsPath,
		cfg:     cfg,
		metrics: reg,
		oauthConfig: &oauth2.Config{
			ClientID:     ClientID,
			ClientSecret: ClientSecret,
			Endpoint:     endpoint(),
			Scopes:       []string{Scope},
		},
	}, nil
}

func loadCredentials(path string) (Credentials, error) {
	var creds Credentials

	info, err := os.Stat(path)
	if err != nil {
		return creds, fmt.Errorf("credentials file not found: %s", path)
	}

	if runtime.GOOS != "windows" {
		mode := info.Mode().Perm()
		if mode != 0o600 && mode != 0o400 {
			return creds, fmt.Errorf("insecure permissions on %s: %o (expected 0600)", path, mode)
		}
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return creds, fmt.Errorf("failed to read credentials: %w", err)
	}

	if err := json.Unmarshal(contents, &creds); err != nil {
		return creds, fmt.Errorf("invalid credentials JSON format: %w", err)
	}
	return creds, nil
}

// GetToken implements the fast-path/single-flight/re-check/refresh
// contract of SPEC_FULL.md §4.D.
func (m *Manager) GetToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	creds := m.creds
	m.mu.RUnlock()
	if !creds.isExpired(m.cfg.RefreshBufferSeconds) {
		if m.metrics != nil {
			m.metrics.OAuthTokenExpirySecs.Set(float64(creds.ExpiryDate/1000 - time.Now().Unix()))
		}
		return creds.AccessToken, nil
	}

	if !m.cfg.AutoRefresh {
		return "", fmt.Errorf("access token expired and auto_refresh is disabled")
	}

	m.refreshLock.Lock()
	defer m.refreshLock.Unlock()

	m.mu.RLock()
	creds = m.creds
	m.mu.RUnlock()
	if !creds.isExpired(m.cfg.RefreshBufferSeconds) {
		return creds.AccessToken, nil
	}

	newCreds, err := m.refresh(ctx, creds)
	if err != nil {
		if m.metrics != nil {
			m.metrics.RecordOAuthRefresh("failure")
		}
		return "", err
	}

	m.mu.Lock()
	m.creds = newCreds
	m.mu.Unlock()

	if err := m.persist(newCreds); err != nil {
		// Persistence failure must not fail the in-flight request; the
		// refreshed token is still valid in memory for this process.
		if m.metrics != nil {
			m.metrics.RecordOAuthRefresh("success")
		}
		return newCreds.AccessToken, nil
	}

	if m.metrics != nil {
		m.metrics.RecordOAuthRefresh("success")
	}
	return newCreds.AccessToken, nil
}

// refresh negotiates a new access token against m.oauthConfig's token
// endpoint using current.RefreshToken, via golang.org/x/oauth2's
// TokenSource, wrapped by the Retry Engine the same way the original
// layers its retry helper over reqwest.
func (m *Manager) refresh(ctx context.Context, current Credentials) (Credentials, error) {
	source := m.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: current.RefreshToken})

	token, err := retry.Do(ctx, func(ctx context.Context) (*oauth2.Token, error) {
		tok, err := source.Token()
		if err != nil {
			var retrieveErr *oauth2.RetrieveError
			if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
				return nil, &retry.HTTPError{StatusCode: retrieveErr.Response.StatusCode, Body: retrieveErr.Body}
			}
			return nil, fmt.Errorf("oauth refresh network error: %w", err)
		}
		return tok, nil
	})
	if err != nil {
		return Credentials{}, mapRefreshError(err)
	}

	if token.AccessToken == "" {
		return Credentials{}, fmt.Errorf("oauth refresh response missing access_token")
	}

	expiry := token.Expiry
	if expiry.IsZero() {
		expiry = time.Now().Add(time.Hour)
	}

	return Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: current.RefreshToken,
		TokenType:    "Bearer",
		ExpiryDate:   expiry.UnixMilli(),
		Scope:        current.Scope,
	}, nil
}

func mapRefreshError(err error) error {
	var httpErr *retry.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Errorf("oauth refresh failed: http %d: %s", httpErr.StatusCode, string(httpErr.Body))
	}
	return fmt.Errorf("oauth refresh failed: %w", err)
}

// persist writes creds to m.path atomically: write to a temp file in the
// same directory, then os.Rename, so a crash mid-write never corrupts
// the on-disk credentials.
func (m *Manager) persist(creds Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing credentials: %w", err)
	}

	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, ".oauth-creds-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp credentials file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp credentials file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp credentials file: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming credentials file: %w", err)
	}
	return nil
}

// TokenInfo returns the current access token's remaining lifetime in
// seconds and whether it is currently considered expired, for health
// checks and diagnostics.
func (m *Manager) TokenInfo() (secondsRemaining int64, expired bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	remaining := m.creds.ExpiryDate/1000 - time.Now().Unix()
	if remaining < 0 {
		remaining = 0
	}
	return remaining, m.creds.isExpired(m.cfg.RefreshBufferSeconds)
}
