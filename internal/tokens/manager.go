package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/salted-labs/control-loop-core/internal/infrastructure/config"
)

// Token request constants.
const (
	// defaultRequestTimeout bounds a single token exchange.
	defaultRequestTimeout = 10 * time.Second

	// expiryMargin is subtracted from the reported lifetime so a credential
	// is refreshed shortly before the issuer considers it expired.
	expiryMargin = 10 * time.Second
)

// Credential is a time-limited access token used to authenticate the
// messaging session. The zero Credential is invalid.
type Credential struct {
	// AccessToken is the opaque token presented to the broker.
	AccessToken string

	// ExpiresAt is the instant after which the token must not be reused.
	// The expiry margin has already been applied.
	ExpiresAt time.Time
}

// Valid reports whether the credential exists and has not expired.
func (c Credential) Valid() bool {
	return c.AccessToken != "" && time.Now().Before(c.ExpiresAt)
}

// Manager acquires and refreshes access credentials from an OAuth2 token
// endpoint using the client-credentials grant.
//
// Thread Safety:
//   - All methods are safe for concurrent use. A refresh in progress only
//     serializes other token callers; it holds no lock shared with the
//     parameter store or the dispatch path.
type Manager struct {
	cfg        config.AuthConfig
	httpClient *http.Client

	mu      sync.Mutex
	current Credential
}

// tokenResponse is the wire shape of a successful token exchange.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// NewManager creates a token manager for the given auth configuration.
func NewManager(cfg config.AuthConfig) *Manager {
	return &Manager{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}
}

// Acquire performs a fresh credential exchange against the token endpoint,
// regardless of any cached credential. On success the new credential
// replaces the cached one.
//
// Returns ErrUnauthorized when the endpoint rejects the credentials and
// ErrRequestFailed on network or protocol failures. Neither corrupts the
// cached credential.
func (m *Manager) Acquire(ctx context.Context) (Credential, error) {
	if m.cfg.TokenEndpoint == "" {
		return Credential{}, ErrNotConfigured
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {m.cfg.ClientID},
		"client_secret": {m.cfg.ClientSecret},
	}
	if m.cfg.Scope != "" {
		form.Set("scope", m.cfg.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.cfg.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, fmt.Errorf("%w: building request: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
		resp.StatusCode == http.StatusBadRequest {
		return Credential{}, fmt.Errorf("%w: endpoint returned %s", ErrUnauthorized, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return Credential{}, fmt.Errorf("%w: endpoint returned %s", ErrRequestFailed, resp.Status)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Credential{}, fmt.Errorf("%w: decoding response: %w", ErrRequestFailed, err)
	}
	if tr.AccessToken == "" {
		return Credential{}, fmt.Errorf("%w: no access token in response", ErrUnauthorized)
	}

	cred := Credential{
		AccessToken: tr.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - expiryMargin),
	}

	m.mu.Lock()
	m.current = cred
	m.mu.Unlock()

	return cred, nil
}

// Token returns the cached credential when still valid, otherwise acquires
// a fresh one. May block on network I/O during a refresh.
func (m *Manager) Token(ctx context.Context) (Credential, error) {
	m.mu.Lock()
	cred := m.current
	m.mu.Unlock()

	if cred.Valid() {
		return cred, nil
	}
	return m.Acquire(ctx)
}

// ForceRefresh discards the cached credential and acquires a fresh one.
// An open messaging session is not torn down; the new credential takes
// effect on the next (re)connect through the session's credentials provider.
func (m *Manager) ForceRefresh(ctx context.Context) (Credential, error) {
	return m.Acquire(ctx)
}

// Current returns the cached credential without triggering a refresh.
// The zero Credential is returned before the first successful acquisition.
func (m *Manager) Current() Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
