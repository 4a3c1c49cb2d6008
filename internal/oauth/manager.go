package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	"homewatch/internal/credentials"
)

const (
	// TokenURL is Netatmo's OAuth2 token endpoint.
	TokenURL = "https://api.netatmo.com/oauth2/token"

	// Scope covers camera discovery, event history, and snapshot access
	// for Presence and Welcome cameras.
	Scope = "read_presence access_presence read_camera access_camera"

	DefaultRefreshInterval = 10 * time.Minute
)

// Manager manages the Netatmo refresh token and access token cache.
type Manager struct {
	provider   string
	statePath  string
	scope      string
	blobStore  BlobStore
	httpClient *http.Client

	mu              sync.Mutex
	accessToken     string
	expiresAt       time.Time
	refreshToken    string
	refreshInFlight bool
	config          *oauth2.Config
}

// Options tunes a Manager beyond the credentials themselves.
type Options struct {
	Provider  string
	TokenURL  string
	Scope     string
	StatePath string
	BlobStore BlobStore
}

func NewManager(creds credentials.Credentials, opts Options) (*Manager, error) {
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}
	if opts.StatePath == "" {
		return nil, fmt.Errorf("statePath is required")
	}
	if !filepath.IsAbs(opts.StatePath) {
		return nil, fmt.Errorf("statePath must be absolute")
	}
	if opts.Provider == "" {
		opts.Provider = "netatmo"
	}
	if opts.TokenURL == "" {
		opts.TokenURL = TokenURL
	}
	if opts.Scope == "" {
		opts.Scope = Scope
	}

	m := &Manager{
		provider:   opts.Provider,
		statePath:  opts.StatePath,
		scope:      opts.Scope,
		blobStore:  opts.BlobStore,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: opts.TokenURL},
			Scopes:       strings.Fields(opts.Scope),
		},
	}

	state, err := m.loadInitialState(creds)
	if err != nil {
		return nil, err
	}
	m.refreshToken = state.RefreshToken

	return m, nil
}

func (m *Manager) Start(ctx context.Context) {
	m.StartWithInterval(ctx, DefaultRefreshInterval)
}

// StartWithInterval refreshes immediately, then keeps the token fresh on a
// ticker until ctx is cancelled. An interval of 0 disables the loop.
func (m *Manager) StartWithInterval(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	threshold := interval
	if threshold < 30*time.Second {
		threshold = 30 * time.Second
	}
	m.refreshIfNeeded(ctx, threshold)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.refreshIfNeeded(ctx, threshold)
			}
		}
	}()
}

// AccessToken returns the cached access token if it is still valid.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accessToken != "" && time.Until(m.expiresAt) > 30*time.Second {
		return m.accessToken, nil
	}

	tokenValid.WithLabelValues(m.provider).Set(0)
	return "", fmt.Errorf("netatmo access token unavailable")
}

// TriggerRefresh kicks off an asynchronous refresh, typically after a 401.
func (m *Manager) TriggerRefresh(ctx context.Context) {
	m.mu.Lock()
	if m.refreshInFlight {
		m.mu.Unlock()
		return
	}
	m.refreshInFlight = true
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			m.refreshInFlight = false
			m.mu.Unlock()
		}()
		_ = m.refresh(ctx)
	}()
}

func (m *Manager) refreshIfNeeded(ctx context.Context, threshold time.Duration) {
	m.mu.Lock()
	need := m.accessToken == "" || time.Until(m.expiresAt) <= threshold
	if !need || m.refreshInFlight {
		m.mu.Unlock()
		return
	}
	m.refreshInFlight = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.refreshInFlight = false
		m.mu.Unlock()
	}()

	_ = m.refresh(ctx)
}

func (m *Manager) refresh(ctx context.Context) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	m.mu.Lock()
	source := m.config.TokenSource(ctx, &oauth2.Token{RefreshToken: m.refreshToken})
	m.mu.Unlock()

	token, err := source.Token()
	if err != nil {
		refreshFailure.WithLabelValues(m.provider).Inc()
		tokenValid.WithLabelValues(m.provider).Set(0)
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			body := strings.TrimSpace(string(retrieveErr.Body))
			return fmt.Errorf("token refresh failed %d: %s", retrieveErr.Response.StatusCode, body)
		}
		return err
	}

	m.mu.Lock()
	m.accessToken = token.AccessToken
	m.expiresAt = token.Expiry
	if token.RefreshToken != "" {
		m.refreshToken = token.RefreshToken
	}
	state := State{
		SchemaVersion: SchemaVersion,
		RefreshToken:  m.refreshToken,
		Scope:         m.scope,
	}
	m.mu.Unlock()

	if err := WriteState(m.statePath, state); err != nil {
		refreshFailure.WithLabelValues(m.provider).Inc()
		return fmt.Errorf("persist state: %w", err)
	}
	m.persistBlob(ctx, state)

	refreshSuccess.WithLabelValues(m.provider).Inc()
	tokenValid.WithLabelValues(m.provider).Set(1)
	return nil
}

// loadInitialState resolves the refresh token: local state file first, then
// the blob mirror, finally the bootstrap credentials file.
func (m *Manager) loadInitialState(creds credentials.Credentials) (State, error) {
	local, localErr := LoadState(m.statePath)
	if localErr == nil {
		if err := checkStateFile(m.statePath); err != nil {
			return State{}, err
		}
		if local.Scope == "" {
			local.Scope = m.scope
		}
		m.persistBlob(context.Background(), local)
		return local, nil
	}
	if !errors.Is(localErr, ErrStateNotFound) {
		return State{}, localErr
	}

	if m.blobStore != nil {
		blob, blobErr := m.loadFromBlob(context.Background())
		if blobErr == nil {
			if blob.Scope == "" {
				blob.Scope = m.scope
			}
			if err := WriteState(m.statePath, blob); err != nil {
				return State{}, err
			}
			return blob, nil
		}
		if !errors.Is(blobErr, ErrBlobNotFound) {
			return State{}, blobErr
		}
	}

	state := State{
		SchemaVersion: SchemaVersion,
		RefreshToken:  creds.RefreshToken,
		Scope:         m.scope,
	}
	if err := WriteState(m.statePath, state); err != nil {
		return State{}, err
	}
	m.persistBlob(context.Background(), state)
	return state, nil
}

func (m *Manager) loadFromBlob(ctx context.Context) (State, error) {
	data, err := m.blobStore.Load(ctx, m.provider)
	if err != nil {
		return State{}, err
	}
	return DecodeState(data)
}

func (m *Manager) persistBlob(ctx context.Context, state State) {
	if m.blobStore == nil {
		return
	}
	data, err := EncodeState(state)
	if err == nil {
		err = m.blobStore.Save(ctx, m.provider, data)
	}
	if err != nil {
		remotePersistOK.WithLabelValues(m.provider).Set(0)
		return
	}
	remotePersistOK.WithLabelValues(m.provider).Set(1)
}

func checkStateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0o600 {
		return fmt.Errorf("state file %s must have 0600 permissions", path)
	}
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		if int(stat.Uid) != os.Geteuid() {
			return fmt.Errorf("state file %s must be owned by uid %d", path, os.Geteuid())
		}
	}
	return nil
}
