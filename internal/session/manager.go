// Package session owns the client-side authentication state: the current
// session, the initial loading window, background credential refresh and the
// sign-in, sign-up and sign-out flows.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultRefreshInterval keeps ID tokens (valid for one hour) warm.
const DefaultRefreshInterval = 25 * time.Minute

// TokenProvider yields a Credential Token for a session.
type TokenProvider interface {
	IDToken(ctx context.Context, forceRefresh bool) (string, error)
}

// Session is the currently authenticated principal.
type Session struct {
	UID         string
	Email       string
	DisplayName string
	Tokens      TokenProvider
}

// Provider abstracts the hosted auth service.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	Subscribe(fn func(*Session)) (unsubscribe func())
}

// ProfileCreator materialises a profile document after sign-up.
type ProfileCreator interface {
	CreateUserProfile(ctx context.Context, token, email string, name *string) error
}

// State is a snapshot of the manager.
type State struct {
	Loading bool
	User    *Session
}

// Authenticated reports whether a session is present.
func (s State) Authenticated() bool {
	return s.User != nil
}

// Option customises a Manager.
type Option func(*Manager)

// WithRefreshInterval overrides DefaultRefreshInterval.
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshInterval = d
		}
	}
}

// Manager is safe for concurrent use.
type Manager struct {
	provider        Provider
	profiles        ProfileCreator
	logger          *slog.Logger
	refreshInterval time.Duration

	mu          sync.Mutex
	state       State
	started     bool
	closed      bool
	unsubscribe func()
	stopRefresh context.CancelFunc
	refreshWG   sync.WaitGroup
	listeners   map[int]func(State)
	nextID      int
}

// NewManager creates a Manager. profiles may be nil to skip profile bootstrap.
func NewManager(provider Provider, profiles ProfileCreator, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		provider:        provider,
		profiles:        profiles,
		logger:          logger,
		refreshInterval: DefaultRefreshInterval,
		state:           State{Loading: true},
		listeners:       make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start subscribes to provider notifications. Calling it again is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	unsubscribe := m.provider.Subscribe(m.handleChange)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		unsubscribe()
		return
	}
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
}

// Close unsubscribes from the provider and stops the refresh timer.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	if m.stopRefresh != nil {
		m.stopRefresh()
		m.stopRefresh = nil
	}
	m.listeners = make(map[int]func(State))
	m.mu.Unlock()

	// Must run without m.mu: the provider may be delivering into handleChange.
	if unsubscribe != nil {
		unsubscribe()
	}
	m.refreshWG.Wait()
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn for state changes. fn runs once per transition of
// the loading flag or the signed-in UID. The returned function is idempotent.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) handleChange(s *Session) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}

	prev := m.state
	next := State{Loading: false, User: s}
	m.state = next

	if prev.User != s {
		m.restartRefreshLocked(s)
	}

	prevUID, nextUID := uidOf(prev.User), uidOf(s)

	if !prev.Loading && prevUID == nextUID {
		m.mu.Unlock()
		return
	}

	listeners := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}

func uidOf(s *Session) string {
	if s == nil {
		return ""
	}
	return s.UID
}

func (m *Manager) restartRefreshLocked(s *Session) {
	if m.stopRefresh != nil {
		m.stopRefresh()
		m.stopRefresh = nil
	}
	if s == nil || s.Tokens == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.stopRefresh = cancel
	m.refreshWG.Add(1)
	go m.refreshLoop(ctx, s)
}

func (m *Manager) refreshLoop(ctx context.Context, s *Session) {
	defer m.refreshWG.Done()

	ticker := time.NewTicker(m.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Tokens.IDToken(ctx, true); err != nil {
				if ctx.Err() != nil {
					return
				}
				m.logger.Error("token refresh failed", "uid", s.UID, "error", err)
				continue
			}
			m.logger.Debug("token refreshed", "uid", s.UID)
		}
	}
}

// SignIn verifies credentials with the provider. The session itself arrives
// through the provider subscription.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if _, err := m.provider.SignIn(ctx, email, password); err != nil {
		authErr := signInError(err)
		m.logger.Error("sign-in failed", "code", authErr.Code, "message", authErr.Message, "error", err)
		return authErr
	}
	m.logger.Info("sign-in succeeded", "email", email)
	return nil
}

// SignUp creates the account, then best-effort bootstraps the profile.
func (m *Manager) SignUp(ctx context.Context, email, password string) error {
	created, err := m.provider.SignUp(ctx, email, password)
	if err != nil {
		authErr := signUpError(err)
		m.logger.Error("sign-up failed", "code", authErr.Code, "message", authErr.Message, "error", err)
		return authErr
	}

	m.bootstrapProfile(ctx, created)
	return nil
}

func (m *Manager) bootstrapProfile(ctx context.Context, s *Session) {
	if m.profiles == nil || s == nil || s.Tokens == nil {
		return
	}

	token, err := s.Tokens.IDToken(ctx, false)
	if err != nil {
		m.logger.Error("profile bootstrap: token unavailable", "uid", s.UID, "error", err)
		return
	}

	var name *string
	if s.DisplayName != "" {
		displayName := s.DisplayName
		name = &displayName
	}

	if err := m.profiles.CreateUserProfile(ctx, token, s.Email, name); err != nil {
		m.logger.Error("profile bootstrap failed", "uid", s.UID, "error", err)
		return
	}
	m.logger.Info("profile bootstrapped", "uid", s.UID)
}

// Logout signs out of the provider. It is safe without a session.
func (m *Manager) Logout(ctx context.Context) error {
	return m.provider.SignOut(ctx)
}

// ValidToken force-fetches a fresh Credential Token. It reports false when no
// session exists or the fetch fails.
func (m *Manager) ValidToken(ctx context.Context) (string, bool) {
	m.mu.Lock()
	s := m.state.User
	m.mu.Unlock()

	if s == nil || s.Tokens == nil {
		return "", false
	}

	token, err := s.Tokens.IDToken(ctx, true)
	if err != nil {
		m.logger.Error("token fetch failed", "uid", s.UID, "error", err)
		return "", false
	}
	return token, true
}
