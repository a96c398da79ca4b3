// Package identity is a client for the hosted auth provider's REST API
// (identity toolkit and secure token service). It keeps the currently signed-in
// user and notifies subscribers whenever that changes.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com"
	defaultSecureTokenURL     = "https://securetoken.googleapis.com"
)

// Config configures an Auth client.
type Config struct {
	APIKey string
	// EmulatorURL, when set, routes every call to a local auth emulator,
	// e.g. http://localhost:9099.
	EmulatorURL string
	HTTPClient  *http.Client
}

// Auth is the provider handle. It is safe for concurrent use.
type Auth struct {
	apiKey      string
	toolkitURL  string
	httpClient  *http.Client
	tokenConfig *oauth2.Config
	now         func() time.Time

	mu          sync.Mutex
	current     *User
	version     uint64
	subscribers map[uint64]*subscription
	nextSubID   uint64
}

// New builds an Auth client from cfg.
func New(cfg Config) *Auth {
	toolkitURL := defaultIdentityToolkitURL
	secureTokenURL := defaultSecureTokenURL
	if emulator := strings.TrimSuffix(strings.TrimSpace(cfg.EmulatorURL), "/"); emulator != "" {
		toolkitURL = emulator + "/identitytoolkit.googleapis.com"
		secureTokenURL = emulator + "/securetoken.googleapis.com"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	return &Auth{
		apiKey:     apiKey,
		toolkitURL: toolkitURL,
		httpClient: httpClient,
		tokenConfig: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  secureTokenURL + "/v1/token?key=" + url.QueryEscape(apiKey),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		now:         time.Now,
		subscribers: make(map[uint64]*subscription),
	}
}

// Configured reports whether an API key is present.
func (a *Auth) Configured() bool {
	return a.apiKey != ""
}

// CurrentUser returns the signed-in user or nil.
func (a *Auth) CurrentUser() *User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// SignInWithPassword verifies the credentials and makes the user current.
func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*User, error) {
	user, err := a.passwordCall(ctx, "accounts:signInWithPassword", email, password)
	if err != nil {
		return nil, err
	}
	a.setCurrent(user)
	return user, nil
}

// CreateUserWithPassword registers a new account and signs it in.
func (a *Auth) CreateUserWithPassword(ctx context.Context, email, password string) (*User, error) {
	user, err := a.passwordCall(ctx, "accounts:signUp", email, password)
	if err != nil {
		return nil, err
	}
	a.setCurrent(user)
	return user, nil
}

// SignOut clears the current user. It is a no-op when nobody is signed in.
func (a *Auth) SignOut(_ context.Context) error {
	a.setCurrent(nil)
	return nil
}

func (a *Auth) passwordCall(ctx context.Context, method, email, password string) (*User, error) {
	if !a.Configured() {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, fmt.Errorf("identity: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/%s?key=%s", a.toolkitURL, method, url.QueryEscape(a.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Code: CodeNetworkRequestFailed, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Code: CodeNetworkRequestFailed, Message: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseRESTError(body)
	}

	var credential credentialResponse
	if err := json.Unmarshal(body, &credential); err != nil {
		return nil, &Error{Code: CodeInternal, Message: "malformed credential response", Err: err}
	}
	if credential.LocalID == "" || credential.IDToken == "" {
		return nil, &Error{Code: CodeInternal, Message: "credential response missing localId or idToken"}
	}

	token, err := credential.token(a.now())
	if err != nil {
		return nil, &Error{Code: CodeInternal, Message: err.Error(), Err: err}
	}

	if credential.Email != "" {
		email = credential.Email
	}
	return newUser(credential.LocalID, email, credential.DisplayName, a.tokenConfig, a.httpClient, token), nil
}

type subscription struct {
	mu     sync.Mutex
	fn     func(*User)
	last   uint64
	closed bool
}

// deliver invokes fn unless a newer state was already delivered.
func (s *subscription) deliver(version uint64, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || version <= s.last {
		return
	}
	s.last = version
	s.fn(user)
}

// Subscribe registers fn for auth state changes. The current state is
// delivered asynchronously right after subscribing, then fn runs once per
// transition. The returned function unsubscribes and may be called any number
// of times.
func (a *Auth) Subscribe(fn func(*User)) (unsubscribe func()) {
	a.mu.Lock()
	a.nextSubID++
	id := a.nextSubID
	sub := &subscription{fn: fn}
	a.subscribers[id] = sub
	// Offset by one so the initial delivery is never shadowed by last == 0.
	version := a.version + 1
	current := a.current
	a.mu.Unlock()

	go sub.deliver(version, current)

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subscribers, id)
			a.mu.Unlock()

			sub.mu.Lock()
			sub.closed = true
			sub.mu.Unlock()
		})
	}
}

func (a *Auth) setCurrent(user *User) {
	a.mu.Lock()
	if a.current == nil && user == nil {
		a.mu.Unlock()
		return
	}
	a.current = user
	a.version++
	version := a.version + 1
	subs := make([]*subscription, 0, len(a.subscribers))
	for _, sub := range a.subscribers {
		subs = append(subs, sub)
	}
	a.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(version, user)
	}
}
