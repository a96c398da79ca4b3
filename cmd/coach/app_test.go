package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"bodycoach/internal/chat"
	"bodycoach/internal/client"
	"bodycoach/internal/identity"
	"bodycoach/internal/session"
)

type staticTokens string

func (t staticTokens) IDToken(context.Context, bool) (string, error) {
	return string(t), nil
}

// fakeProvider signs in one known account and notifies synchronously.
type fakeProvider struct {
	mu       sync.Mutex
	listener func(*session.Session)
	current  *session.Session
}

func (p *fakeProvider) set(s *session.Session) {
	p.mu.Lock()
	p.current = s
	fn := p.listener
	p.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (p *fakeProvider) SignIn(_ context.Context, email, password string) (*session.Session, error) {
	if email != "test@example.com" || password != "password123" {
		return nil, &identity.Error{Code: identity.CodeWrongPassword}
	}
	s := &session.Session{UID: "uid-1", Email: email, Tokens: staticTokens("mock-token")}
	p.set(s)
	return s, nil
}

func (p *fakeProvider) SignUp(_ context.Context, email, _ string) (*session.Session, error) {
	s := &session.Session{UID: "uid-2", Email: email, Tokens: staticTokens("mock-token")}
	p.set(s)
	return s, nil
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.set(nil)
	return nil
}

func (p *fakeProvider) Subscribe(fn func(*session.Session)) func() {
	p.mu.Lock()
	p.listener = fn
	current := p.current
	p.mu.Unlock()
	fn(current)
	return func() {
		p.mu.Lock()
		p.listener = nil
		p.mu.Unlock()
	}
}

func newTestApp(t *testing.T, input string, agent http.HandlerFunc) (*app, *bytes.Buffer) {
	t.Helper()

	srv := httptest.NewServer(agent)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	functions := client.New(srv.URL, srv.Client())
	manager := session.NewManager(&fakeProvider{}, functions, logger)
	manager.Start()
	t.Cleanup(manager.Close)

	var out bytes.Buffer
	a := newApp(strings.NewReader(input), &out, manager, chat.NewConversation(manager, functions, logger))
	return a, &out
}

func TestAppLoginThenChat(t *testing.T) {
	var prompts []string
	agent := func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case client.EndpointAgent:
			if r.Header.Get("Authorization") != "Bearer mock-token" {
				t.Errorf("unexpected authorization %q", r.Header.Get("Authorization"))
			}
			prompts = append(prompts, "agent")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":"りんご100gは約52kcalです。"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}

	input := strings.Join([]string{
		"test@example.com",
		"password123",
		"りんご 100g",
		"/logout",
		"/quit",
	}, "\n") + "\n"
	a, out := newTestApp(t, input, agent)

	if err := a.run(context.Background()); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "test@example.com でログイン中") {
		t.Fatalf("expected chat view after login, got:\n%s", text)
	}
	if !strings.Contains(text, "りんご100gは約52kcalです。") {
		t.Fatalf("expected assistant reply, got:\n%s", text)
	}
	if len(prompts) != 1 {
		t.Fatalf("expected one relay call, got %d", len(prompts))
	}
	if strings.Count(text, "ログイン ==") != 2 {
		t.Fatalf("expected login view again after logout, got:\n%s", text)
	}
}

func TestAppLoginValidationAndFailure(t *testing.T) {
	input := strings.Join([]string{
		"",
		"",
		"test@example.com",
		"wrong",
	}, "\n") + "\n"
	a, out := newTestApp(t, input, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})

	if err := a.run(context.Background()); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"メールアドレスを入力してください",
		"パスワードを入力してください",
		"ログインに失敗しました。メールアドレスとパスワードを確認してください。",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
	if a.path != session.LoginPath {
		t.Fatalf("expected to stay on login, got %q", a.path)
	}
}

func TestAppRegisterBootstrapsProfile(t *testing.T) {
	var gotEmail string
	agent := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != client.EndpointCreateUserProfile {
			t.Errorf("unexpected path %s", r.URL.Path)
			return
		}
		var body struct {
			Email string `json:"email"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotEmail = body.Email
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"doc-1","firebase_uid":"uid-2","email":"new@example.com","name":null}`))
	}

	input := strings.Join([]string{
		"/register",
		"new@example.com",
		"password123",
		"password123",
		"/quit",
	}, "\n") + "\n"
	a, out := newTestApp(t, input, agent)

	if err := a.run(context.Background()); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if gotEmail != "new@example.com" {
		t.Fatalf("expected profile bootstrap for new@example.com, got %q", gotEmail)
	}
	if !strings.Contains(out.String(), "new@example.com でログイン中") {
		t.Fatalf("expected chat view after register, got:\n%s", out.String())
	}
}

func TestAppProtectedViewRedirects(t *testing.T) {
	a, out := newTestApp(t, "/quit\n", func(w http.ResponseWriter, r *http.Request) {})
	a.Navigate("/")

	if err := a.run(context.Background()); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if strings.Contains(out.String(), "でログイン中") {
		t.Fatalf("expected no chat view without a session, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "ログイン ==") {
		t.Fatalf("expected redirect to login, got:\n%s", out.String())
	}
}
