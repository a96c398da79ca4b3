// Package client calls the HTTP functions that back the chat application.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Function endpoints relative to the base URL.
const (
	EndpointAgent             = "/agent"
	EndpointCreateUserProfile = "/createUserProfile"
	EndpointHelloWorld        = "/helloWorld"
)

const maxResponseBytes = 1 << 20

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a Client rooted at baseURL. A nil httpClient uses a client with
// a 60 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// URL joins endpoint onto the base URL.
func (c *Client) URL(endpoint string) string {
	return c.baseURL + endpoint
}

// StatusError reports a non-2xx function response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("function returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("function returned status %d: %s", e.StatusCode, e.Message)
}

// AgentReply is the decoded /agent response.
type AgentReply struct {
	StatusCode int
	Message    string
	Error      string
}

// OK reports a 2xx status.
func (r AgentReply) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Agent sends prompt to the relay. A returned error means the call failed or
// the body could not be decoded; HTTP error statuses come back in the reply.
func (c *Client) Agent(ctx context.Context, token, prompt string) (AgentReply, error) {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	status, err := c.postJSON(ctx, EndpointAgent, token, map[string]string{"prompt": prompt}, &payload)
	if err != nil {
		return AgentReply{StatusCode: status}, err
	}
	return AgentReply{StatusCode: status, Message: payload.Message, Error: payload.Error}, nil
}

// Profile mirrors the document returned by /createUserProfile.
type Profile struct {
	ID          string    `json:"id"`
	FirebaseUID string    `json:"firebase_uid"`
	Email       string    `json:"email"`
	Name        *string   `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateUserProfile asks the server to materialise the caller's profile.
func (c *Client) CreateUserProfile(ctx context.Context, token, email string, name *string) error {
	_, err := c.CreateUserProfileDocument(ctx, token, email, name)
	return err
}

// CreateUserProfileDocument is CreateUserProfile returning the stored profile.
func (c *Client) CreateUserProfileDocument(ctx context.Context, token, email string, name *string) (Profile, error) {
	body := struct {
		Email string  `json:"email"`
		Name  *string `json:"name"`
	}{Email: email, Name: name}

	var raw json.RawMessage
	status, err := c.postJSON(ctx, EndpointCreateUserProfile, token, body, &raw)
	if err != nil {
		return Profile{}, err
	}
	if status < 200 || status >= 300 {
		return Profile{}, &StatusError{StatusCode: status, Message: errorField(raw)}
	}

	var profile Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return profile, nil
}

// HelloWorld calls the liveness function and returns its text.
func (c *Client) HelloWorld(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(EndpointHelloWorld), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", EndpointHelloWorld, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	return string(data), nil
}

func (c *Client) postJSON(ctx context.Context, endpoint, token string, body, out any) (int, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(endpoint), bytes.NewReader(encoded))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return resp.StatusCode, nil
}

func errorField(raw json.RawMessage) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	return payload.Error
}
