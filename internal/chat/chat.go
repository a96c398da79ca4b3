// Package chat holds the in-memory conversation shown by the chat view.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bodycoach/internal/client"
)

// Author identifies who wrote a message.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

const (
	fallbackMessage = "エラーが発生しました。しばらく待ってからもう一度お試しください。"
	statusMessage   = "エラーが発生しました"
)

var (
	// ErrEmptyInput is returned for blank input.
	ErrEmptyInput = errors.New("chat: empty input")
	// ErrSending is returned while a previous send is in flight.
	ErrSending = errors.New("chat: send in progress")

	errNoToken = errors.New("chat: credential token unavailable")
)

// Message is one chat bubble.
type Message struct {
	ID        uuid.UUID
	Author    Author
	Text      string
	Timestamp string
	CreatedAt time.Time
}

// TokenSource is satisfied by *session.Manager.
type TokenSource interface {
	ValidToken(ctx context.Context) (string, bool)
}

// Agent is satisfied by *client.Client.
type Agent interface {
	Agent(ctx context.Context, token, prompt string) (client.AgentReply, error)
}

// Conversation is safe for concurrent use.
type Conversation struct {
	tokens TokenSource
	agent  Agent
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	messages []Message
	sending  bool
}

// NewConversation returns an empty conversation.
func NewConversation(tokens TokenSource, agent Agent, logger *slog.Logger) *Conversation {
	return &Conversation{
		tokens: tokens,
		agent:  agent,
		logger: logger,
		now:    time.Now,
	}
}

// Messages returns a copy of the conversation so far.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Sending reports whether a send is in flight.
func (c *Conversation) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// Send appends text as a user message, relays it and appends the reply.
// Relay failures never surface as errors; they become an assistant message.
func (c *Conversation) Send(ctx context.Context, text string) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, ErrEmptyInput
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return Message{}, ErrSending
	}
	c.sending = true
	c.appendLocked(AuthorUser, text)
	c.mu.Unlock()

	reply := c.reply(ctx, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = false
	return c.appendLocked(AuthorAssistant, reply), nil
}

func (c *Conversation) reply(ctx context.Context, prompt string) string {
	token, ok := c.tokens.ValidToken(ctx)
	if !ok {
		c.logger.Error("agent chat failed", "error", errNoToken)
		return fallbackMessage
	}

	resp, err := c.agent.Agent(ctx, token, prompt)
	if err != nil {
		c.logger.Error("agent chat failed", "status", resp.StatusCode, "error", err)
		return fallbackMessage
	}
	if resp.OK() {
		return resp.Message
	}
	if resp.Error != "" {
		return resp.Error
	}
	return statusMessage
}

func (c *Conversation) appendLocked(author Author, text string) Message {
	now := c.now()
	msg := Message{
		ID:        uuid.New(),
		Author:    author,
		Text:      text,
		Timestamp: now.Format("15:04"),
		CreatedAt: now,
	}
	c.messages = append(c.messages, msg)
	return msg
}
