// Package relay forwards a user prompt to the configured model backend.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bodycoach/internal/metrics"
)

var (
	// ErrEmptyPrompt is returned for an absent or blank prompt.
	ErrEmptyPrompt = errors.New("no prompt provided")
	// ErrUpstream wraps model backend failures.
	ErrUpstream = errors.New("model backend failed")
)

// Service relays prompts. It performs exactly one backend call per prompt.
type Service struct {
	model    Model
	recorder metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service. A nil recorder records nothing.
func NewService(model Model, recorder metrics.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Service{model: model, recorder: recorder, logger: logger, now: time.Now}
}

// Relay returns the model reply for prompt.
func (s *Service) Relay(ctx context.Context, prompt string) (string, error) {
	backend := s.model.Name()
	if strings.TrimSpace(prompt) == "" {
		s.recorder.RecordRelay(backend, metrics.OutcomeRejected, 0)
		return "", ErrEmptyPrompt
	}

	start := s.now()
	reply, err := s.model.Complete(ctx, prompt)
	elapsed := s.now().Sub(start)
	if err != nil {
		s.recorder.RecordRelay(backend, metrics.OutcomeFailed, elapsed)
		s.logger.Error("model call failed", "backend", backend, "duration", elapsed, "error", err)
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	s.recorder.RecordRelay(backend, metrics.OutcomeOK, elapsed)
	s.logger.Debug("model call completed", "backend", backend, "duration", elapsed)
	return reply, nil
}
