package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bodycoach/internal/documents"
	"bodycoach/internal/metrics"
	"bodycoach/internal/profiles"
	"bodycoach/internal/relay"
)

// Relayer forwards prompts to the model backend.
type Relayer interface {
	Relay(ctx context.Context, prompt string) (string, error)
}

// ProfileBootstrapper creates or returns the caller's profile.
type ProfileBootstrapper interface {
	Bootstrap(ctx context.Context, id profiles.Identity, req profiles.Request) (profiles.Profile, bool, error)
}

// FunctionHandler serves the chat application's HTTP functions.
type FunctionHandler struct {
	relay    Relayer
	profiles ProfileBootstrapper
	docs     documents.Repository
	recorder metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewFunctionHandler creates a handler. A nil recorder records nothing.
func NewFunctionHandler(relay Relayer, profiles ProfileBootstrapper, docs documents.Repository, recorder metrics.Recorder, logger *slog.Logger) *FunctionHandler {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &FunctionHandler{
		relay:    relay,
		profiles: profiles,
		docs:     docs,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

const agentFailedMessage = "エージェント呼び出しに失敗しました"

// Agent relays {prompt} (or the legacy {text}) and answers {message}.
func (h *FunctionHandler) Agent(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt string `json:"prompt"`
		Text   string `json:"text"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil && !errors.Is(err, errEmptyBody) {
		writeJSONError(w, err)
		return
	}

	prompt := payload.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = payload.Text
	}

	reply, err := h.relay.Relay(r.Context(), prompt)
	switch {
	case errors.Is(err, relay.ErrEmptyPrompt):
		writeError(w, http.StatusBadRequest, "No prompt provided")
		return
	case errors.Is(err, relay.ErrUpstream):
		writeError(w, http.StatusBadGateway, agentFailedMessage)
		return
	case err != nil:
		h.logger.Error("relay prompt", "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": reply})
}

// CreateUserProfile bootstraps the authenticated caller's profile.
func (h *FunctionHandler) CreateUserProfile(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	var payload struct {
		Email string  `json:"email"`
		Name  *string `json:"name"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil && !errors.Is(err, errEmptyBody) {
		writeJSONError(w, err)
		return
	}

	profile, created, err := h.profiles.Bootstrap(r.Context(),
		profiles.Identity{UID: claims.UID(), Email: claims.Email},
		profiles.Request{Email: payload.Email, Name: payload.Name},
	)
	switch {
	case errors.Is(err, profiles.ErrEmailMismatch):
		h.recorder.RecordProfileBootstrap(metrics.OutcomeRejected, false)
		writeError(w, http.StatusForbidden, err.Error())
		return
	case errors.Is(err, profiles.ErrMissingIdentity):
		h.recorder.RecordProfileBootstrap(metrics.OutcomeRejected, false)
		unauthorized(w)
		return
	case err != nil:
		h.recorder.RecordProfileBootstrap(metrics.OutcomeFailed, false)
		h.logger.Error("create user profile", "uid", claims.UID(), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user profile")
		return
	}

	h.recorder.RecordProfileBootstrap(metrics.OutcomeOK, created)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.logger.Info("user profile created", "uid", profile.FirebaseUID, "id", profile.ID)
	}
	writeJSON(w, status, profile)
}

// AddSampleData stores any JSON object in the samples collection and echoes it.
func (h *FunctionHandler) AddSampleData(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	err := decodeJSONBody(w, r, &data)
	if err != nil && !errors.Is(err, errEmptyBody) {
		writeJSONError(w, err)
		return
	}
	// Only an absent or null body gets the default; {} is stored as sent.
	if data == nil {
		data = map[string]any{
			"message":   "sample",
			"timestamp": h.now().UnixMilli(),
		}
	}

	doc, err := h.docs.Add(r.Context(), documents.CollectionSamples, data)
	if err != nil {
		h.logger.Error("add sample data", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := make(map[string]any, len(doc.Data)+1)
	for k, v := range doc.Data {
		response[k] = v
	}
	response["id"] = doc.ID.String()
	writeJSON(w, http.StatusOK, response)
}

// HelloWorld answers a plain-text liveness probe.
func (h *FunctionHandler) HelloWorld(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("hello logs")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Hello from MY BODY COACH!"))
}
