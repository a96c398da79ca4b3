package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"bodycoach/internal/config"
	"bodycoach/internal/documents"
	"bodycoach/internal/metrics"
)

// Dependencies are the services behind the router.
type Dependencies struct {
	Relay     Relayer
	Profiles  ProfileBootstrapper
	Documents documents.Repository
	// Verifier may be nil when token verification is not configured.
	Verifier TokenVerifier
	Metrics  metrics.Recorder
	Gatherer prometheus.Gatherer
}

// NewRouter wires application routes and middleware using chi.
func NewRouter(cfg config.Config, deps Dependencies, logger *slog.Logger) http.Handler {
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.Noop{}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(newSecurityHeadersMiddleware(cfg.Environment))
	r.Use(newSlogMiddleware(logger))
	r.Use(newMetricsMiddleware(recorder))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	if deps.Verifier == nil {
		logger.Warn("token verification disabled; /agent is unauthenticated and /createUserProfile will reject every call")
	}

	handler := NewFunctionHandler(deps.Relay, deps.Profiles, deps.Documents, recorder, logger)

	r.Get("/helloWorld", handler.HelloWorld)
	r.Post("/addSampleData", handler.AddSampleData)

	r.Group(func(r chi.Router) {
		r.Use(newBearerAuthMiddleware(deps.Verifier, cfg.AuthRequired, logger))
		r.Post("/agent", handler.Agent)
		r.Post("/createUserProfile", handler.CreateUserProfile)
	})

	r.NotFound(http.NotFoundHandler().ServeHTTP)

	return r
}
