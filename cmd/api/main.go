package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"bodycoach/internal/auth"
	"bodycoach/internal/config"
	"bodycoach/internal/documents"
	transporthttp "bodycoach/internal/http"
	"bodycoach/internal/metrics"
	"bodycoach/internal/platform/database"
	"bodycoach/internal/platform/logging"
	"bodycoach/internal/platform/migrate"
	"bodycoach/internal/profiles"
	"bodycoach/internal/relay"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	docs, cleanup, err := buildRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	verifier, err := buildVerifier(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize token verification", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	relaySvc := relay.NewService(buildModel(cfg), collector, logger)
	deps := transporthttp.Dependencies{
		Relay:     relaySvc,
		Profiles:  profiles.NewService(docs),
		Documents: docs,
		Metrics:   collector,
		Gatherer:  reg,
	}
	if verifier != nil {
		deps.Verifier = verifier
	}
	router := transporthttp.NewRouter(cfg, deps, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      75 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go func() {
		logger.Info("MY BODY COACH functions listening", "addr", srv.Addr, "store", cfg.DataStore, "model", cfg.ModelBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (documents.Repository, func(), error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory document store")
		repo := documents.NewInMemoryRepository()
		n, err := seedLocalSamples(ctx, repo)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("seeded sample documents", "count", n)
		return repo, nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
	}

	if err := migrate.Apply(ctx, db, logger); err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Info("connected to postgres")
	return documents.NewPostgresRepository(db), cleanup, nil
}

// buildVerifier returns nil when no project is configured.
func buildVerifier(ctx context.Context, cfg config.Config, logger *slog.Logger) (*auth.Verifier, error) {
	if !cfg.VerificationEnabled() {
		return nil, nil
	}
	if cfg.AuthEmulatorHost != "" {
		logger.Warn("auth emulator mode; ID token signatures are not checked", "emulator", cfg.AuthEmulatorHost)
		return auth.NewEmulatorVerifier(cfg.FirebaseProjectID, nil), nil
	}

	verifier, err := auth.NewVerifier(ctx, cfg.FirebaseProjectID)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", cfg.FirebaseProjectID, err)
	}
	return verifier, nil
}

func buildModel(cfg config.Config) relay.Model {
	switch strings.ToLower(cfg.ModelBackend) {
	case config.ModelBackendOpenAI:
		return relay.NewOpenAIModel(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, nil)
	default:
		return relay.NewLocalModel(cfg.ModelEndpointURL, nil)
	}
}
