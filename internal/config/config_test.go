package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setServerEnv(t *testing.T, env map[string]string) {
	t.Helper()
	keys := []string{
		"APP_ENV", "PORT", "HTTP_PORT", "LOG_LEVEL", "LOG_FORMAT", "DATA_STORE",
		"DATABASE_URL", "DATABASE_URL_FILE", "DB_MAX_CONNS", "ALLOWED_ORIGINS", "FIREBASE_PROJECT_ID",
		"FIREBASE_AUTH_EMULATOR_HOST", "AUTH_REQUIRED", "MODEL_BACKEND", "MODEL_ENDPOINT_URL",
		"OPENAI_API_KEY", "OPENAI_API_KEY_FILE", "OPENAI_MODEL", "OPENAI_BASE_URL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
	for key, value := range env {
		t.Setenv(key, value)
	}
}

func TestLoadDevelopmentDefaults(t *testing.T) {
	setServerEnv(t, nil)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Environment != "development" || cfg.HTTPPort != 5001 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.AuthRequired {
		t.Fatal("expected auth to be optional in development")
	}
	if cfg.ModelBackend != ModelBackendLocal || cfg.ModelEndpointURL != "http://localhost:8080/phi4/chat" {
		t.Fatalf("unexpected model settings %+v", cfg)
	}
	if cfg.DBMaxConns != 10 {
		t.Fatalf("unexpected pool size %d", cfg.DBMaxConns)
	}
	if !cfg.UseInMemoryStore() || cfg.HTTPAddress() != ":5001" {
		t.Fatalf("unexpected store/address %q %q", cfg.DataStore, cfg.HTTPAddress())
	}
}

func TestLoadRequiresDatabaseURLForPostgres(t *testing.T) {
	setServerEnv(t, map[string]string{"DATA_STORE": "postgres"})

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL is not set") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadReadsDatabaseURLFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db_url")
	if err := os.WriteFile(path, []byte("postgres://localhost/bodycoach\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	setServerEnv(t, map[string]string{"DATA_STORE": "postgres", "DATABASE_URL_FILE": path})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/bodycoach" {
		t.Fatalf("unexpected database url %q", cfg.DatabaseURL)
	}
}

func TestLoadRejectsEmptySecretFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	setServerEnv(t, map[string]string{"OPENAI_API_KEY_FILE": path})

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRequiresOpenAIKey(t *testing.T) {
	setServerEnv(t, map[string]string{"MODEL_BACKEND": "openai"})

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	setServerEnv(t, map[string]string{"MODEL_BACKEND": "graphai"})

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "unsupported MODEL_BACKEND") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRequiresProjectOutsideDevelopment(t *testing.T) {
	setServerEnv(t, map[string]string{
		"APP_ENV":         "production",
		"ALLOWED_ORIGINS": "https://coach.example.com",
	})

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "FIREBASE_PROJECT_ID is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsDisabledAuthOutsideDevelopment(t *testing.T) {
	setServerEnv(t, map[string]string{
		"APP_ENV":             "production",
		"AUTH_REQUIRED":       "false",
		"FIREBASE_PROJECT_ID": "nutrition-ai-app",
		"ALLOWED_ORIGINS":     "https://coach.example.com",
	})

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "cannot be disabled") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsEmulatorOutsideDevelopment(t *testing.T) {
	setServerEnv(t, map[string]string{
		"APP_ENV":                     "production",
		"FIREBASE_PROJECT_ID":         "nutrition-ai-app",
		"FIREBASE_AUTH_EMULATOR_HOST": "localhost:9099",
		"ALLOWED_ORIGINS":             "https://coach.example.com",
	})

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "FIREBASE_AUTH_EMULATOR_HOST") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsWildcardOriginsOutsideDevelopment(t *testing.T) {
	setServerEnv(t, map[string]string{
		"APP_ENV":             "production",
		"FIREBASE_PROJECT_ID": "nutrition-ai-app",
		"ALLOWED_ORIGINS":     "https://coach.example.com,*",
	})

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "cannot contain wildcard") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRequiresAllowedOriginsOutsideDevelopment(t *testing.T) {
	setServerEnv(t, map[string]string{
		"APP_ENV":             "production",
		"FIREBASE_PROJECT_ID": "nutrition-ai-app",
		"ALLOWED_ORIGINS":     " , ",
	})

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "must define at least one origin") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadAcceptsProduction(t *testing.T) {
	setServerEnv(t, map[string]string{
		"APP_ENV":             "production",
		"PORT":                "8081",
		"FIREBASE_PROJECT_ID": "nutrition-ai-app",
		"ALLOWED_ORIGINS":     "https://coach.example.com",
		"MODEL_BACKEND":       "openai",
		"OPENAI_API_KEY":      "sk-test",
		"LOG_FORMAT":          "JSON",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if !cfg.AuthRequired || !cfg.VerificationEnabled() || cfg.HTTPPort != 8081 || cfg.LogFormat != "json" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Fatalf("expected default openai model, got %q", cfg.OpenAIModel)
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	setServerEnv(t, map[string]string{"PORT": "http"})

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "invalid port") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsInvalidPoolSize(t *testing.T) {
	setServerEnv(t, map[string]string{"DB_MAX_CONNS": "0"})

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DB_MAX_CONNS") {
		t.Fatalf("unexpected error: %v", err)
	}
}
