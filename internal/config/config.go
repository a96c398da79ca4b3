package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Model backends.
const (
	ModelBackendLocal  = "local"
	ModelBackendOpenAI = "openai"
)

// Config aggregates runtime configuration for the function server.
type Config struct {
	Environment    string
	HTTPPort       int
	LogLevel       string
	LogFormat      string
	DataStore      string
	DatabaseURL    string
	DBMaxConns     int
	AllowedOrigins []string

	FirebaseProjectID string
	AuthEmulatorHost  string
	AuthRequired      bool

	ModelBackend     string
	ModelEndpointURL string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
}

// Load reads configuration from environment variables with defaults for local development.
func Load() (Config, error) {
	databaseURL, err := getEnvOrFile("DATABASE_URL", "/run/secrets/bodycoach_database_url")
	if err != nil {
		return Config{}, err
	}

	openAIKey, err := getEnvOrFile("OPENAI_API_KEY", "/run/secrets/bodycoach_openai_api_key")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment:       strings.ToLower(getEnv("APP_ENV", "development")),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
		DataStore:         strings.ToLower(getEnv("DATA_STORE", "memory")),
		DatabaseURL:       databaseURL,
		AllowedOrigins:    parseCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		FirebaseProjectID: strings.TrimSpace(os.Getenv("FIREBASE_PROJECT_ID")),
		AuthEmulatorHost:  strings.TrimSpace(os.Getenv("FIREBASE_AUTH_EMULATOR_HOST")),
		ModelBackend:      strings.ToLower(getEnv("MODEL_BACKEND", ModelBackendLocal)),
		ModelEndpointURL:  getEnv("MODEL_ENDPOINT_URL", "http://localhost:8080/phi4/chat"),
		OpenAIAPIKey:      strings.TrimSpace(openAIKey),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:     strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
	}

	portValue := getEnv("PORT", getEnv("HTTP_PORT", "5001"))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", portValue, err)
	}
	cfg.HTTPPort = port

	maxConnsValue := getEnv("DB_MAX_CONNS", "10")
	maxConns, err := strconv.Atoi(maxConnsValue)
	if err != nil || maxConns <= 0 {
		return Config{}, fmt.Errorf("invalid DB_MAX_CONNS %q", maxConnsValue)
	}
	cfg.DBMaxConns = maxConns

	authRequired, err := parseBool("AUTH_REQUIRED", !cfg.IsDevelopment())
	if err != nil {
		return Config{}, err
	}
	cfg.AuthRequired = authRequired

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DataStore {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATA_STORE is postgres but DATABASE_URL is not set")
		}
	default:
		return fmt.Errorf("unsupported DATA_STORE %q", c.DataStore)
	}

	switch c.ModelBackend {
	case ModelBackendLocal:
		if strings.TrimSpace(c.ModelEndpointURL) == "" {
			return fmt.Errorf("MODEL_ENDPOINT_URL is required for the local model backend")
		}
	case ModelBackendOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when MODEL_BACKEND is openai")
		}
	default:
		return fmt.Errorf("unsupported MODEL_BACKEND %q", c.ModelBackend)
	}

	if c.AuthRequired && c.FirebaseProjectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required when AUTH_REQUIRED is true")
	}

	if c.IsDevelopment() {
		return nil
	}

	if !c.AuthRequired {
		return fmt.Errorf("AUTH_REQUIRED cannot be disabled outside development")
	}
	if c.AuthEmulatorHost != "" {
		return fmt.Errorf("FIREBASE_AUTH_EMULATOR_HOST must not be set outside development")
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS must define at least one origin outside development")
	}
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			return fmt.Errorf("ALLOWED_ORIGINS cannot contain wildcard outside development")
		}
	}
	return nil
}

// IsDevelopment reports whether APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UseInMemoryStore returns true if the in-memory document store should be used.
func (c Config) UseInMemoryStore() bool {
	return c.DataStore == "memory"
}

// VerificationEnabled reports whether bearer tokens can be verified.
func (c Config) VerificationEnabled() bool {
	return c.FirebaseProjectID != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}
