package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DummyAPIKey marks a build without real provider credentials.
const DummyAPIKey = "dummy-api-key-for-build"

const (
	defaultAPIBaseURL      = "http://127.0.0.1:5001"
	defaultAuthEmulatorURL = "http://localhost:9099"
)

// FirebaseConfig holds the public web client identifiers.
type FirebaseConfig struct {
	APIKey            string `yaml:"api_key"`
	AuthDomain        string `yaml:"auth_domain"`
	ProjectID         string `yaml:"project_id"`
	StorageBucket     string `yaml:"storage_bucket"`
	MessagingSenderID string `yaml:"messaging_sender_id"`
	AppID             string `yaml:"app_id"`
	MeasurementID     string `yaml:"measurement_id"`
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	APIBaseURL      string         `yaml:"api_base_url"`
	Environment     string         `yaml:"environment"`
	UseEmulator     bool           `yaml:"use_emulator"`
	AuthEmulatorURL string         `yaml:"auth_emulator_url"`
	LogLevel        string         `yaml:"log_level"`
	Firebase        FirebaseConfig `yaml:"firebase"`
}

// DefaultClientConfigPath returns ~/.config/bodycoach/config.yaml.
func DefaultClientConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "bodycoach", "config.yaml")
}

// LoadClient reads path (a missing file is fine) and applies environment
// overrides on top.
func LoadClient(path string) (ClientConfig, error) {
	cfg := ClientConfig{
		APIBaseURL:      defaultAPIBaseURL,
		Environment:     "development",
		AuthEmulatorURL: defaultAuthEmulatorURL,
		LogLevel:        "warn",
		Firebase: FirebaseConfig{
			APIKey:            DummyAPIKey,
			AuthDomain:        "nutrition-ai-app-bdee9.firebaseapp.com",
			ProjectID:         "nutrition-ai-app-bdee9",
			StorageBucket:     "nutrition-ai-app-bdee9.firebasestorage.app",
			MessagingSenderID: "123456789",
			AppID:             "1:123456789:web:dummy",
			MeasurementID:     "G-DUMMY",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return ClientConfig{}, fmt.Errorf("config: reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return ClientConfig{}, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		}
	}

	overrideString(&cfg.APIBaseURL, "API_BASE_URL")
	overrideString(&cfg.Environment, "ENVIRONMENT")
	overrideString(&cfg.AuthEmulatorURL, "AUTH_EMULATOR_URL")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.Firebase.APIKey, "FIREBASE_API_KEY")
	overrideString(&cfg.Firebase.AuthDomain, "FIREBASE_AUTH_DOMAIN")
	overrideString(&cfg.Firebase.ProjectID, "FIREBASE_PROJECT_ID")
	overrideString(&cfg.Firebase.StorageBucket, "FIREBASE_STORAGE_BUCKET")
	overrideString(&cfg.Firebase.MessagingSenderID, "FIREBASE_MESSAGING_SENDER_ID")
	overrideString(&cfg.Firebase.AppID, "FIREBASE_APP_ID")
	overrideString(&cfg.Firebase.MeasurementID, "FIREBASE_MEASUREMENT_ID")

	if raw := strings.TrimSpace(os.Getenv("USE_EMULATOR")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return ClientConfig{}, fmt.Errorf("invalid USE_EMULATOR %q: %w", raw, err)
		}
		cfg.UseEmulator = value
	}

	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	return cfg, nil
}

// AuthConfigured reports whether real provider credentials are present.
func (c ClientConfig) AuthConfigured() bool {
	f := c.Firebase
	return f.APIKey != "" && f.APIKey != DummyAPIKey && f.AuthDomain != "" && f.ProjectID != ""
}

// EmulatorURL returns the auth emulator address, or "" when the emulator
// must not be used. Only development builds may attach to it.
func (c ClientConfig) EmulatorURL() string {
	if c.Environment != "development" || !c.UseEmulator {
		return ""
	}
	return c.AuthEmulatorURL
}

func overrideString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}
