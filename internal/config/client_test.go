package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setClientEnv(t *testing.T, env map[string]string) {
	t.Helper()
	keys := []string{
		"API_BASE_URL", "ENVIRONMENT", "USE_EMULATOR", "AUTH_EMULATOR_URL", "LOG_LEVEL",
		"FIREBASE_API_KEY", "FIREBASE_AUTH_DOMAIN", "FIREBASE_PROJECT_ID", "FIREBASE_STORAGE_BUCKET",
		"FIREBASE_MESSAGING_SENDER_ID", "FIREBASE_APP_ID", "FIREBASE_MEASUREMENT_ID",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
	for key, value := range env {
		t.Setenv(key, value)
	}
}

func TestLoadClientDefaults(t *testing.T) {
	setClientEnv(t, nil)

	cfg, err := LoadClient(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadClient returned error: %v", err)
	}
	if cfg.AuthConfigured() {
		t.Fatal("expected dummy API key to leave auth unconfigured")
	}
	if cfg.APIBaseURL != "http://127.0.0.1:5001" {
		t.Fatalf("unexpected base url %q", cfg.APIBaseURL)
	}
	if cfg.EmulatorURL() != "" {
		t.Fatal("expected emulator to be off by default")
	}
}

func TestLoadClientFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := []byte(`api_base_url: https://functions.example.com/
environment: development
use_emulator: true
firebase:
  api_key: file-key
  auth_domain: coach.firebaseapp.com
  project_id: coach
`)
	if err := os.WriteFile(path, contents, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	setClientEnv(t, map[string]string{"FIREBASE_API_KEY": "env-key"})

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient returned error: %v", err)
	}
	if cfg.Firebase.APIKey != "env-key" {
		t.Fatalf("expected env override, got %q", cfg.Firebase.APIKey)
	}
	if cfg.APIBaseURL != "https://functions.example.com" {
		t.Fatalf("expected trimmed base url, got %q", cfg.APIBaseURL)
	}
	if !cfg.AuthConfigured() {
		t.Fatal("expected auth to be configured")
	}
	if cfg.EmulatorURL() != "http://localhost:9099" {
		t.Fatalf("unexpected emulator url %q", cfg.EmulatorURL())
	}
}

func TestLoadClientEmulatorOnlyInDevelopment(t *testing.T) {
	setClientEnv(t, map[string]string{"ENVIRONMENT": "production", "USE_EMULATOR": "true"})

	cfg, err := LoadClient("")
	if err != nil {
		t.Fatalf("LoadClient returned error: %v", err)
	}
	if cfg.EmulatorURL() != "" {
		t.Fatal("expected emulator to stay detached outside development")
	}
}

func TestLoadClientRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("firebase: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	setClientEnv(t, nil)

	if _, err := LoadClient(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadClientRejectsBadEmulatorFlag(t *testing.T) {
	setClientEnv(t, map[string]string{"USE_EMULATOR": "maybe"})

	if _, err := LoadClient(""); err == nil {
		t.Fatal("expected invalid USE_EMULATOR to fail")
	}
}
