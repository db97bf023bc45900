package config

import (
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("CLASSTIME_SESSION_FILE", "/tmp/classtime-test/session.json")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}

	if cfg.Environment != "dev" {
		t.Errorf("Environment = %q, want dev", cfg.Environment)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.APIBaseURL != "http://localhost:8080" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 8*time.Second {
		t.Errorf("RequestTimeout = %v, want 8s", cfg.RequestTimeout)
	}
	if cfg.StubPort != 8080 {
		t.Errorf("StubPort = %d, want 8080", cfg.StubPort)
	}
}

func TestNewConfigOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("CLASSTIME_API_URL", "https://api.classtime.example.com")
	t.Setenv("CLASSTIME_REQUEST_TIMEOUT", "30s")
	t.Setenv("CLASSTIME_SESSION_FILE", "/tmp/classtime-test/session.json")
	t.Setenv("STUB_ALLOWED_ORIGINS", "http://localhost:3000|https://app.example.com")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}

	if cfg.Environment != "staging" {
		t.Errorf("Environment = %q, want staging", cfg.Environment)
	}
	if cfg.APIBaseURL != "https://api.classtime.example.com" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if len(cfg.StubOrigins) != 2 || cfg.StubOrigins[0] != "http://localhost:3000" {
		t.Errorf("StubOrigins = %v", cfg.StubOrigins)
	}
}

func TestNewConfigInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"invalid environment", "ENVIRONMENT", "production"},
		{"zero timeout", "CLASSTIME_REQUEST_TIMEOUT", "0s"},
		{"port out of range", "STUB_PORT", "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CLASSTIME_SESSION_FILE", "/tmp/classtime-test/session.json")
			t.Setenv(tt.key, tt.value)

			if _, err := NewConfig(); err == nil {
				t.Errorf("NewConfig() succeeded with %s=%s", tt.key, tt.value)
			}
		})
	}
}
