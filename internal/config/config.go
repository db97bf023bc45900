package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Netflix/go-env"
)

// Config for the classtime client - loaded from environment variables.
type Config struct {
	Environment    string        `env:"ENVIRONMENT,default=dev"`
	LogLevel       string        `env:"LOG_LEVEL,default=info"`
	APIBaseURL     string        `env:"CLASSTIME_API_URL,default=http://localhost:8080"`
	RequestTimeout time.Duration `env:"CLASSTIME_REQUEST_TIMEOUT,default=8s"`

	// SessionFile is where the CLI persists the session cookie between runs.
	// Defaults to <user config dir>/classtime/session.json.
	SessionFile string `env:"CLASSTIME_SESSION_FILE"`

	// Stub server settings (used by the stub-server command)
	StubHost      string   `env:"STUB_HOST,default=127.0.0.1"`
	StubPort      int      `env:"STUB_PORT,default=8080"`
	StubSecretKey string   `env:"STUB_SECRET_KEY,default=classtime-dev-secret"`
	StubOrigins   []string `env:"STUB_ALLOWED_ORIGINS,separator=|"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"staging": true,
	"prod":    true,
}

func NewConfig() (*Config, error) {
	var cfg Config

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if cfg.SessionFile == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine user config dir: %w", err)
		}
		cfg.SessionFile = filepath.Join(configDir, "classtime", "session.json")
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid environment '%s'. Valid environments: dev, test, staging, prod", cfg.Environment)
	}

	if cfg.APIBaseURL == "" {
		return fmt.Errorf("CLASSTIME_API_URL cannot be empty")
	}

	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", cfg.RequestTimeout)
	}

	if cfg.StubPort < 1 || cfg.StubPort > 65535 {
		return fmt.Errorf("stub port must be between 1 and 65535, got %d", cfg.StubPort)
	}

	return nil
}
