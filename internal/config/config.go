// Package config handles reading and writing .docchat/config.yaml.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for .docchat/config.yaml.
type Config struct {
	Version int           `yaml:"version"`
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Storage StorageConfig `yaml:"storage"`
	Retry   RetryConfig   `yaml:"retry"`
	Docs    DocsConfig    `yaml:"docs"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig locates the remote chat backend.
type APIConfig struct {
	BaseURL          string    `yaml:"base_url"`
	Endpoints        Endpoints `yaml:"endpoints"`
	HealthTimeoutMs  int       `yaml:"health_timeout_ms"`
	RequestTimeoutMs int       `yaml:"request_timeout_ms"`
}

// Endpoints are paths relative to BaseURL. Session is the prefix for the
// get and delete calls; the session id is appended.
type Endpoints struct {
	Health  string `yaml:"health"`
	Start   string `yaml:"start"`
	Message string `yaml:"message"`
	Session string `yaml:"session"`
}

// SessionConfig controls session lifecycle text and recovery.
type SessionConfig struct {
	Title          string `yaml:"title"`
	ClearTitle     string `yaml:"clear_title"`
	WelcomeMessage string `yaml:"welcome_message"`
	RecoverOnSend  bool   `yaml:"recover_on_send"`
}

// StorageConfig selects where the widget state blob lives.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "sqlite" | "memory"
	Path    string `yaml:"path"`    // relative to the project root
	Key     string `yaml:"key"`
}

// RetryConfig controls backoff for health probes and, optionally, sends.
type RetryConfig struct {
	MaxAttempts       int  `yaml:"max_attempts"`
	InitialIntervalMs int  `yaml:"initial_interval_ms"`
	Sends             bool `yaml:"sends"`
}

// DocsConfig points at the markdown pages shown in the reader pane.
type DocsConfig struct {
	Dir string `yaml:"dir"` // empty uses the bundled pages
}

// LoggingConfig controls the JSONL event log.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

const (
	configDir  = ".docchat"
	configFile = "config.yaml"
)

// Environment overrides, also read from a .env file in the project root.
const (
	EnvAPIURL   = "DOCCHAT_API_URL"
	EnvLogLevel = "DOCCHAT_LOG_LEVEL"
	EnvStorage  = "DOCCHAT_STORAGE"
)

// Dir returns the .docchat directory inside the project root.
func Dir(root string) string {
	return filepath.Join(root, configDir)
}

// ReadConfig reads .docchat/config.yaml from the given project directory.
// dir is the project root (not .docchat/ itself).
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, configDir, configFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Load reads the config file if present, falls back to defaults otherwise,
// then applies .env and environment overrides and validates the result.
func Load(dir string) (*Config, error) {
	cfg, err := ReadConfig(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = DefaultConfig()
	}

	// A missing .env is normal.
	_ = godotenv.Load(filepath.Join(dir, ".env"))
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables on cfg.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorage)); v != "" {
		c.Storage.Backend = v
	}
}

// WriteConfig writes cfg to .docchat/config.yaml in the given project directory.
// Creates the .docchat/ directory if it does not exist.
func WriteConfig(dir string, cfg *Config) error {
	dirPath := filepath.Join(dir, configDir)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(dirPath, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		API: APIConfig{
			BaseURL: "http://localhost:8000/api",
			Endpoints: Endpoints{
				Health:  "/health",
				Start:   "/v1/chat/start",
				Message: "/v1/chat/message",
				Session: "/v1/chat/session",
			},
			HealthTimeoutMs:  15000,
			RequestTimeoutMs: 30000,
		},
		Session: SessionConfig{
			Title:          "Documentation Chat",
			ClearTitle:     "New Documentation Chat",
			WelcomeMessage: "Hello! How can I help you with the documentation today?",
			RecoverOnSend:  false,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    filepath.Join(configDir, "state.db"),
			Key:     "docchat-widget",
		},
		Retry: RetryConfig{
			MaxAttempts:       3,
			InitialIntervalMs: 1000,
			Sends:             false,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(configDir, "log.jsonl"),
		},
	}
}

// Validate checks the API location and endpoint paths.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}
	eps := map[string]string{
		"health":  c.API.Endpoints.Health,
		"start":   c.API.Endpoints.Start,
		"message": c.API.Endpoints.Message,
		"session": c.API.Endpoints.Session,
	}
	for name, path := range eps {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("api.endpoints.%s %q must start with /", name, path)
		}
	}
	switch c.Storage.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("storage.backend %q must be sqlite or memory", c.Storage.Backend)
	}
	return nil
}

// HealthTimeout returns the health probe timeout.
func (a APIConfig) HealthTimeout() time.Duration {
	return msOr(a.HealthTimeoutMs, 15*time.Second)
}

// RequestTimeout returns the timeout for every call but health.
func (a APIConfig) RequestTimeout() time.Duration {
	return msOr(a.RequestTimeoutMs, 30*time.Second)
}

// InitialInterval returns the first backoff delay.
func (r RetryConfig) InitialInterval() time.Duration {
	return msOr(r.InitialIntervalMs, time.Second)
}

func msOr(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
