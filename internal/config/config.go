// Package config loads chemstock settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when --config is not given.
const DefaultPath = "chemstock.yaml"

// Config holds all chemstock settings.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Import   ImportConfig   `yaml:"import"`
	Auth     AuthConfig     `yaml:"auth"`
	Push     PushConfig     `yaml:"push"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int64    `yaml:"max_upload_mb"`
	LoanPeriod     string   `yaml:"loan_period"`
}

// DatabaseConfig configures the sqlite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig configures where SDS files are kept.
type StorageConfig struct {
	SDSDir string `yaml:"sds_dir"`
}

// ImportConfig configures bulk SDS import.
type ImportConfig struct {
	InboxDir    string `yaml:"inbox_dir"`
	Workers     int    `yaml:"workers"`
	Suggestions int    `yaml:"suggestions"`
}

// AuthConfig configures sessions.
type AuthConfig struct {
	JWTSecret    string `yaml:"jwt_secret"`
	TokenTTL     string `yaml:"token_ttl"`
	BcryptCost   int    `yaml:"bcrypt_cost"`
	SecureCookie bool   `yaml:"secure_cookie"`
}

// PushConfig configures the push gateway. An empty endpoint disables push.
type PushConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Timeout  string `yaml:"timeout"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			MaxUploadMB:    64,
			LoanPeriod:     "168h",
		},
		Database: DatabaseConfig{Path: "./data/chemstock.db"},
		Storage:  StorageConfig{SDSDir: "./data/sds"},
		Import: ImportConfig{
			InboxDir:    "./inbox",
			Workers:     4,
			Suggestions: 3,
		},
		Auth: AuthConfig{
			TokenTTL:   "12h",
			BcryptCost: 10,
		},
		Push: PushConfig{Timeout: "10s"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CHEMSTOCK_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("CHEMSTOCK_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("CHEMSTOCK_PUSH_API_KEY"); v != "" {
		c.Push.APIKey = v
	}
	if v := os.Getenv("CHEMSTOCK_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required (or set CHEMSTOCK_JWT_SECRET)"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Import.Workers < 1 {
		errs = append(errs, fmt.Errorf("import.workers must be positive, got %d", c.Import.Workers))
	}
	if c.Import.Suggestions < 0 {
		errs = append(errs, fmt.Errorf("import.suggestions must not be negative, got %d", c.Import.Suggestions))
	}
	for name, d := range map[string]string{
		"auth.token_ttl":     c.Auth.TokenTTL,
		"server.loan_period": c.Server.LoanPeriod,
		"push.timeout":       c.Push.Timeout,
	} {
		if d == "" {
			continue
		}
		if v, err := time.ParseDuration(d); err != nil || v <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", name, d))
		}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	return errors.Join(errs...)
}

// TokenTTL returns the session lifetime.
func (c *Config) TokenTTL() time.Duration {
	return parseDuration(c.Auth.TokenTTL, 12*time.Hour)
}

// LoanPeriod returns the default borrowing period.
func (c *Config) LoanPeriod() time.Duration {
	return parseDuration(c.Server.LoanPeriod, 7*24*time.Hour)
}

// PushTimeout returns the push gateway timeout.
func (c *Config) PushTimeout() time.Duration {
	return parseDuration(c.Push.Timeout, 10*time.Second)
}

// MaxUploadBytes returns the multipart upload limit.
func (c *Config) MaxUploadBytes() int64 {
	if c.Server.MaxUploadMB <= 0 {
		return 64 << 20
	}
	return c.Server.MaxUploadMB << 20
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
