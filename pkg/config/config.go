package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the program reads
const EnvPrefix = "BOOKBYLINE_"

// Config holds all configuration options for bookbyline
type Config struct {
	Book        BookConfig        `yaml:"book" json:"book"`
	Store       StoreConfig       `yaml:"store" json:"store"`
	Twitter     TwitterConfig     `yaml:"twitter" json:"twitter"`
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
}

// BookConfig controls how lines are classified and emitted
type BookConfig struct {
	// Headers are case-sensitive prefixes that mark header lines
	Headers []string `yaml:"headers" json:"headers"`
	// Live posts to the feed; otherwise the line is printed to stdout
	Live bool `yaml:"live" json:"live"`
}

// StoreConfig selects and locates the progress store
type StoreConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	Path    string `yaml:"path" json:"path"`
}

// TwitterConfig holds posting transport settings
type TwitterConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	MaxLength int           `yaml:"max_length" json:"max_length"`
}

// CredentialsConfig controls where app keys come from and how secrets are kept
type CredentialsConfig struct {
	KeyringService string `yaml:"keyring_service" json:"keyring_service"`
	// Passphrase encrypts stored access tokens. Read from the environment only.
	Passphrase string `yaml:"-" json:"-"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// Store backends
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: BackendSQLite,
			Path:    "tweet_books.sl3",
		},
		Twitter: TwitterConfig{
			BaseURL:   "https://api.twitter.com",
			Timeout:   30 * time.Second,
			MaxLength: 280,
		},
		Credentials: CredentialsConfig{
			KeyringService: "bookbyline",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if headers := os.Getenv(EnvPrefix + "HEADERS"); headers != "" {
		c.Book.Headers = SplitHeaders([]string{headers})
	}
	if live := os.Getenv(EnvPrefix + "LIVE"); live != "" {
		v, err := strconv.ParseBool(live)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sLIVE: %w", EnvPrefix, err))
		} else {
			c.Book.Live = v
		}
	}

	if backend := os.Getenv(EnvPrefix + "STORE_BACKEND"); backend != "" {
		c.Store.Backend = backend
	}
	if path := os.Getenv(EnvPrefix + "DB"); path != "" {
		c.Store.Path = path
	}

	if baseURL := os.Getenv(EnvPrefix + "TWITTER_BASE_URL"); baseURL != "" {
		c.Twitter.BaseURL = baseURL
	}
	if timeout := os.Getenv(EnvPrefix + "TWITTER_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTWITTER_TIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Twitter.Timeout = d
		}
	}

	if service := os.Getenv(EnvPrefix + "KEYRING_SERVICE"); service != "" {
		c.Credentials.KeyringService = service
	}
	if pass := os.Getenv(EnvPrefix + "PASSPHRASE"); pass != "" {
		c.Credentials.Passphrase = pass
	}

	if level := os.Getenv(EnvPrefix + "LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv(EnvPrefix + "LOG_FILE"); file != "" {
		c.Logging.File = file
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file.
// An empty path searches the default locations; finding nothing is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".bookbyline.yaml",
		".bookbyline.yml",
		filepath.Join(home, ".config", "bookbyline", "config.yaml"),
		filepath.Join(home, ".bookbyline.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendSQLite, BackendJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store path is required"))
	}

	if c.Twitter.BaseURL == "" {
		errs = append(errs, errors.New("twitter base URL is required"))
	}
	if c.Twitter.Timeout <= 0 {
		errs = append(errs, errors.New("twitter timeout must be positive"))
	}
	if c.Twitter.MaxLength <= 0 {
		errs = append(errs, errors.New("twitter max length must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// ValidateBook checks the settings needed to emit a line
func (c *Config) ValidateBook() error {
	if len(SplitHeaders(c.Book.Headers)) == 0 {
		return errors.New("at least one header pattern is required")
	}
	return nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags applies flags that were explicitly set on the command line
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if headers, ok := flags["header"].([]string); ok && len(headers) > 0 {
		c.Book.Headers = SplitHeaders(headers)
	}
	if live, ok := flags["live"].(bool); ok {
		c.Book.Live = live
	}
	if backend, ok := flags["store"].(string); ok && backend != "" {
		c.Store.Backend = backend
	}
	if path, ok := flags["db"].(string); ok && path != "" {
		c.Store.Path = path
	}
	if level, ok := flags["log-level"].(string); ok && level != "" {
		c.Logging.Level = level
	}
	if file, ok := flags["log-file"].(string); ok && file != "" {
		c.Logging.File = file
	}
	if noColor, ok := flags["no-color"].(bool); ok {
		c.Logging.NoColor = noColor
	}
}

// SplitHeaders expands comma-separated entries and drops empty ones.
// A value without a comma is kept verbatim, so "BOOK " keeps its trailing
// space; every part of a comma-separated list is trimmed.
func SplitHeaders(values []string) []string {
	var headers []string
	for _, value := range values {
		if !strings.Contains(value, ",") {
			if value != "" {
				headers = append(headers, value)
			}
			continue
		}
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				headers = append(headers, part)
			}
		}
	}
	return headers
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment > .env files > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".bookbyline.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
