package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Empty(t, cfg.Book.Headers)
	assert.False(t, cfg.Book.Live)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "tweet_books.sl3", cfg.Store.Path)
	assert.Equal(t, "https://api.twitter.com", cfg.Twitter.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Twitter.Timeout)
	assert.Equal(t, 280, cfg.Twitter.MaxLength)
	assert.Equal(t, "bookbyline", cfg.Credentials.KeyringService)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BOOKBYLINE_HEADERS", "BOOK, Passus")
	t.Setenv("BOOKBYLINE_LIVE", "true")
	t.Setenv("BOOKBYLINE_STORE_BACKEND", "json")
	t.Setenv("BOOKBYLINE_DB", "/tmp/progress.json")
	t.Setenv("BOOKBYLINE_TWITTER_TIMEOUT", "5s")
	t.Setenv("BOOKBYLINE_PASSPHRASE", "hunter2")
	t.Setenv("BOOKBYLINE_LOG_LEVEL", "debug")
	t.Setenv("BOOKBYLINE_LOG_FILE", "/tmp/bookbyline.log")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, []string{"BOOK", "Passus"}, cfg.Book.Headers)
	assert.True(t, cfg.Book.Live)
	assert.Equal(t, BackendJSON, cfg.Store.Backend)
	assert.Equal(t, "/tmp/progress.json", cfg.Store.Path)
	assert.Equal(t, 5*time.Second, cfg.Twitter.Timeout)
	assert.Equal(t, "hunter2", cfg.Credentials.Passphrase)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/bookbyline.log", cfg.Logging.File)
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("BOOKBYLINE_LIVE", "sometimes")
	t.Setenv("BOOKBYLINE_TWITTER_TIMEOUT", "soon")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOOKBYLINE_LIVE")
	assert.Contains(t, err.Error(), "BOOKBYLINE_TWITTER_TIMEOUT")
}

func TestLoadFromFile(t *testing.T) {
	t.Run("valid yaml file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		content := `
book:
  headers: ["BOOK", "Passus"]
  live: true
store:
  backend: json
  path: /data/progress.json
twitter:
  base_url: http://localhost:8080
  timeout: 1m30s
  max_length: 500
credentials:
  keyring_service: poems
logging:
  level: warn
  file: /var/log/twitter_books.log
  no_color: true
`
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

		cfg := DefaultConfig()
		require.NoError(t, cfg.LoadFromFile(configPath))

		assert.Equal(t, []string{"BOOK", "Passus"}, cfg.Book.Headers)
		assert.True(t, cfg.Book.Live)
		assert.Equal(t, BackendJSON, cfg.Store.Backend)
		assert.Equal(t, "/data/progress.json", cfg.Store.Path)
		assert.Equal(t, "http://localhost:8080", cfg.Twitter.BaseURL)
		assert.Equal(t, 90*time.Second, cfg.Twitter.Timeout)
		assert.Equal(t, 500, cfg.Twitter.MaxLength)
		assert.Equal(t, "poems", cfg.Credentials.KeyringService)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, "/var/log/twitter_books.log", cfg.Logging.File)
		assert.True(t, cfg.Logging.NoColor)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "invalid.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("book:\n  headers: [unterminated\n"), 0644))

		err := DefaultConfig().LoadFromFile(configPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("non-existent file", func(t *testing.T) {
		err := DefaultConfig().LoadFromFile("/non/existent/path/config.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("passphrase is never read from file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("credentials:\n  passphrase: leaked\n"), 0644))

		cfg := DefaultConfig()
		require.NoError(t, cfg.LoadFromFile(configPath))
		assert.Empty(t, cfg.Credentials.Passphrase)
	})
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	oldDir, _ := os.Getwd()
	defer os.Chdir(oldDir)
	require.NoError(t, os.Chdir(dir))
	t.Setenv("HOME", dir)

	cfg := DefaultConfig()
	assert.Empty(t, cfg.findConfigFile())

	require.NoError(t, os.WriteFile(".bookbyline.yaml", []byte("book: {}\n"), 0644))
	assert.Equal(t, ".bookbyline.yaml", cfg.findConfigFile())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }, "unknown store backend"},
		{"missing path", func(c *Config) { c.Store.Path = "" }, "store path is required"},
		{"zero timeout", func(c *Config) { c.Twitter.Timeout = 0 }, "timeout must be positive"},
		{"zero max length", func(c *Config) { c.Twitter.MaxLength = 0 }, "max length must be positive"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateBook(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.ValidateBook())

	cfg.Book.Headers = []string{""}
	assert.Error(t, cfg.ValidateBook())

	cfg.Book.Headers = []string{"BOOK"}
	assert.NoError(t, cfg.ValidateBook())
}

func TestSplitHeaders(t *testing.T) {
	assert.Equal(t, []string{"BOOK", "Passus"}, SplitHeaders([]string{"BOOK", "Passus"}))
	assert.Equal(t, []string{"BOOK", "Passus", "CANTO"}, SplitHeaders([]string{"BOOK,Passus", "CANTO"}))
	assert.Equal(t, []string{"BOOK", "Passus"}, SplitHeaders([]string{"BOOK, Passus,"}))
	assert.Equal(t, []string{"Chapter "}, SplitHeaders([]string{"Chapter ", ""}))
	assert.Equal(t, []string{"BOOK ", "Passus"}, SplitHeaders([]string{"BOOK ", "Passus"}))
	assert.Equal(t, []string{"BOOK", "Passus"}, SplitHeaders([]string{"BOOK , Passus"}))
	assert.Empty(t, SplitHeaders(nil))
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"header":    []string{"BOOK,Passus"},
		"live":      true,
		"store":     "json",
		"db":        "progress.json",
		"log-level": "error",
		"log-file":  "run.log",
		"no-color":  true,
	})

	assert.Equal(t, []string{"BOOK", "Passus"}, cfg.Book.Headers)
	assert.True(t, cfg.Book.Live)
	assert.Equal(t, "json", cfg.Store.Backend)
	assert.Equal(t, "progress.json", cfg.Store.Path)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "run.log", cfg.Logging.File)
	assert.True(t, cfg.Logging.NoColor)
}

func TestLoad(t *testing.T) {
	t.Run("precedence order", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		content := `
store:
  path: file.sl3
logging:
  level: warn
book:
  headers: [FILE]
`
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
		t.Setenv("BOOKBYLINE_DB", "env.sl3")
		t.Setenv("BOOKBYLINE_LOG_LEVEL", "debug")

		cfg, err := Load(configPath, map[string]interface{}{"log-level": "error"})
		require.NoError(t, err)

		assert.Equal(t, "error", cfg.Logging.Level)
		assert.Equal(t, "env.sl3", cfg.Store.Path)
		assert.Equal(t, []string{"FILE"}, cfg.Book.Headers)
	})

	t.Run("validation failure", func(t *testing.T) {
		cfg, err := Load("", map[string]interface{}{"store": "postgres"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration validation failed")
		assert.Nil(t, cfg)
	})

	t.Run("loads .env file", func(t *testing.T) {
		dir := t.TempDir()
		oldDir, _ := os.Getwd()
		defer os.Chdir(oldDir)
		require.NoError(t, os.Chdir(dir))

		os.Unsetenv("BOOKBYLINE_DB")
		t.Cleanup(func() { os.Unsetenv("BOOKBYLINE_DB") })
		require.NoError(t, os.WriteFile(".env", []byte("BOOKBYLINE_DB=dotenv.sl3\n"), 0644))

		cfg, err := Load("", nil)
		require.NoError(t, err)
		assert.Equal(t, "dotenv.sl3", cfg.Store.Path)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Book.Headers = []string{"BOOK"}
	cfg.Credentials.Passphrase = "secret"
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	var loaded Config
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, cfg.Book.Headers, loaded.Book.Headers)
	assert.Equal(t, cfg.Twitter.Timeout, loaded.Twitter.Timeout)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
