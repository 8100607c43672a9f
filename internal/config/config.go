package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	TempDir    string `toml:"temp_dir"`
	LogDir     string `toml:"log_dir"`
	ProfileDir string `toml:"profile_dir"`
	CookieFile string `toml:"cookie_file"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Browser contains configuration for the acquisition browser session.
type Browser struct {
	DebugURL              string   `toml:"debug_url"`
	StartupTimeoutSeconds int      `toml:"startup_timeout"`
	NavigateURL           string   `toml:"navigate_url"`
	RefreshInterval       int      `toml:"refresh_interval"`
	CookieDomains         []string `toml:"cookie_domains"`
}

// Fetcher contains configuration for audio acquisition via yt-dlp.
type Fetcher struct {
	Binary             string `toml:"binary"`
	MaxRetries         int    `toml:"max_retries"`
	RetryBackoffMillis int    `toml:"retry_backoff_ms"`
	DownloadTimeout    int    `toml:"download_timeout"`
	MinDelaySeconds    int    `toml:"min_delay_seconds"`
	AudioFormat        string `toml:"audio_format"`
}

// Transcriber contains configuration for the speech-to-text engine.
type Transcriber struct {
	Backend        string `toml:"backend"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Batch contains configuration for batch processing limits.
type Batch struct {
	MaxSize        int `toml:"max_size"`
	Workers        int `toml:"workers"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Sweeper contains configuration for orphaned artifact reclamation.
type Sweeper struct {
	IntervalSeconds    int `toml:"interval_seconds"`
	GracePeriodSeconds int `toml:"grace_period_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Batches        bool   `toml:"batches"`
	Session        bool   `toml:"session"`
	Errors         bool   `toml:"errors"`
}

// History contains configuration for the batch outcome store.
type History struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// Logging contains configuration for log output. RetentionDays bounds how
// long rotated log files are kept, independent of the history store window.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for tubescribe.
//
// Configuration sections by subsystem:
//   - Paths: temp/profile/log directories, cookie file, API bind and token
//   - Browser: CDP endpoint, startup timeout, cookie refresh behaviour
//   - Fetcher: yt-dlp binary, retry policy, rate limiting
//   - Transcriber: backend selection, model size, API credentials
//   - Batch: batch size cap, worker count, batch timeout
//   - Sweeper: orphan reclamation interval and grace period
//   - Notifications: ntfy push notification settings
//   - History: sqlite outcome store retention
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Browser       Browser       `toml:"browser"`
	Fetcher       Fetcher       `toml:"fetcher"`
	Transcriber   Transcriber   `toml:"transcriber"`
	Batch         Batch         `toml:"batch"`
	Sweeper       Sweeper       `toml:"sweeper"`
	Notifications Notifications `toml:"notifications"`
	History       History       `toml:"history"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tubescribe/config.toml")
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. Environment overrides
// for secrets (API_TOKEN, TRANSCRIBER_API_KEY) are applied after parsing.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("API_TOKEN")); v != "" {
		c.Paths.APIToken = v
	}
	if v := strings.TrimSpace(os.Getenv("TRANSCRIBER_API_KEY")); v != "" {
		c.Transcriber.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("NTFY_TOPIC")); v != "" {
		c.Notifications.NtfyTopic = v
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tubescribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.TempDir, c.Paths.LogDir, c.Paths.ProfileDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.CookieFile); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cookie directory %q: %w", dir, err)
		}
	}
	return nil
}

// StartupTimeout returns the browser startup timeout as a duration.
func (c *Config) StartupTimeout() time.Duration {
	return time.Duration(c.Browser.StartupTimeoutSeconds) * time.Second
}

// BatchTimeout returns the whole-batch deadline as a duration.
func (c *Config) BatchTimeout() time.Duration {
	return time.Duration(c.Batch.TimeoutSeconds) * time.Second
}

// SweepInterval returns the sweeper cadence as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Sweeper.IntervalSeconds) * time.Second
}

// SweepGracePeriod returns the artifact grace period as a duration.
func (c *Config) SweepGracePeriod() time.Duration {
	return time.Duration(c.Sweeper.GracePeriodSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
