package config

import (
	"fmt"
	"net"
	"net/url"
)

// Validate checks the configuration for errors that would prevent the
// daemon from operating. Messages name the offending key so operators can
// fix the file without reading source.
func (c *Config) Validate() error {
	if err := c.Paths.validate(); err != nil {
		return err
	}
	if err := c.Browser.validate(); err != nil {
		return err
	}
	if err := c.Fetcher.validate(); err != nil {
		return err
	}
	if err := c.Transcriber.validate(); err != nil {
		return err
	}
	if err := c.Batch.validate(); err != nil {
		return err
	}
	if err := c.Logging.validate(); err != nil {
		return err
	}
	return nil
}

func (p *Paths) validate() error {
	if p.TempDir == "" {
		return fmt.Errorf("paths.temp_dir must be set")
	}
	if p.CookieFile == "" {
		return fmt.Errorf("paths.cookie_file must be set")
	}
	if p.APIBind == "" {
		return fmt.Errorf("paths.api_bind must be set (host:port)")
	}
	if _, _, err := net.SplitHostPort(p.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q is not a valid host:port: %w", p.APIBind, err)
	}
	if p.APIToken == "" {
		return fmt.Errorf("paths.api_token must be set (or export API_TOKEN)")
	}
	return nil
}

func (b *Browser) validate() error {
	parsed, err := url.Parse(b.DebugURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("browser.debug_url %q is not a valid URL", b.DebugURL)
	}
	if len(b.CookieDomains) == 0 {
		return fmt.Errorf("browser.cookie_domains must list at least one domain")
	}
	return nil
}

func (f *Fetcher) validate() error {
	if f.Binary == "" {
		return fmt.Errorf("fetcher.binary must be set")
	}
	return nil
}

func (t *Transcriber) validate() error {
	switch t.Backend {
	case "whisper-cli", "openai":
	default:
		return fmt.Errorf("transcriber.backend %q is not supported (use whisper-cli or openai)", t.Backend)
	}
	if t.Backend == "openai" {
		if t.APIKey == "" {
			return fmt.Errorf("transcriber.api_key must be set for the openai backend (or export TRANSCRIBER_API_KEY)")
		}
		if t.BaseURL == "" {
			return fmt.Errorf("transcriber.base_url must be set for the openai backend")
		}
	}
	if t.Backend == "whisper-cli" && t.Model == "" {
		return fmt.Errorf("transcriber.model must be set for the whisper-cli backend")
	}
	return nil
}

func (b *Batch) validate() error {
	if b.MaxSize < 1 {
		return fmt.Errorf("batch.max_size must be at least 1")
	}
	if b.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1")
	}
	if b.Workers > b.MaxSize {
		return fmt.Errorf("batch.workers (%d) cannot exceed batch.max_size (%d)", b.Workers, b.MaxSize)
	}
	return nil
}

func (l *Logging) validate() error {
	switch l.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use console or json)", l.Format)
	}
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported (use debug, info, warn, or error)", l.Level)
	}
	return nil
}
