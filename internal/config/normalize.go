package config

import "strings"

func (c *Config) normalize() error {
	if err := c.Paths.normalize(); err != nil {
		return err
	}
	c.Browser.normalize()
	c.Fetcher.normalize()
	c.Transcriber.normalize()
	c.Batch.normalize()
	c.Sweeper.normalize()
	c.Notifications.normalize()
	c.Logging.normalize()
	return nil
}

func (p *Paths) normalize() error {
	for _, field := range []*string{&p.TempDir, &p.LogDir, &p.ProfileDir, &p.CookieFile} {
		expanded, err := expandPath(strings.TrimSpace(*field))
		if err != nil {
			return err
		}
		*field = expanded
	}
	p.APIBind = strings.TrimSpace(p.APIBind)
	p.APIToken = strings.TrimSpace(p.APIToken)
	return nil
}

func (b *Browser) normalize() {
	b.DebugURL = strings.TrimRight(strings.TrimSpace(b.DebugURL), "/")
	b.NavigateURL = strings.TrimSpace(b.NavigateURL)
	if b.StartupTimeoutSeconds <= 0 {
		b.StartupTimeoutSeconds = defaultBrowserStartupTimeout
	}
	if b.RefreshInterval <= 0 {
		b.RefreshInterval = defaultBrowserRefresh
	}
	domains := b.CookieDomains[:0]
	for _, d := range b.CookieDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			domains = append(domains, d)
		}
	}
	b.CookieDomains = domains
}

func (f *Fetcher) normalize() {
	f.Binary = strings.TrimSpace(f.Binary)
	f.AudioFormat = strings.ToLower(strings.TrimSpace(f.AudioFormat))
	if f.MaxRetries < 0 {
		f.MaxRetries = 0
	}
	if f.RetryBackoffMillis <= 0 {
		f.RetryBackoffMillis = defaultFetcherRetryBackoffMs
	}
	if f.DownloadTimeout <= 0 {
		f.DownloadTimeout = defaultFetcherDownloadTimeout
	}
	if f.MinDelaySeconds < 0 {
		f.MinDelaySeconds = 0
	}
}

func (t *Transcriber) normalize() {
	t.Backend = strings.ToLower(strings.TrimSpace(t.Backend))
	t.Model = strings.TrimSpace(t.Model)
	t.Language = strings.ToLower(strings.TrimSpace(t.Language))
	t.BaseURL = strings.TrimRight(strings.TrimSpace(t.BaseURL), "/")
	t.APIKey = strings.TrimSpace(t.APIKey)
	if t.TimeoutSeconds <= 0 {
		t.TimeoutSeconds = defaultTranscriberTimeout
	}
}

func (b *Batch) normalize() {
	if b.TimeoutSeconds <= 0 {
		b.TimeoutSeconds = defaultBatchTimeout
	}
}

func (s *Sweeper) normalize() {
	if s.IntervalSeconds <= 0 {
		s.IntervalSeconds = defaultSweepInterval
	}
	if s.GracePeriodSeconds <= 0 {
		s.GracePeriodSeconds = defaultSweepGrace
	}
}

func (n *Notifications) normalize() {
	n.NtfyTopic = strings.TrimSpace(n.NtfyTopic)
	if n.RequestTimeout <= 0 {
		n.RequestTimeout = defaultNtfyTimeout
	}
}

func (l *Logging) normalize() {
	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if l.Format == "" {
		l.Format = defaultLogFormat
	}
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
	if l.RetentionDays <= 0 {
		l.RetentionDays = defaultLogRetentionDays
	}
}
