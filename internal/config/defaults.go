package config

const (
	defaultTempDir    = "~/.local/share/tubescribe/tmp"
	defaultLogDir     = "~/.local/share/tubescribe/logs"
	defaultProfileDir = "~/.local/share/tubescribe/profile"
	defaultCookieFile = "~/.local/share/tubescribe/cookies.txt"
	defaultAPIBind    = "127.0.0.1:7474"

	defaultBrowserDebugURL       = "http://localhost:9222"
	defaultBrowserStartupTimeout = 30
	defaultBrowserNavigateURL    = "https://www.youtube.com"
	defaultBrowserRefresh        = 300

	defaultFetcherBinary          = "yt-dlp"
	defaultFetcherMaxRetries      = 3
	defaultFetcherRetryBackoffMs  = 2000
	defaultFetcherDownloadTimeout = 300
	defaultFetcherMinDelay        = 2
	defaultFetcherAudioFormat     = "m4a"

	defaultTranscriberBackend = "whisper-cli"
	defaultTranscriberModel   = "small"
	defaultTranscriberBaseURL = "https://api.openai.com/v1"
	defaultTranscriberTimeout = 600

	defaultBatchMaxSize = 10
	defaultBatchWorkers = 2
	defaultBatchTimeout = 3600

	defaultSweepInterval = 900
	defaultSweepGrace    = 1800

	defaultNtfyTimeout = 10

	defaultHistoryRetentionDays = 30

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 7
)

// Default returns a Config populated with default values. Paths are left
// unexpanded; Load performs expansion during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			TempDir:    defaultTempDir,
			LogDir:     defaultLogDir,
			ProfileDir: defaultProfileDir,
			CookieFile: defaultCookieFile,
			APIBind:    defaultAPIBind,
		},
		Browser: Browser{
			DebugURL:              defaultBrowserDebugURL,
			StartupTimeoutSeconds: defaultBrowserStartupTimeout,
			NavigateURL:           defaultBrowserNavigateURL,
			RefreshInterval:       defaultBrowserRefresh,
			CookieDomains:         []string{"youtube.com", "google.com", "googlevideo.com"},
		},
		Fetcher: Fetcher{
			Binary:             defaultFetcherBinary,
			MaxRetries:         defaultFetcherMaxRetries,
			RetryBackoffMillis: defaultFetcherRetryBackoffMs,
			DownloadTimeout:    defaultFetcherDownloadTimeout,
			MinDelaySeconds:    defaultFetcherMinDelay,
			AudioFormat:        defaultFetcherAudioFormat,
		},
		Transcriber: Transcriber{
			Backend:        defaultTranscriberBackend,
			Model:          defaultTranscriberModel,
			BaseURL:        defaultTranscriberBaseURL,
			TimeoutSeconds: defaultTranscriberTimeout,
		},
		Batch: Batch{
			MaxSize:        defaultBatchMaxSize,
			Workers:        defaultBatchWorkers,
			TimeoutSeconds: defaultBatchTimeout,
		},
		Sweeper: Sweeper{
			IntervalSeconds:    defaultSweepInterval,
			GracePeriodSeconds: defaultSweepGrace,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Batches:        true,
			Session:        true,
			Errors:         true,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetentionDays,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
