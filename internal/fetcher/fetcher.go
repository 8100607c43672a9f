package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"tubescribe/internal/config"
	"tubescribe/internal/logging"
	"tubescribe/internal/services"
	"tubescribe/internal/textutil"
)

// SessionRefresher renews the acquisition session cookies. The browser
// manager satisfies this.
type SessionRefresher interface {
	RefreshCookies(ctx context.Context) error
}

// Result describes a completed audio download.
type Result struct {
	AudioPath string
	Title     string
	Strategy  string
	SizeBytes int64
}

// Fetcher downloads audio tracks with yt-dlp.
type Fetcher struct {
	cfg        config.Fetcher
	cookieFile string
	tempRoot   string
	logger     *slog.Logger
	runner     services.CommandRunner
	refresher  SessionRefresher
	sleep      func(time.Duration)

	mu           sync.Mutex
	lastDownload time.Time
}

// Option customizes fetcher construction.
type Option func(*Fetcher)

// WithCommandRunner sets a custom command runner (for testing).
func WithCommandRunner(runner services.CommandRunner) Option {
	return func(f *Fetcher) {
		if runner != nil {
			f.runner = runner
		}
	}
}

// WithSessionRefresher wires the refresher consulted after authentication
// failures.
func WithSessionRefresher(r SessionRefresher) Option {
	return func(f *Fetcher) {
		f.refresher = r
	}
}

// WithSleeper replaces the sleep function used for rate limiting and
// inter-strategy delays (for testing).
func WithSleeper(sleep func(time.Duration)) Option {
	return func(f *Fetcher) {
		if sleep != nil {
			f.sleep = sleep
		}
	}
}

// New constructs a Fetcher from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		cfg:        cfg.Fetcher,
		cookieFile: cfg.Paths.CookieFile,
		tempRoot:   cfg.Paths.TempDir,
		logger:     logging.NewComponentLogger(logger, "fetcher"),
		runner:     services.DefaultRunner,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// HealthCheck verifies the yt-dlp binary is resolvable.
func (f *Fetcher) HealthCheck(ctx context.Context) error {
	return services.LookBinary(f.cfg.Binary)
}

// Fetch downloads the audio track for videoURL into workDir. The caller owns
// workDir and removes it once the transcript is extracted.
func (f *Fetcher) Fetch(ctx context.Context, videoURL, workDir string) (*Result, error) {
	if err := validateReference(videoURL); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrAcquisition, "fetcher", "fetch", "create work directory", err)
	}

	f.respectRateLimit(ctx)

	logger := logging.WithContext(ctx, f.logger)
	strategies := Strategies()

	var lastErr error
	for i, strategy := range strategies {
		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(f.cfg.DownloadTimeout)*time.Second)
		result, err := f.attempt(attemptCtx, videoURL, workDir, strategy)
		cancel()
		if err == nil {
			logger.Info("audio acquired",
				logging.String("strategy", strategy.Name),
				logging.String("title", result.Title),
				logging.Int64("size_bytes", result.SizeBytes))
			return result, nil
		}
		lastErr = err

		if errors.Is(err, services.ErrVideoUnavailable) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrAcquisition, "fetcher", "fetch", "download canceled", ctx.Err())
		}

		logger.Warn("extraction strategy failed",
			logging.String("strategy", strategy.Name),
			logging.Error(err))
		if i < len(strategies)-1 {
			f.sleep(f.retryDelay(i))
		}
	}

	// All rungs failed. Authentication failures get one session refresh and
	// a final stealth attempt before the item is declared lost.
	if errors.Is(lastErr, services.ErrSessionUnavailable) && f.refresher != nil {
		logger.Info("refreshing session cookies before final attempt")
		if err := f.refresher.RefreshCookies(ctx); err != nil {
			logger.Warn("session refresh failed", logging.Error(err))
			return nil, lastErr
		}
		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(f.cfg.DownloadTimeout)*time.Second)
		defer cancel()
		stealth := strategies[len(strategies)-1]
		result, err := f.attempt(attemptCtx, videoURL, workDir, stealth)
		if err == nil {
			logger.Info("audio acquired after session refresh", logging.String("title", result.Title))
			return result, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

// attempt runs one yt-dlp invocation, retrying transient process failures
// with constant backoff.
func (f *Fetcher) attempt(ctx context.Context, videoURL, workDir string, strategy Strategy) (*Result, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(time.Duration(f.cfg.RetryBackoffMillis)*time.Millisecond),
			uint64(f.cfg.MaxRetries),
		), ctx)

	var result *Result
	operation := func() error {
		res, err := f.runOnce(ctx, videoURL, workDir, strategy)
		if err != nil {
			if errors.Is(err, services.ErrVideoUnavailable) || errors.Is(err, services.ErrSessionUnavailable) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = res
		return nil
	}
	if err := backoff.Retry(operation, policy); err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return nil, permanent.Err
		}
		return nil, err
	}
	return result, nil
}

func (f *Fetcher) runOnce(ctx context.Context, videoURL, workDir string, strategy Strategy) (*Result, error) {
	artifactID := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	args := f.buildArgs(videoURL, workDir, artifactID, strategy)

	output, err := f.runner(ctx, f.cfg.Binary, args...)
	if err != nil {
		return nil, classifyOutput(string(output), strategy.Name, err)
	}

	audioPath, size, err := locateArtifact(workDir, artifactID)
	if err != nil {
		return nil, services.Wrap(services.ErrAcquisition, "fetcher", "fetch",
			fmt.Sprintf("strategy %s produced no artifact", strategy.Name), err)
	}

	title := parseTitle(string(output))
	if title == "" {
		title = textutil.FallbackTitle(videoURL)
	}

	return &Result{
		AudioPath: audioPath,
		Title:     textutil.NormalizeTitle(title),
		Strategy:  strategy.Name,
		SizeBytes: size,
	}, nil
}

// buildArgs constructs the yt-dlp invocation for one strategy. The title is
// printed to stdout alongside the download so a separate metadata call is
// unnecessary.
func (f *Fetcher) buildArgs(videoURL, workDir, artifactID string, strategy Strategy) []string {
	outputTemplate := filepath.Join(workDir, artifactID+".%(ext)s")

	args := []string{
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"--no-check-certificates",
		"--extract-audio",
		"--audio-format", f.cfg.AudioFormat,
		"--audio-quality", "192K",
		"--postprocessor-args", "ffmpeg:-ar 16000 -ac 1",
		"--retries", "3",
		"--fragment-retries", "5",
		"--output", outputTemplate,
		"--no-simulate",
		"--print", "title",
		"--user-agent", strategy.UserAgent,
		"--extractor-args", "youtube:player_client=" + strategy.PlayerClients,
	}
	args = append(args, strategy.ExtraArgs...)
	if _, err := os.Stat(f.cookieFile); err == nil {
		args = append(args, "--cookies", f.cookieFile)
	}
	args = append(args, videoURL)
	return args
}

func (f *Fetcher) respectRateLimit(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	minDelay := time.Duration(f.cfg.MinDelaySeconds) * time.Second
	if minDelay <= 0 {
		f.lastDownload = time.Now()
		return
	}
	if since := time.Since(f.lastDownload); since < minDelay {
		wait := minDelay - since
		logging.WithContext(ctx, f.logger).Debug("rate limiting download", logging.Duration("wait", wait))
		f.sleep(wait)
	}
	f.lastDownload = time.Now()
}

func (f *Fetcher) retryDelay(rung int) time.Duration {
	base := time.Duration(f.cfg.RetryBackoffMillis) * time.Millisecond
	return base * time.Duration(rung+1)
}

func validateReference(videoURL string) error {
	parsed, err := url.Parse(strings.TrimSpace(videoURL))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return services.Wrap(services.ErrVideoUnavailable, "fetcher", "validate",
			fmt.Sprintf("%q is not a valid video reference", videoURL), err)
	}
	return nil
}

// locateArtifact finds the downloaded file for artifactID. The extension is
// not known up front because yt-dlp may pick a different container.
func locateArtifact(workDir, artifactID string) (string, int64, error) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return "", 0, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), artifactID+".") {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".part") || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		path := filepath.Join(workDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return "", 0, err
		}
		if info.Size() == 0 {
			return "", 0, fmt.Errorf("artifact %s is empty", path)
		}
		return path, info.Size(), nil
	}
	return "", 0, fmt.Errorf("no file matching %s.* in %s", artifactID, workDir)
}

// parseTitle extracts the printed title from yt-dlp output. Diagnostics can
// precede it, so the last non-empty line wins.
func parseTitle(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

var unavailableMarkers = []string{
	"video unavailable",
	"private video",
	"this video has been removed",
	"no longer available",
	"account associated with this video has been terminated",
	"video is not available",
}

var sessionMarkers = []string{
	"sign in",
	"login required",
	"cookies",
	"not a bot",
	"blocked",
	"confirm your age",
}

func classifyOutput(output, strategyName string, err error) error {
	lowered := strings.ToLower(output)
	for _, marker := range unavailableMarkers {
		if strings.Contains(lowered, marker) {
			return services.Wrap(services.ErrVideoUnavailable, "fetcher", "fetch", "video cannot be retrieved", err)
		}
	}
	for _, marker := range sessionMarkers {
		if strings.Contains(lowered, marker) {
			return services.Wrap(services.ErrSessionUnavailable, "fetcher", "fetch", "extraction requires a fresh session", err)
		}
	}
	return services.Wrap(services.ErrAcquisition, "fetcher", "fetch",
		fmt.Sprintf("strategy %s failed", strategyName), err)
}

