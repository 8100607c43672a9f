package preflight

import (
	"context"
	"strings"

	"tubescribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable checks for the given config. Checks that
// depend on optional features are skipped when the feature is disabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckDirectoryAccess("Profile directory", cfg.Paths.ProfileDir))

	results = append(results, CheckBinary("yt-dlp", cfg.Fetcher.Binary))

	switch cfg.Transcriber.Backend {
	case "openai":
		results = append(results, checkTranscriberAPI(cfg))
	default:
		results = append(results, CheckBinary("uvx (whisper runner)", "uvx"))
	}

	results = append(results, CheckEndpoint(ctx, "Browser debug endpoint",
		strings.TrimRight(cfg.Browser.DebugURL, "/")+"/json/version"))

	return results
}

// AllPassed reports whether every check in results succeeded.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

func checkTranscriberAPI(cfg *config.Config) Result {
	const name = "Transcriber API"
	if strings.TrimSpace(cfg.Transcriber.APIKey) == "" {
		return Result{Name: name, Detail: "api_key missing"}
	}
	if strings.TrimSpace(cfg.Transcriber.BaseURL) == "" {
		return Result{Name: name, Detail: "base_url missing"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}
