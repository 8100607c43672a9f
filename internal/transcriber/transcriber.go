package transcriber

import (
	"context"
	"fmt"
	"log/slog"

	"tubescribe/internal/config"
	"tubescribe/internal/textutil"
)

// Result is a completed transcription.
type Result struct {
	Transcript string
	CharCount  int
}

// Transcriber converts an audio file into text.
type Transcriber interface {
	// Name identifies the backend for logs and status output.
	Name() string
	// Transcribe reads the audio file at audioPath and returns its transcript.
	Transcribe(ctx context.Context, audioPath string) (Result, error)
	// HealthCheck verifies the backend can accept work.
	HealthCheck(ctx context.Context) error
}

// New selects a backend from configuration.
func New(cfg *config.Config, logger *slog.Logger) (Transcriber, error) {
	switch cfg.Transcriber.Backend {
	case "whisper-cli":
		return NewWhisperCLI(cfg.Transcriber, logger), nil
	case "openai":
		return NewAPIClient(cfg.Transcriber, logger), nil
	default:
		return nil, fmt.Errorf("transcriber backend %q is not supported", cfg.Transcriber.Backend)
	}
}

func newResult(transcript string) Result {
	cleaned := textutil.CollapseTranscript(transcript)
	return Result{
		Transcript: cleaned,
		CharCount:  textutil.CharCount(cleaned),
	}
}
