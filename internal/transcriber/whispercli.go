package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tubescribe/internal/config"
	"tubescribe/internal/logging"
	"tubescribe/internal/services"
)

const uvxCommand = "uvx"

// WhisperCLI runs whisper locally through uvx.
type WhisperCLI struct {
	cfg    config.Transcriber
	logger *slog.Logger
	runner services.CommandRunner
}

// NewWhisperCLI constructs the local whisper backend.
func NewWhisperCLI(cfg config.Transcriber, logger *slog.Logger) *WhisperCLI {
	return &WhisperCLI{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "transcriber"),
		runner: services.DefaultRunner,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *WhisperCLI) WithCommandRunner(runner services.CommandRunner) {
	if runner != nil {
		w.runner = runner
	}
}

func (w *WhisperCLI) Name() string { return "whisper-cli" }

// HealthCheck verifies uvx is resolvable.
func (w *WhisperCLI) HealthCheck(ctx context.Context) error {
	return services.LookBinary(uvxCommand)
}

// Transcribe invokes whisperx on the audio file and collects the segment
// text from its JSON output.
func (w *WhisperCLI) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	var empty Result
	if audioPath == "" {
		return empty, services.Wrap(services.ErrTranscription, "transcriber", "transcribe", "audio path required", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return empty, services.Wrap(services.ErrTranscription, "transcriber", "transcribe", "audio file missing", err)
	}

	outputDir := filepath.Dir(audioPath)
	args := w.buildArgs(audioPath, outputDir)

	output, err := w.runner(ctx, uvxCommand, args...)
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = "whisper run failed"
		}
		return empty, services.Wrap(services.ErrTranscription, "transcriber", "transcribe", detail, err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	transcript, err := loadTranscript(jsonPath)
	if err != nil {
		return empty, services.Wrap(services.ErrTranscription, "transcriber", "transcribe", "read whisper output", err)
	}

	result := newResult(transcript)
	logging.WithContext(ctx, w.logger).Debug("transcription complete",
		logging.String("backend", w.Name()),
		logging.Int("chars", result.CharCount))
	return result, nil
}

func (w *WhisperCLI) buildArgs(audioPath, outputDir string) []string {
	args := []string{
		"whisperx",
		audioPath,
		"--model", w.cfg.Model,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--device", "cpu",
		"--compute_type", "int8",
	}
	if w.cfg.Language != "" {
		args = append(args, "--language", w.cfg.Language)
	}
	return args
}

type whisperSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperPayload struct {
	Segments []whisperSegment `json:"segments"`
}

func loadTranscript(jsonPath string) (string, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return "", err
	}
	var payload whisperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("parse whisper json: %w", err)
	}
	parts := make([]string, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
