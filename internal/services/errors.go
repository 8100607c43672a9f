package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSessionUnavailable marks failures to start or reach the browser
	// acquisition session after its single restart attempt.
	ErrSessionUnavailable = errors.New("session unavailable")
	// ErrVideoUnavailable marks definitive per-item conditions (private,
	// removed, region-blocked). Never retried.
	ErrVideoUnavailable = errors.New("video unavailable")
	// ErrAcquisition marks transient fetch failures after retries exhaust.
	ErrAcquisition = errors.New("acquisition failed")
	// ErrTranscription marks inference failures on a fetched artifact.
	ErrTranscription = errors.New("transcription failed")
	// ErrBatchTooLarge rejects a whole request before any item work starts.
	ErrBatchTooLarge = errors.New("batch too large")
	// ErrExternalTool marks failures invoking an external binary.
	ErrExternalTool = errors.New("external tool error")
	// ErrConfiguration marks unusable configuration detected at runtime.
	ErrConfiguration = errors.New("configuration error")
)

// FailureKind is the wire label attached to a failed item outcome.
type FailureKind string

const (
	FailureSessionUnavailable FailureKind = "session_unavailable"
	FailureVideoUnavailable   FailureKind = "video_unavailable"
	FailureAcquisition        FailureKind = "acquisition_failed"
	FailureTranscription      FailureKind = "transcription_failed"
	FailureInternal           FailureKind = "internal_error"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later outcome classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrAcquisition
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps a per-item error to the failure kind reported to callers.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, ErrVideoUnavailable):
		return FailureVideoUnavailable
	case errors.Is(err, ErrSessionUnavailable):
		return FailureSessionUnavailable
	case errors.Is(err, ErrTranscription):
		return FailureTranscription
	case errors.Is(err, ErrAcquisition), errors.Is(err, ErrExternalTool):
		return FailureAcquisition
	default:
		return FailureInternal
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
