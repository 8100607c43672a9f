package api

import (
	"fmt"
	"time"

	"tubescribe/internal/batch"
	"tubescribe/internal/services"
)

// TranscriptionRequest is the POST /video/getData request body.
type TranscriptionRequest struct {
	VideoURLs []string `json:"video_urls"`
}

// VideoData is one transcription result. Field names match the original
// service contract consumed by downstream clients.
type VideoData struct {
	Title      string `json:"titulo"`
	Transcript string `json:"transcricao"`
	CharCount  int    `json:"num_char"`
}

// TranscriptionResponse is the POST /video/getData response body. Data is
// index-correlated with the request's video_urls, failures included.
type TranscriptionResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    []VideoData `json:"data"`
}

// ErrorResponse is returned for request-level failures.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// SessionStatus describes the browser session for status payloads.
type SessionStatus struct {
	State       string    `json:"state"`
	Ready       bool      `json:"ready"`
	Detail      string    `json:"detail,omitempty"`
	LastRefresh time.Time `json:"lastRefresh,omitzero"`
	Reattaches  int       `json:"reattaches"`
}

// HealthResponse is the unauthenticated liveness payload.
type HealthResponse struct {
	Status      string        `json:"status"`
	Session     SessionStatus `json:"session"`
	Transcriber string        `json:"transcriber"`
	Ready       bool          `json:"ready"`
}

// StatusResponse is the authorized detailed status payload.
type StatusResponse struct {
	Running       bool          `json:"running"`
	PID           int           `json:"pid"`
	UptimeSeconds int64         `json:"uptimeSeconds"`
	Session       SessionStatus `json:"session"`
	Transcriber   string        `json:"transcriber"`
	HistoryPath   string        `json:"historyDbPath,omitempty"`
	BatchLimit    int           `json:"batchLimit"`
	Workers       int           `json:"workers"`
}

// NewTranscriptionResponse maps batch outcomes onto the wire contract.
// Failed positions stay in place with an error marker title and a zero char
// count so callers can always line results up with their input.
func NewTranscriptionResponse(result *batch.Result) TranscriptionResponse {
	data := make([]VideoData, len(result.Outcomes))
	for i, outcome := range result.Outcomes {
		if outcome.Failed() {
			data[i] = VideoData{
				Title:      fmt.Sprintf("Erro ao processar: %s", outcome.Ref),
				Transcript: failureReason(outcome),
				CharCount:  0,
			}
			continue
		}
		data[i] = VideoData{
			Title:      outcome.Title,
			Transcript: outcome.Transcript,
			CharCount:  outcome.CharCount,
		}
	}
	return TranscriptionResponse{
		Success: result.Success,
		Message: result.Message,
		Data:    data,
	}
}

func failureReason(outcome batch.ItemOutcome) string {
	switch outcome.FailureKind {
	case services.FailureSessionUnavailable:
		return "browser session unavailable"
	case services.FailureVideoUnavailable:
		return "video unavailable"
	case services.FailureTranscription:
		return "transcription failed"
	case services.FailureAcquisition:
		return "audio download failed"
	default:
		return "internal error"
	}
}
