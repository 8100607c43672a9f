package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"tubescribe/internal/config"
	"tubescribe/internal/logging"
	"tubescribe/internal/services"
)

func apiConfig(baseURL string) config.Transcriber {
	return config.Transcriber{
		Backend:        "openai",
		APIKey:         "sk-test",
		BaseURL:        baseURL,
		Language:       "pt",
		TimeoutSeconds: 5,
	}
}

func TestAPITranscribeSuccess(t *testing.T) {
	dir := t.TempDir()
	audio := writeAudio(t, dir)

	var sawAuth, sawModel, sawLanguage atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		sawAuth.Store(r.Header.Get("Authorization") == "Bearer sk-test")
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		sawModel.Store(r.FormValue("model") == "whisper-1")
		sawLanguage.Store(r.FormValue("language") == "pt")
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("form file: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "  olá   mundo  "})
	}))
	defer server.Close()

	client := NewAPIClient(apiConfig(server.URL), logging.NewNop())
	result, err := client.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Transcript != "olá   mundo" {
		t.Fatalf("unexpected transcript %q", result.Transcript)
	}
	if result.CharCount != 11 {
		t.Fatalf("expected rune count 11, got %d", result.CharCount)
	}
	if !sawAuth.Load() || !sawModel.Load() || !sawLanguage.Load() {
		t.Fatal("request was missing auth, model, or language fields")
	}
}

func TestAPITranscribeRetriesOnServerError(t *testing.T) {
	dir := t.TempDir()
	audio := writeAudio(t, dir)

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "done"})
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewAPIClient(apiConfig(server.URL), logging.NewNop(),
		WithRetryMaxAttempts(3),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }))

	result, err := client.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Transcript != "done" {
		t.Fatalf("unexpected transcript %q", result.Transcript)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	for _, d := range slept {
		if d != time.Second {
			t.Fatalf("expected Retry-After honored, slept %v", slept)
		}
	}
}

func TestAPITranscribeDoesNotRetryClientErrors(t *testing.T) {
	dir := t.TempDir()
	audio := writeAudio(t, dir)

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewAPIClient(apiConfig(server.URL), logging.NewNop(),
		WithRetryMaxAttempts(3),
		WithSleeper(func(time.Duration) {}))

	_, err := client.Transcribe(context.Background(), audio)
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription failure, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("401 must not retry, got %d attempts", calls.Load())
	}
}

func TestAPITranscribeRequiresCredentials(t *testing.T) {
	cfg := apiConfig("http://localhost:1")
	cfg.APIKey = ""
	client := NewAPIClient(cfg, logging.NewNop())

	audio := filepath.Join(t.TempDir(), "a.m4a")
	if err := os.WriteFile(audio, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := client.Transcribe(context.Background(), audio)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
