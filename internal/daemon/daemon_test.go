package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"tubescribe/internal/api"
	"tubescribe/internal/batch"
	"tubescribe/internal/browser"
	"tubescribe/internal/config"
	"tubescribe/internal/services"
	"tubescribe/internal/testsupport"
	"tubescribe/internal/transcriber"
)

type fakeSession struct {
	health   browser.Health
	startErr error
	stopped  bool
}

func (f *fakeSession) Start(context.Context) error { return f.startErr }
func (f *fakeSession) Stop()                       { f.stopped = true }
func (f *fakeSession) Health() browser.Health      { return f.health }

type fakeProcessor struct {
	result *batch.Result
	err    error
	refs   []string
}

func (f *fakeProcessor) Process(_ context.Context, refs []string) (*batch.Result, error) {
	f.refs = refs
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeBackend struct {
	healthy bool
}

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) Transcribe(context.Context, string) (transcriber.Result, error) {
	return transcriber.Result{}, nil
}
func (f *fakeBackend) HealthCheck(context.Context) error {
	if !f.healthy {
		return services.Wrap(services.ErrConfiguration, "transcriber", "health", "unavailable", nil)
	}
	return nil
}

func readySession() *fakeSession {
	return &fakeSession{health: browser.Health{State: browser.StateReady, Ready: true}}
}

func startTestDaemon(t *testing.T, cfg *config.Config, deps Deps) *Daemon {
	t.Helper()
	if deps.Session == nil {
		deps.Session = readySession()
	}
	if deps.Processor == nil {
		deps.Processor = &fakeProcessor{result: &batch.Result{Message: "Processed 0 of 0 videos"}}
	}
	if deps.Transcriber == nil {
		deps.Transcriber = &fakeBackend{healthy: true}
	}
	d, err := New(cfg, nil, deps)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func doRequest(t *testing.T, method, url, token string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestTranscribeEndpointReturnsOrderedData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	processor := &fakeProcessor{result: &batch.Result{
		BatchID: "abc123",
		Success: true,
		Message: "Processed 1 of 2 videos",
		Outcomes: []batch.ItemOutcome{
			{Index: 0, Ref: "https://youtu.be/aaaaaaaaaaa", Title: "First", Transcript: "hello", CharCount: 5},
			{
				Index:       1,
				Ref:         "https://youtu.be/bbbbbbbbbbb",
				Err:         services.Wrap(services.ErrAcquisition, "fetcher", "fetch", "exhausted", nil),
				FailureKind: services.FailureAcquisition,
			},
		},
	}}
	d := startTestDaemon(t, cfg, Deps{Processor: processor})

	body, _ := json.Marshal(api.TranscriptionRequest{VideoURLs: []string{
		"https://youtu.be/aaaaaaaaaaa",
		"https://youtu.be/bbbbbbbbbbb",
	}})
	resp := doRequest(t, http.MethodPost, "http://"+d.Addr()+"/video/getData", cfg.Paths.APIToken, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var decoded api.TranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !decoded.Success || decoded.Message != "Processed 1 of 2 videos" {
		t.Errorf("unexpected envelope %+v", decoded)
	}
	if len(decoded.Data) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(decoded.Data))
	}
	if decoded.Data[0].Title != "First" {
		t.Errorf("entry 0 title = %q", decoded.Data[0].Title)
	}
	if decoded.Data[1].Title != "Erro ao processar: https://youtu.be/bbbbbbbbbbb" {
		t.Errorf("entry 1 title = %q", decoded.Data[1].Title)
	}
	if len(processor.refs) != 2 {
		t.Errorf("processor saw %d refs", len(processor.refs))
	}
}

func TestTranscribeEndpointRequiresAuth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startTestDaemon(t, cfg, Deps{})

	body, _ := json.Marshal(api.TranscriptionRequest{VideoURLs: []string{"https://youtu.be/aaaaaaaaaaa"}})

	resp := doRequest(t, http.MethodPost, "http://"+d.Addr()+"/video/getData", "", body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("missing token status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("unauthorized content type = %q", ct)
	}
	var errResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode unauthorized body: %v", err)
	}
	if errResp.Success || errResp.Message != "unauthorized" {
		t.Errorf("unauthorized body = %+v", errResp)
	}

	resp = doRequest(t, http.MethodPost, "http://"+d.Addr()+"/video/getData", "wrong-token", body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token status = %d", resp.StatusCode)
	}
}

func TestTranscribeEndpointValidatesBody(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startTestDaemon(t, cfg, Deps{})
	url := "http://" + d.Addr() + "/video/getData"

	resp := doRequest(t, http.MethodPost, url, cfg.Paths.APIToken, []byte(`{"video_urls": []}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty list status = %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodPost, url, cfg.Paths.APIToken, []byte(`{"video_urls": ["https://vimeo.com/123"]}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid reference status = %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodPost, url, cfg.Paths.APIToken, []byte(`not json`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", resp.StatusCode)
	}
}

func TestTranscribeEndpointMapsBatchTooLarge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	processor := &fakeProcessor{err: services.Wrap(services.ErrBatchTooLarge, "batch", "process", "batch of 11 exceeds limit of 10", nil)}
	d := startTestDaemon(t, cfg, Deps{Processor: processor})

	body, _ := json.Marshal(api.TranscriptionRequest{VideoURLs: []string{"https://youtu.be/aaaaaaaaaaa"}})
	resp := doRequest(t, http.MethodPost, "http://"+d.Addr()+"/video/getData", cfg.Paths.APIToken, body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var decoded api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Success {
		t.Error("error response marked success")
	}
}

func TestHealthzNeedsNoAuth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startTestDaemon(t, cfg, Deps{})

	resp := doRequest(t, http.MethodGet, "http://"+d.Addr()+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var health api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !health.Ready || health.Session.State != string(browser.StateReady) {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestHealthzDegradedSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	session := &fakeSession{health: browser.Health{State: browser.StateDegraded, Detail: "browser gone"}}
	d := startTestDaemon(t, cfg, Deps{Session: session})

	resp := doRequest(t, http.MethodGet, "http://"+d.Addr()+"/healthz", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var health api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Ready || health.Status != "degraded" {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestStatusEndpointReportsRuntime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := startTestDaemon(t, cfg, Deps{})

	resp := doRequest(t, http.MethodGet, "http://"+d.Addr()+"/api/status", cfg.Paths.APIToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var status api.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.Running {
		t.Error("expected running daemon")
	}
	if status.BatchLimit != cfg.Batch.MaxSize {
		t.Errorf("batch limit = %d, want %d", status.BatchLimit, cfg.Batch.MaxSize)
	}
	if status.Transcriber != "fake" {
		t.Errorf("transcriber = %q", status.Transcriber)
	}
}

func TestSecondDaemonInstanceRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	startTestDaemon(t, cfg, Deps{})

	second, err := New(cfg, nil, Deps{
		Session:   readySession(),
		Processor: &fakeProcessor{result: &batch.Result{}},
	})
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected lock conflict for second instance")
	}
}

func TestStopReleasesSessionAndLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	session := readySession()
	d := startTestDaemon(t, cfg, Deps{Session: session})
	d.Stop()

	if !session.stopped {
		t.Error("session manager not stopped")
	}

	replacement, err := New(cfg, nil, Deps{
		Session:   readySession(),
		Processor: &fakeProcessor{result: &batch.Result{}},
	})
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := replacement.Start(context.Background()); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
	replacement.Stop()
}
