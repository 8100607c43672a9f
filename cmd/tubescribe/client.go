package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tubescribe/internal/api"
	"tubescribe/internal/history"
)

type apiClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		// Transcription batches run yt-dlp and whisper end to end, so the
		// request can legitimately take many minutes.
		client: &http.Client{Timeout: 30 * time.Minute},
	}
}

func (c *apiClient) Transcribe(ctx context.Context, urls []string) (api.TranscriptionResponse, error) {
	var out api.TranscriptionResponse
	body, err := json.Marshal(api.TranscriptionRequest{VideoURLs: urls})
	if err != nil {
		return out, err
	}
	err = c.do(ctx, http.MethodPost, "/video/getData", body, &out)
	return out, err
}

func (c *apiClient) Health(ctx context.Context) (api.HealthResponse, error) {
	var out api.HealthResponse
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &out)
	return out, err
}

func (c *apiClient) Status(ctx context.Context) (api.StatusResponse, error) {
	var out api.StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

func (c *apiClient) History(ctx context.Context, limit int) ([]history.BatchSummary, error) {
	var out struct {
		Batches []history.BatchSummary `json:"batches"`
	}
	path := "/api/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Batches, err
}

func (c *apiClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w (is tubescribed running?)", method, path, err)
	}
	defer resp.Body.Close()

	// healthz answers 503 with a valid payload when degraded.
	if resp.StatusCode >= 400 && !(path == "/healthz" && resp.StatusCode == http.StatusServiceUnavailable) {
		var apiErr api.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Message, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
