package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tubescribe/internal/config"
)

const userAgent = "tubescribe/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyBatchStarted(ctx context.Context, batchID string, count int) error
	NotifyBatchCompleted(ctx context.Context, batchID string, succeeded, failed int, duration time.Duration) error
	NotifySessionDegraded(ctx context.Context, detail string) error
	NotifySessionRecovered(ctx context.Context) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		batches:  cfg.Notifications.Batches,
		session:  cfg.Notifications.Session,
		errors:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	batches  bool
	session  bool
	errors   bool
}

func (n *ntfyService) NotifyBatchStarted(ctx context.Context, batchID string, count int) error {
	if !n.batches {
		return nil
	}
	data := payload{
		title:   "Tubescribe - Batch Started",
		message: fmt.Sprintf("Started batch %s with %d videos", batchID, count),
		tags:    []string{"tubescribe", "batch", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, batchID string, succeeded, failed int, duration time.Duration) error {
	if !n.batches {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var title, message string
	if failed == 0 {
		title = "Tubescribe - Batch Complete"
		message = fmt.Sprintf("Batch %s: %d videos transcribed in %s", batchID, succeeded, duration)
	} else {
		title = "Tubescribe - Batch Complete (with errors)"
		message = fmt.Sprintf("Batch %s: %d succeeded, %d failed in %s", batchID, succeeded, failed, duration)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"tubescribe", "batch", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySessionDegraded(ctx context.Context, detail string) error {
	if !n.session {
		return nil
	}
	detail = strings.TrimSpace(detail)
	message := "Browser session degraded"
	if detail != "" {
		message = fmt.Sprintf("%s: %s", message, detail)
	}
	data := payload{
		title:    "Tubescribe - Session Degraded",
		message:  message,
		tags:     []string{"tubescribe", "session", "degraded"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySessionRecovered(ctx context.Context) error {
	if !n.session {
		return nil
	}
	data := payload{
		title:   "Tubescribe - Session Recovered",
		message: "Browser session reattached and healthy",
		tags:    []string{"tubescribe", "session", "recovered"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Tubescribe - Error",
		message:  builder.String(),
		tags:     []string{"tubescribe", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Tubescribe - Test",
		message:  "Notification system test",
		tags:     []string{"tubescribe", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyBatchStarted(context.Context, string, int) error { return nil }
func (noopService) NotifyBatchCompleted(context.Context, string, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifySessionDegraded(context.Context, string) error { return nil }
func (noopService) NotifySessionRecovered(context.Context) error        { return nil }
func (noopService) NotifyError(context.Context, error, string) error    { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
