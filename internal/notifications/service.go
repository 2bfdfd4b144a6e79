package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"easel/internal/config"
)

const userAgent = "Easel/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyRequestQueued(ctx context.Context, product string) error
	NotifyBannerCompleted(ctx context.Context, product, bannerFile string) error
	NotifyReviewNeeded(ctx context.Context, product, reason string) error
	NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
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
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		sendCompleted: cfg.Notifications.Completed,
		sendReview:    cfg.Notifications.Review,
		sendErrors:    cfg.Notifications.Errors,
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

	sendCompleted bool
	sendReview    bool
	sendErrors    bool
}

func (n *ntfyService) NotifyRequestQueued(ctx context.Context, product string) error {
	data := payload{
		title:   "Easel - Request Queued",
		message: fmt.Sprintf("New banner request: %s", strings.TrimSpace(product)),
		tags:    []string{"easel", "queue", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBannerCompleted(ctx context.Context, product, bannerFile string) error {
	if !n.sendCompleted {
		return nil
	}
	product = strings.TrimSpace(product)
	bannerFile = strings.TrimSpace(bannerFile)
	message := fmt.Sprintf("✅ Banner ready: %s", product)
	if bannerFile != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, bannerFile)
	}
	data := payload{
		title:    "Easel - Banner Ready",
		message:  message,
		tags:     []string{"easel", "banner", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReviewNeeded(ctx context.Context, product, reason string) error {
	if !n.sendReview {
		return nil
	}
	product = strings.TrimSpace(product)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "manual review required"
	}
	data := payload{
		title:   "Easel - Review Needed",
		message: fmt.Sprintf("Banner for %s held for review\nReason: %s", product, reason),
		tags:    []string{"easel", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var message string
	var title string
	if failed == 0 {
		title = "Easel - Queue Complete"
		message = fmt.Sprintf("Queue processing complete: %d items processed in %s", processed, durationText)
	} else {
		title = "Easel - Queue Complete (with errors)"
		message = fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"easel", "queue", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.sendErrors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
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
		title:    "Easel - Error",
		message:  builder.String(),
		tags:     []string{"easel", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Easel - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"easel", "test"},
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

func (noopService) NotifyRequestQueued(context.Context, string) error                   { return nil }
func (noopService) NotifyBannerCompleted(context.Context, string, string) error         { return nil }
func (noopService) NotifyReviewNeeded(context.Context, string, string) error            { return nil }
func (noopService) NotifyQueueCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
