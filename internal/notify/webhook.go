package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Webhook posts JSON payloads to an external endpoint.
type Webhook interface {
	Post(ctx context.Context, payload any) error
}

// WebhookClient is a resty-backed Webhook.
type WebhookClient struct {
	url    string
	client *resty.Client
	logger *zap.Logger
}

// NewWebhookClient builds a client. An empty url disables delivery.
func NewWebhookClient(url string, timeout time.Duration, retries int, logger *zap.Logger) *WebhookClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &WebhookClient{url: strings.TrimSpace(url), client: client, logger: logger}
}

// Enabled reports whether a target URL is configured.
func (w *WebhookClient) Enabled() bool {
	return w != nil && w.url != ""
}

// Post sends payload as JSON. Non-2xx responses are errors.
func (w *WebhookClient) Post(ctx context.Context, payload any) error {
	if !w.Enabled() {
		return nil
	}
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.IsError() {
		w.logger.Warn("webhook rejected notification",
			zap.String("url", w.url),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode())
	}
	return nil
}
