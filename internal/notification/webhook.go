package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tekuonline/uptivalab/internal/models"
)

// WebhookProvider posts a JSON document to an arbitrary URL
type WebhookProvider struct{}

func init() {
	RegisterProvider(&WebhookProvider{})
}

func (w *WebhookProvider) Name() string {
	return "webhook"
}

func (w *WebhookProvider) Send(ctx context.Context, channel *models.NotificationChannel, message *Message) error {
	url := configString(channel, "webhook_url")
	if url == "" {
		return fmt.Errorf("webhook_url is required")
	}

	method := configString(channel, "method")
	if method == "" {
		method = http.MethodPost
	}

	headers := make(map[string]string)
	if custom, ok := channel.Config["headers"].(map[string]interface{}); ok {
		for key, value := range custom {
			if s, ok := value.(string); ok {
				headers[key] = s
			}
		}
	}

	payload := map[string]interface{}{
		"title":        message.Title,
		"body":         message.Body,
		"text":         FormatMessage(message),
		"monitor_id":   message.MonitorID,
		"monitor_name": message.MonitorName,
		"monitor_kind": message.MonitorKind,
		"status":       message.Status,
		"latency_ms":   message.LatencyMs,
		"time":         message.Time,
		"important":    message.Important,
	}

	if err := postJSON(ctx, method, url, headers, payload); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}
