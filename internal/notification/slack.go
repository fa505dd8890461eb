package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tekuonline/uptivalab/internal/models"
)

// SlackProvider sends Slack incoming-webhook notifications
type SlackProvider struct{}

func init() {
	RegisterProvider(&SlackProvider{})
}

func (s *SlackProvider) Name() string {
	return "slack"
}

func (s *SlackProvider) Send(ctx context.Context, channel *models.NotificationChannel, message *Message) error {
	webhookURL := configString(channel, "webhook_url")
	if webhookURL == "" {
		return fmt.Errorf("webhook_url is required")
	}

	username := configString(channel, "username")
	if username == "" {
		username = "UptivaLab"
	}

	iconEmoji := configString(channel, "icon_emoji")
	color := "#808080"
	switch message.Status {
	case "up":
		color = "good"
		if iconEmoji == "" {
			iconEmoji = ":white_check_mark:"
		}
	case "down":
		color = "danger"
		if iconEmoji == "" {
			iconEmoji = ":x:"
		}
	}

	fields := []map[string]interface{}{
		{"title": "Monitor", "value": message.MonitorName, "short": true},
		{"title": "Status", "value": message.Status, "short": true},
	}
	if message.LatencyMs > 0 {
		fields = append(fields, map[string]interface{}{
			"title": "Response Time",
			"value": fmt.Sprintf("%dms", message.LatencyMs),
			"short": true,
		})
	}

	payload := map[string]interface{}{
		"username":   username,
		"icon_emoji": iconEmoji,
		"attachments": []interface{}{map[string]interface{}{
			"color":  color,
			"title":  message.Title,
			"text":   message.Body,
			"ts":     time.Now().Unix(),
			"footer": "UptivaLab",
			"fields": fields,
		}},
	}
	if ch := configString(channel, "channel"); ch != "" {
		payload["channel"] = ch
	}

	if err := postJSON(ctx, http.MethodPost, webhookURL, nil, payload); err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	return nil
}
