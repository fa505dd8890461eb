// Package notification routes check results to notification channels.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tekuonline/uptivalab/internal/models"
)

// Provider delivers a message over one channel type
type Provider interface {
	// Name returns the channel type handled by this provider
	Name() string

	// Send sends message using the channel's configuration
	Send(ctx context.Context, channel *models.NotificationChannel, message *Message) error
}

// Message represents a notification message to be sent
type Message struct {
	Title       string
	Body        string
	MonitorID   int
	MonitorName string
	MonitorKind string
	Status      string // "up", "down"
	LatencyMs   int64
	Time        string
	Important   bool
}

// Registry holds all registered notification providers
var (
	providers = make(map[string]Provider)
	mu        sync.RWMutex
)

// RegisterProvider registers a new notification provider
func RegisterProvider(provider Provider) {
	mu.Lock()
	defer mu.Unlock()
	providers[provider.Name()] = provider
}

// GetProvider returns a provider by name
func GetProvider(name string) (Provider, bool) {
	mu.RLock()
	defer mu.RUnlock()
	provider, ok := providers[name]
	return provider, ok
}

// FormatMessage formats a notification message as plain text
func FormatMessage(msg *Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n\n", strings.ToUpper(msg.Status), msg.Title)
	b.WriteString(msg.Body + "\n\n")
	fmt.Fprintf(&b, "Monitor: %s\n", msg.MonitorName)
	if msg.LatencyMs > 0 {
		fmt.Fprintf(&b, "Response Time: %dms\n", msg.LatencyMs)
	}
	fmt.Fprintf(&b, "Time: %s\n", msg.Time)
	return b.String()
}

// configString reads a string key from a channel config
func configString(channel *models.NotificationChannel, key string) string {
	v, _ := channel.Config[key].(string)
	return v
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// postJSON sends payload and fails on any non-2xx response
func postJSON(ctx context.Context, method, url string, headers map[string]string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "UptivaLab/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
