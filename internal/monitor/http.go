package monitor

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tekuonline/uptivalab/internal/models"
)

// maxKeywordBody bounds how much of a response is scanned for a keyword
const maxKeywordBody = 1 << 20

// HTTPProbe implements HTTP/HTTPS monitoring
type HTTPProbe struct {
	guard *AddressGuard
}

func init() {
	registerBuiltin(NewHTTPProbe(NewAddressGuard(false)))
}

// NewHTTPProbe creates an HTTP probe whose connections are vetted by guard
func NewHTTPProbe(guard *AddressGuard) *HTTPProbe {
	return &HTTPProbe{guard: guard}
}

// Kind returns the monitor kind
func (h *HTTPProbe) Kind() models.Kind {
	return models.KindHTTP
}

// Check performs the HTTP check
func (h *HTTPProbe) Check(ctx context.Context, req *CheckRequest) (*models.CheckResult, error) {
	cfg, ok := req.Config.(*HTTPConfig)
	if !ok {
		return nil, fmt.Errorf("http probe: unexpected config %T", req.Config)
	}
	result := newResult(req)

	if cfg.URL == "" {
		result.Message = "No URL specified"
		return result, nil
	}

	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}
	accepted := cfg.AcceptedStatusCodes
	if len(accepted) == 0 {
		accepted = []int{http.StatusOK}
	}
	timeout := timeoutOr(req, 30*time.Second)

	dialer := &net.Dialer{Timeout: timeout}
	if h.guard != nil {
		target, err := url.Parse(cfg.URL)
		if err != nil {
			result.Message = fmt.Sprintf("Invalid URL: %v", err)
			return result, nil
		}
		if err := h.guard.CheckHost(target.Hostname()); err != nil {
			result.Message = fmt.Sprintf("Target refused: %v", err)
			return result, nil
		}
		dialer.Control = h.guard.Control
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.DialContext(ctx, networkFor(network, cfg.IPVersion), addr)
			},
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.IgnoreTLS,
			},
		},
	}

	if cfg.FollowRedirects != nil && !*cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var body io.Reader
	if cfg.Body != "" {
		body = strings.NewReader(cfg.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, cfg.URL, body)
	if err != nil {
		result.Message = fmt.Sprintf("Failed to create request: %v", err)
		return result, nil
	}
	for key, value := range cfg.Headers {
		httpReq.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	latency := setLatency(result, time.Since(start))
	if err != nil {
		result.Message = fmt.Sprintf("Request failed: %v", err)
		return result, nil
	}
	defer resp.Body.Close()

	result.SetMeta("statusCode", resp.StatusCode)

	statusOK := false
	for _, code := range accepted {
		if resp.StatusCode == code {
			statusOK = true
			break
		}
	}
	if !statusOK {
		result.Message = fmt.Sprintf("Unexpected status code: %d", resp.StatusCode)
		return result, nil
	}

	if cfg.Keyword != "" {
		bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxKeywordBody))
		if err != nil {
			result.Message = fmt.Sprintf("Failed to read response body: %v", err)
			return result, nil
		}

		found := strings.Contains(string(bodyBytes), cfg.Keyword)
		if cfg.InvertKeyword && found {
			result.Message = fmt.Sprintf("Keyword '%s' found (inverted check)", cfg.Keyword)
			return result, nil
		}
		if !cfg.InvertKeyword && !found {
			result.Message = fmt.Sprintf("Keyword '%s' not found", cfg.Keyword)
			return result, nil
		}
	}

	result.Status = models.StatusUp
	result.Message = fmt.Sprintf("HTTP %d - %dms", resp.StatusCode, latency)
	return result, nil
}
