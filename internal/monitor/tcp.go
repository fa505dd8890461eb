package monitor

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/tekuonline/uptivalab/internal/models"
)

// TCPProbe checks if a TCP port is open
type TCPProbe struct{}

func init() {
	registerBuiltin(&TCPProbe{})
}

func (t *TCPProbe) Kind() models.Kind {
	return models.KindTCP
}

func (t *TCPProbe) Check(ctx context.Context, req *CheckRequest) (*models.CheckResult, error) {
	cfg, ok := req.Config.(*TCPConfig)
	if !ok {
		return nil, fmt.Errorf("tcp probe: unexpected config %T", req.Config)
	}
	result := newResult(req)

	if cfg.Host == "" {
		result.Message = "No host specified"
		return result, nil
	}

	port := cfg.Port
	if port == 0 {
		port = 80
	}
	address := net.JoinHostPort(cfg.Host, strconv.Itoa(port))

	dialer := &net.Dialer{Timeout: timeoutOr(req, 30*time.Second)}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, networkFor("tcp", cfg.IPVersion), address)
	latency := setLatency(result, time.Since(start))
	if err != nil {
		result.Message = fmt.Sprintf("Connection failed: %v", err)
		return result, nil
	}
	defer conn.Close()

	result.Status = models.StatusUp
	result.Message = fmt.Sprintf("Port %d is open - %dms", port, latency)
	return result, nil
}
