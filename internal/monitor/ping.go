package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ping/ping"

	"github.com/tekuonline/uptivalab/internal/models"
)

// PingProbe performs ICMP ping checks
type PingProbe struct{}

func init() {
	registerBuiltin(&PingProbe{})
}

func (p *PingProbe) Kind() models.Kind {
	return models.KindPing
}

func (p *PingProbe) Check(ctx context.Context, req *CheckRequest) (*models.CheckResult, error) {
	cfg, ok := req.Config.(*PingConfig)
	if !ok {
		return nil, fmt.Errorf("ping probe: unexpected config %T", req.Config)
	}
	result := newResult(req)

	if cfg.Host == "" {
		result.Message = "No host specified"
		return result, nil
	}

	pinger, err := ping.NewPinger(cfg.Host)
	if err != nil {
		result.Message = fmt.Sprintf("Failed to create pinger: %v", err)
		return result, nil
	}

	pinger.Count = 4
	if cfg.PacketCount > 0 {
		pinger.Count = cfg.PacketCount
	}
	if cfg.PacketSize > 0 {
		pinger.Size = cfg.PacketSize
	}
	pinger.Timeout = timeoutOr(req, 30*time.Second)
	// Unprivileged (UDP) unless raw sockets were requested
	pinger.SetPrivileged(cfg.Privileged)

	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case <-ctx.Done():
		pinger.Stop()
		<-done
		result.Message = "Ping cancelled"
		return result, nil
	case err := <-done:
		if err != nil {
			result.Message = fmt.Sprintf("Ping failed: %v", err)
			return result, nil
		}
	}

	stats := pinger.Statistics()
	result.SetMeta("packetLoss", stats.PacketLoss)

	if stats.PacketsRecv == 0 {
		setLatency(result, stats.MaxRtt)
		result.Message = "No packets received (100% packet loss)"
		return result, nil
	}

	avg := setLatency(result, stats.AvgRtt)

	// More than half the packets lost counts as down
	if stats.PacketLoss > 50 {
		result.Message = fmt.Sprintf("High packet loss: %.1f%% - %dms avg", stats.PacketLoss, avg)
		return result, nil
	}

	result.Status = models.StatusUp
	result.Message = fmt.Sprintf("Ping OK - %dms avg (loss: %.1f%%)", avg, stats.PacketLoss)
	return result, nil
}
