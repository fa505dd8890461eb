package monitor

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/tekuonline/uptivalab/internal/models"
)

// GRPCProbe queries the standard gRPC health service
type GRPCProbe struct{}

func init() {
	registerBuiltin(&GRPCProbe{})
}

func (g *GRPCProbe) Kind() models.Kind {
	return models.KindGRPC
}

func (g *GRPCProbe) Check(ctx context.Context, req *CheckRequest) (*models.CheckResult, error) {
	cfg, ok := req.Config.(*GRPCConfig)
	if !ok {
		return nil, fmt.Errorf("grpc probe: unexpected config %T", req.Config)
	}
	result := newResult(req)

	if cfg.Target == "" {
		result.Message = "No target specified"
		return result, nil
	}

	creds := insecure.NewCredentials()
	if cfg.TLS {
		creds = credentials.NewTLS(&tls.Config{InsecureSkipVerify: cfg.Insecure})
	}

	conn, err := grpc.NewClient(cfg.Target, grpc.WithTransportCredentials(creds))
	if err != nil {
		result.Message = fmt.Sprintf("Failed to create gRPC client: %v", err)
		return result, nil
	}
	defer conn.Close()

	checkCtx, cancel := context.WithTimeout(ctx, timeoutOr(req, 30*time.Second))
	defer cancel()

	start := time.Now()
	resp, err := grpc_health_v1.NewHealthClient(conn).Check(checkCtx, &grpc_health_v1.HealthCheckRequest{
		Service: cfg.Service,
	})
	latency := setLatency(result, time.Since(start))
	if err != nil {
		result.Message = fmt.Sprintf("Health check failed: %v", err)
		return result, nil
	}

	status := resp.GetStatus()
	result.SetMeta("servingStatus", status.String())
	if status != grpc_health_v1.HealthCheckResponse_SERVING {
		result.Message = fmt.Sprintf("Service is %s", status)
		return result, nil
	}

	result.Status = models.StatusUp
	result.Message = fmt.Sprintf("SERVING - %dms", latency)
	return result, nil
}
