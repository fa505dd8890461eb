package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/client"

	"github.com/tekuonline/uptivalab/internal/models"
)

// DockerProbe checks if a Docker container is running and healthy
type DockerProbe struct{}

func init() {
	registerBuiltin(&DockerProbe{})
}

func (d *DockerProbe) Kind() models.Kind {
	return models.KindDocker
}

func (d *DockerProbe) Check(ctx context.Context, req *CheckRequest) (*models.CheckResult, error) {
	cfg, ok := req.Config.(*DockerConfig)
	if !ok {
		return nil, fmt.Errorf("docker probe: unexpected config %T", req.Config)
	}
	result := newResult(req)

	if cfg.Container == "" {
		result.Message = "No container name specified"
		return result, nil
	}

	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if cfg.DockerHost != "" {
		opts = append(opts, client.WithHost(cfg.DockerHost))
	} else {
		opts = append(opts, client.FromEnv)
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		result.Message = fmt.Sprintf("Failed to create Docker client: %v", err)
		return result, nil
	}
	defer cli.Close()

	checkCtx, cancel := context.WithTimeout(ctx, timeoutOr(req, 30*time.Second))
	defer cancel()

	start := time.Now()
	info, err := cli.ContainerInspect(checkCtx, cfg.Container)
	latency := setLatency(result, time.Since(start))
	if err != nil {
		result.Message = fmt.Sprintf("Container not found: %v", err)
		return result, nil
	}

	if info.State == nil || !info.State.Running {
		state := "unknown"
		if info.State != nil {
			state = info.State.Status
		}
		result.Message = fmt.Sprintf("Container is %s", state)
		return result, nil
	}

	if info.State.Health != nil {
		switch health := info.State.Health.Status; health {
		case "healthy", "":
			result.Message = fmt.Sprintf("Container is running and healthy - %dms", latency)
		case "starting":
			result.Status = models.StatusPending
			result.Message = fmt.Sprintf("Container is starting (health: %s)", health)
			return result, nil
		default:
			result.Message = fmt.Sprintf("Container is unhealthy (health: %s)", health)
			return result, nil
		}
	} else {
		result.Message = fmt.Sprintf("Container is running - %dms", latency)
	}

	result.Status = models.StatusUp
	return result, nil
}
