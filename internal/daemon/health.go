package daemon

import (
	"context"
	"fmt"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name for the monitor.
const ServiceName = "shem.Monitor"

const healthInterval = 15 * time.Second

// Check is the outcome of one dependency check.
type Check struct {
	Name    string
	Healthy bool
	Message string
}

// checkHealth pings the database.
func (d *Daemon) checkHealth(ctx context.Context) []Check {
	checks := []Check{{Name: "database", Healthy: true, Message: "database reachable"}}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := d.runtime.DB.PingContext(ctx); err != nil {
		checks[0].Healthy = false
		checks[0].Message = fmt.Sprintf("database error: %v", err)
	}
	return checks
}

// updateHealth publishes the check results to the gRPC health service.
func (d *Daemon) updateHealth(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for _, check := range d.checkHealth(ctx) {
		if !check.Healthy {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			d.logger.Warn().Str("check", check.Name).Str("message", check.Message).Msg("health check failed")
		}
	}
	d.health.SetServingStatus("", status)
	d.health.SetServingStatus(ServiceName, status)
	return status
}

func (d *Daemon) watchHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.updateHealth(ctx)
		}
	}
}
