package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shem-project/shem/internal/config"
	"github.com/shem-project/shem/internal/db"
	"github.com/shem-project/shem/internal/metrics"
	"github.com/shem-project/shem/internal/monitor"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func newTestRuntime(t *testing.T, cfg *config.Config) *monitor.Runtime {
	t.Helper()
	database, err := db.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	rt, err := monitor.OpenWithDB(context.Background(), cfg, database, metrics.New())
	if err != nil {
		database.Close()
		t.Fatalf("OpenWithDB() error = %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Server.GRPCAddr = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = time.Second
	cfg.Simulation.MalfunctionRate = 0
	return cfg
}

func TestNewRequiresConfigAndRuntime(t *testing.T) {
	if _, err := New(nil, zerolog.Nop(), nil, Options{}); err == nil {
		t.Fatal("New() with nil config should fail")
	}
	if _, err := New(config.DefaultConfig(), zerolog.Nop(), nil, Options{}); err == nil {
		t.Fatal("New() with nil runtime should fail")
	}
}

func TestNewDefaultsFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Server.GRPCAddr = ""
	daemon, err := New(cfg, zerolog.Nop(), newTestRuntime(t, cfg), Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if daemon.opts.HTTPAddr != "127.0.0.1:0" {
		t.Fatalf("HTTPAddr = %q, want 127.0.0.1:0", daemon.opts.HTTPAddr)
	}
	if daemon.grpcServer != nil {
		t.Fatal("gRPC server should be disabled with an empty address")
	}
	if daemon.Scheduler() != nil {
		t.Fatal("scheduler should be disabled by default")
	}
}

func TestRunServesAndShutsDown(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.Interval = time.Hour

	daemon, err := New(cfg, zerolog.Nop(), newTestRuntime(t, cfg), Options{Version: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- daemon.Run(ctx)
	}()

	select {
	case <-daemon.Ready():
	case err := <-done:
		t.Fatalf("Run() returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not become ready")
	}

	resp, err := http.Get("http://" + daemon.HTTPAddr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode /health: %v", err)
	}
	resp.Body.Close()
	if body["status"] != "ok" {
		t.Fatalf("/health status = %q, want ok", body["status"])
	}

	conn, err := grpc.NewClient(daemon.GRPCAddr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient() error = %v", err)
	}
	defer conn.Close()

	checkCtx, checkCancel := context.WithTimeout(ctx, 5*time.Second)
	defer checkCancel()
	hc, err := healthpb.NewHealthClient(conn).Check(checkCtx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health Check() error = %v", err)
	}
	if hc.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("health status = %v, want SERVING", hc.GetStatus())
	}

	if !daemon.Scheduler().Stats().Running {
		t.Fatal("scheduler should be running")
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}

	if daemon.Scheduler().Stats().Running {
		t.Fatal("scheduler should be stopped after shutdown")
	}
}

func TestCheckHealthReportsClosedDatabase(t *testing.T) {
	cfg := testConfig()
	rt := newTestRuntime(t, cfg)
	daemon, err := New(cfg, zerolog.Nop(), rt, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := daemon.updateHealth(context.Background()); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", got)
	}

	rt.DB.Close()
	if got := daemon.updateHealth(context.Background()); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %v, want NOT_SERVING", got)
	}
}
