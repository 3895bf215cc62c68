// Package daemon runs the long-lived `shem serve` process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shem-project/shem/internal/api"
	"github.com/shem-project/shem/internal/config"
	"github.com/shem-project/shem/internal/monitor"
	"github.com/shem-project/shem/internal/scheduler"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Options configure the daemon runtime.
type Options struct {
	// HTTPAddr overrides server.http_addr.
	HTTPAddr string

	// GRPCAddr overrides server.grpc_addr.
	GRPCAddr string

	Version string
}

// Daemon serves the HTTP API and the gRPC health service.
type Daemon struct {
	cfg     *config.Config
	logger  zerolog.Logger
	opts    Options
	runtime *monitor.Runtime

	limiter    *api.RateLimiter
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	scheduler  *scheduler.Scheduler

	mu       sync.RWMutex
	httpAddr net.Addr
	grpcAddr net.Addr
	ready    chan struct{}
}

// New constructs a daemon over a wired runtime.
func New(cfg *config.Config, logger zerolog.Logger, rt *monitor.Runtime, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if rt == nil || rt.Service == nil {
		return nil, errors.New("runtime is required")
	}
	if opts.HTTPAddr == "" {
		opts.HTTPAddr = cfg.Server.HTTPAddr
	}
	if opts.GRPCAddr == "" {
		opts.GRPCAddr = cfg.Server.GRPCAddr
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	limiter := newRateLimiter(cfg.Server.RateLimit)
	server := api.NewServer(rt.Service,
		api.WithMetrics(rt.Metrics),
		api.WithRateLimiter(limiter),
		api.WithCORSOrigins(cfg.Server.CORSOrigins),
	)

	d := &Daemon{
		cfg:     cfg,
		logger:  logger,
		opts:    opts,
		runtime: rt,
		limiter: limiter,
		httpServer: &http.Server{
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		ready: make(chan struct{}),
	}

	if opts.GRPCAddr != "" {
		d.health = health.NewServer()
		d.grpcServer = grpc.NewServer(
			grpc.ChainUnaryInterceptor(limiter.UnaryServerInterceptor()),
			grpc.ChainStreamInterceptor(limiter.StreamServerInterceptor()),
		)
		healthpb.RegisterHealthServer(d.grpcServer, d.health)
	}

	if cfg.Scheduler.Enabled {
		d.scheduler = scheduler.New(scheduler.Config{Interval: cfg.Scheduler.Interval}, rt.Service)
	}

	return d, nil
}

func newRateLimiter(cfg config.RateLimitConfig) *api.RateLimiter {
	opts := []api.RateLimiterOption{api.WithEnabled(cfg.Enabled)}
	if cfg.RequestsPerSecond > 0 && cfg.Burst > 0 {
		opts = append(opts, api.WithGlobalLimit(api.Limit{
			Rate:  cfg.RequestsPerSecond,
			Burst: cfg.Burst,
		}))
	}
	return api.NewRateLimiter(opts...)
}

// Run starts all servers and blocks until the context is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	httpListener, err := net.Listen("tcp", d.opts.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.opts.HTTPAddr, err)
	}

	var grpcListener net.Listener
	if d.grpcServer != nil {
		grpcListener, err = net.Listen("tcp", d.opts.GRPCAddr)
		if err != nil {
			httpListener.Close()
			return fmt.Errorf("failed to listen on %s: %w", d.opts.GRPCAddr, err)
		}
	}

	d.mu.Lock()
	d.httpAddr = httpListener.Addr()
	if grpcListener != nil {
		d.grpcAddr = grpcListener.Addr()
	}
	d.mu.Unlock()

	errCh := make(chan error, 2)

	d.logger.Info().
		Str("http", httpListener.Addr().String()).
		Str("version", d.opts.Version).
		Msg("shem HTTP server starting")
	go func() {
		if err := d.httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if d.grpcServer != nil {
		d.logger.Info().Str("grpc", grpcListener.Addr().String()).Msg("shem gRPC health server starting")
		go func() {
			if err := d.grpcServer.Serve(grpcListener); err != nil {
				errCh <- fmt.Errorf("gRPC server error: %w", err)
			}
		}()
	}

	checkCtx, stopChecks := context.WithCancel(ctx)
	defer stopChecks()
	if d.health != nil {
		d.updateHealth(checkCtx)
		go d.watchHealth(checkCtx, healthInterval)
	}

	if d.scheduler != nil {
		if err := d.scheduler.Start(ctx); err != nil {
			d.logger.Warn().Err(err).Msg("failed to start scheduler")
		}
	}

	close(d.ready)

	var runErr error
	select {
	case <-ctx.Done():
		d.logger.Info().Msg("shem shutting down...")
	case runErr = <-errCh:
		d.logger.Error().Err(runErr).Msg("server failed, shutting down")
	}

	d.shutdown()
	d.logger.Info().Msg("shem shutdown complete")
	return runErr
}

func (d *Daemon) shutdown() {
	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil && !errors.Is(err, scheduler.ErrSchedulerNotRunning) {
			d.logger.Warn().Err(err).Msg("failed to stop scheduler")
		}
	}

	if d.health != nil {
		d.health.Shutdown()
	}

	timeout := d.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := d.httpServer.Shutdown(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}

	if d.grpcServer != nil {
		d.grpcServer.GracefulStop()
	}

	if usage := d.limiter.Usage(); usage.Denied > 0 {
		d.logger.Info().
			Int64("allowed", usage.Allowed).
			Int64("denied", usage.Denied).
			Msg("rate limiter summary")
	}
}

// Ready is closed once every listener is bound.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// HTTPAddr returns the bound HTTP address, nil before Run.
func (d *Daemon) HTTPAddr() net.Addr {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.httpAddr
}

// GRPCAddr returns the bound gRPC address, nil when disabled or before Run.
func (d *Daemon) GRPCAddr() net.Addr {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.grpcAddr
}

// Scheduler returns the periodic simulator, nil when disabled.
func (d *Daemon) Scheduler() *scheduler.Scheduler {
	return d.scheduler
}
