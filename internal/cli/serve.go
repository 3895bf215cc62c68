package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shem-project/shem/internal/daemon"
	"github.com/shem-project/shem/internal/logging"
	"github.com/spf13/cobra"
)

var (
	serveHTTPAddr string
	serveGRPCAddr string
	serveSchedule bool
	serveInterval time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHTTPAddr, "http", "", "HTTP listen address (overrides server.http_addr)")
	serveCmd.Flags().StringVar(&serveGRPCAddr, "grpc", "", "gRPC health listen address (overrides server.grpc_addr)")
	serveCmd.Flags().BoolVar(&serveSchedule, "schedule", false, "simulate a period on every scheduler interval")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 0, "scheduler interval (overrides scheduler.interval)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the HTTP API, the Prometheus metrics endpoint and the gRPC health
service until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if serveSchedule {
			cfg.Scheduler.Enabled = true
		}
		if serveInterval > 0 {
			cfg.Scheduler.Interval = serveInterval
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		d, err := daemon.New(cfg, logging.Component("daemon"), rt, daemon.Options{
			HTTPAddr: serveHTTPAddr,
			GRPCAddr: serveGRPCAddr,
			Version:  Version,
		})
		if err != nil {
			return err
		}

		go announce(ctx, d)
		return d.Run(ctx)
	},
}

func announce(ctx context.Context, d *daemon.Daemon) {
	select {
	case <-ctx.Done():
		return
	case <-d.Ready():
	}
	if IsJSONOutput() || IsJSONLOutput() {
		return
	}
	fmt.Fprintf(os.Stderr, "Serving HTTP on %s\n", d.HTTPAddr())
	if addr := d.GRPCAddr(); addr != nil {
		fmt.Fprintf(os.Stderr, "Serving gRPC health on %s\n", addr)
	}
	if d.Scheduler() != nil {
		fmt.Fprintln(os.Stderr, "Scheduler enabled")
	}
}
