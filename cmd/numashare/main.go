package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/23skdu/numatopo/internal/logging"
	"github.com/23skdu/numatopo/internal/numa"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "numashare: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := LoadConfig(".env")
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("numashare", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Uint64Var(&cfg.Total, "total", cfg.Total, "Total bytes to distribute across NUMA nodes")
	fs.Uint64Var(&cfg.Granule, "granule", cfg.Granule, "Granule every share is aligned to")
	var ignore uint
	fs.UintVar(&ignore, "ignore", uint(cfg.IgnoreNodes), "Number of highest-numbered nodes to exclude")
	var fake uint
	fs.UintVar(&fake, "fake-nodes", uint(cfg.FakeNodes), "Fake a topology with this many nodes (>1)")
	fs.BoolVar(&cfg.Enabled, "numa", cfg.Enabled, "Enable NUMA-aware placement")
	fs.StringVar(&cfg.SysfsRoot, "sysfs", cfg.SysfsRoot, "sysfs mount point")
	fs.BoolVar(&cfg.JSON, "json", cfg.JSON, "Output the plan as JSON")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address until interrupted")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json or console")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if ignore > numa.MaxNodes || fake > numa.MaxNodes {
		return ErrInvalidFakeNodes
	}
	cfg.IgnoreNodes = uint32(ignore) //nolint:gosec // G115 - bounded above
	cfg.FakeNodes = uint32(fake)     //nolint:gosec // G115 - bounded above

	if err := ValidateConfig(&cfg); err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.Config{
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
		Output: stderr,
	})
	if err != nil {
		return err
	}

	topo := numa.Initialize(cfg.Config, nil, logger)
	plan := BuildPlan(topo, &cfg)

	if cfg.JSON {
		err = WriteJSON(stdout, plan)
	} else {
		err = WriteText(stdout, plan)
	}
	if err != nil {
		return err
	}

	if cfg.MetricsAddr == "" {
		return nil
	}

	lis, err := net.Listen("tcp", cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.MetricsAddr, err)
	}
	return serveMetrics(ctx, lis, logger)
}

// serveMetrics serves /metrics on lis until ctx is canceled.
func serveMetrics(ctx context.Context, lis net.Listener, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("address", lis.Addr().String()).Msg("Starting metrics server")
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info().Msg("Stopping metrics server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
