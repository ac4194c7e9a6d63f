// Command intersection runs a signal controller for one four-way intersection
// with an operator console on stdin and a Prometheus metrics endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/anggasct/trafficflow/pkg/allocator"
	"github.com/anggasct/trafficflow/pkg/demand"
	logutil "github.com/anggasct/trafficflow/pkg/logging"
	"github.com/anggasct/trafficflow/pkg/observers"
	"github.com/anggasct/trafficflow/pkg/scheduler"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	opts := NewOptions()
	opts.AddFlags(pflag.CommandLine)
	pflag.Parse()

	if err := opts.Complete(); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	logger, err := logutil.NewLogger(logutil.Options{Verbosity: opts.LogVerbosity, Development: opts.LogDevelopment})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	setupLog := logger.WithName("setup")

	flags := make(map[string]any)
	pflag.VisitAll(func(f *pflag.Flag) {
		flags[f.Name] = f.Value
	})
	setupLog.Info("Flags processed", "flags", flags)

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	board := demand.NewBoard()
	if err := board.Update(opts.InitialDemand()); err != nil {
		setupLog.Error(err, "Invalid initial demand")
		return err
	}

	allocCfg, err := opts.AllocatorConfig()
	if err != nil {
		return err
	}
	schedCfg, err := opts.SchedulerConfig()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := observers.NewMetricsObserver()
	registry.MustRegister(metrics)

	s, err := scheduler.New(*schedCfg, board,
		scheduler.WithAllocator(allocator.New(allocCfg)),
		scheduler.WithLogger(logger),
		scheduler.WithObserver(observers.NewLoggingObserver(logger, "signals")),
		scheduler.WithObserver(metrics),
	)
	if err != nil {
		setupLog.Error(err, "Failed to create scheduler")
		return err
	}

	operator := newConsole(s, board, os.Stdout, opts.StatusFormat)
	s.AddObserver(&statusPrinter{console: operator, every: uint64(opts.StatusEvery)})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Run(ctx)
	})
	g.Go(func() error {
		return operator.Run(ctx, os.Stdin)
	})
	if opts.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(ctx, logger, opts.MetricsAddr, registry)
		})
	}

	setupLog.Info("Intersection controller started", "budget", allocCfg.Budget(), "metricsAddr", opts.MetricsAddr)
	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		setupLog.Error(err, "Intersection controller failed")
		return err
	}
	setupLog.Info("Intersection controller stopped")
	return nil
}

// serveMetrics exposes the registry on /metrics until ctx is cancelled.
func serveMetrics(ctx context.Context, logger logr.Logger, addr string, registry *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error(err, "Metrics server shutdown failed")
		}
	}()

	logger.Info("Metrics server listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
