package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var metricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run background maintenance (cache eviction, store stat gauges) until interrupted",
	Long: `Serve starts the periodic maintenance ticker that evicts expired
cache entries and refreshes the store-size gauges, and exposes them on
a Prometheus /metrics endpoint. It runs until interrupted with
SIGINT/SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9091", "address to serve /metrics on")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	runner := startMaintenance(a)
	runner.Start(ctx)
	defer runner.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	httpSrv := &http.Server{Addr: metricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	a.logger.Info(ctx, "archivecli serving",
		zap.String("metrics_addr", metricsAddr),
		zap.Duration("maintenance_interval", a.cfg.Maintenance.Interval.Duration()))

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
