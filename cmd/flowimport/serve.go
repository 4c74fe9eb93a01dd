package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/flowimport/internal/core"
	"github.com/JonMunkholm/flowimport/internal/store"
	"github.com/JonMunkholm/flowimport/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP import trigger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// serve runs the HTTP server until ctx ends, then shuts down gracefully.
func (a *app) serve(ctx context.Context) error {
	pool, err := a.openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	var (
		serverOpts  = []web.Option{web.WithImportTimeout(a.cfg.Import.Timeout)}
		serviceOpts []core.ServiceOption
	)
	if a.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		serviceOpts = append(serviceOpts, core.WithMetrics(core.NewMetrics(reg)))
		serverOpts = append(serverOpts, web.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	opts, err := a.serviceOptions(serviceOpts...)
	if err != nil {
		return err
	}
	svc := core.NewService(store.New(pool), opts...)
	limiter := core.NewImportLimiter(a.cfg.Import.MaxConcurrent, a.cfg.Import.MaxWaitTime)
	server := web.NewServer(svc, limiter, serverOpts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(a.cfg.Server)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...", "active_imports", limiter.ActiveCount())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("imports did not complete in time", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}
