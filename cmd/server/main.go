// Command server serves the dashboard API over a transfer store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"cryptopunks-analysis/internal/analytics"
	"cryptopunks-analysis/internal/cleaning"
	"cryptopunks-analysis/internal/config"
	"cryptopunks-analysis/internal/dashboard"
	"cryptopunks-analysis/internal/observability"
	"cryptopunks-analysis/internal/pipeline"
	"cryptopunks-analysis/internal/server"
	"cryptopunks-analysis/internal/storage/backend"
)

// main initializes all dependencies and starts the HTTP server with graceful shutdown
func main() {
	envFile := flag.String("env-file", "", "Path to .env file (default ./.env)")
	source := flag.String("source", "csv", "Ledger source: csv, fixtures, postgres or clickhouse")
	input := flag.String("input", "", "Processed CSV for --source csv (default PROCESSED_DATA_DIR/"+cleaning.ProcessedFile+")")
	flag.Parse()

	if err := config.LoadEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Load and validate configuration from environment variables
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics("", reg)

	kind := *source
	if kind == "csv" || kind == "fixtures" {
		kind = backend.KindMemory
	}
	store, err := backend.Open(ctx, backend.Options{
		Kind:          kind,
		PostgresDSN:   cfg.PostgresDSN,
		ClickHouseDSN: cfg.ClickHouseDSN,
		Logger:        logger,
		Recorder:      metrics,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to open store")
	}
	defer store.Close()

	switch *source {
	case "fixtures":
		if err := pipeline.LoadFixtures(ctx, store); err != nil {
			logger.WithError(err).Fatal("failed to load fixtures")
		}
	case "csv":
		path := *input
		if path == "" {
			path = filepath.Join(cfg.ProcessedDataDir, cleaning.ProcessedFile)
		}
		transfers, err := cleaning.LoadTransfers(path)
		if err != nil {
			logger.WithError(err).Fatal("failed to load processed csv")
		}
		if err := store.InsertBulk(ctx, transfers); err != nil {
			logger.WithError(err).Fatal("failed to load processed csv")
		}
	}

	params := cfg.AnalysisParams()
	analyzer, err := analytics.New(analytics.Options{Params: &params, Logger: logger, Recorder: metrics})
	if err != nil {
		logger.WithError(err).Fatal("invalid analysis parameters")
	}

	// Create handlers with all dependencies injected
	h := &server.Handlers{
		Source:    store,
		Analyzer:  analyzer,
		Dashboard: dashboard.NewBuilder(),
		Metrics:   metrics,
		Logger:    logger,
		DevMode:   cfg.DevMode,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithField("addr", cfg.APIAddr).WithField("source", *source).Info("api server starting")
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("api server failed")
	}

	// Wait for server to be fully shut down
	if err := srv.WaitClosed(context.Background()); err != nil {
		logger.WithError(err).Warn("shutdown incomplete")
	}
}
