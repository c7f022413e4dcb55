// Command analyze runs the analysis pipeline over the processed CSV, a
// database store or the built-in fixtures, and writes the report files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"cryptopunks-analysis/internal/analytics"
	"cryptopunks-analysis/internal/cleaning"
	"cryptopunks-analysis/internal/config"
	"cryptopunks-analysis/internal/pipeline"
	"cryptopunks-analysis/internal/storage/backend"
)

// Data sources accepted by --source.
const (
	sourceCSV      = "csv"
	sourceFixtures = "fixtures"
)

func main() {
	envFile := flag.String("env-file", "", "Path to .env file (default ./.env)")
	source := flag.String("source", sourceCSV, "Ledger source: csv, fixtures, postgres or clickhouse")
	useFixtures := flag.Bool("use-fixtures", false, "Shorthand for --source fixtures")
	input := flag.String("input", "", "Processed CSV for --source csv (default PROCESSED_DATA_DIR/"+cleaning.ProcessedFile+")")
	outputDir := flag.String("output-dir", "reports", "Output directory for generated files")
	reportTime := flag.String("report-time", "", "Fixed RFC3339 report timestamp for reproducible output")
	flag.Parse()

	if *useFixtures {
		*source = sourceFixtures
	}

	if err := config.LoadEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	ctx := context.Background()

	// Open the store the pipeline reads from. csv and fixtures are loaded
	// into memory first.
	kind := *source
	if kind == sourceCSV || kind == sourceFixtures {
		kind = backend.KindMemory
	}
	store, err := backend.Open(ctx, backend.Options{
		Kind:          kind,
		PostgresDSN:   cfg.PostgresDSN,
		ClickHouseDSN: cfg.ClickHouseDSN,
		Logger:        logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("open store failed")
	}
	defer store.Close()

	replay := fmt.Sprintf("go run ./cmd/analyze --source %s", *source)
	switch *source {
	case sourceFixtures:
		if err := pipeline.LoadFixtures(ctx, store); err != nil {
			logger.WithError(err).Fatal("load fixtures failed")
		}
		replay = "go run ./cmd/analyze --use-fixtures"
	case sourceCSV:
		path := *input
		if path == "" {
			path = filepath.Join(cfg.ProcessedDataDir, cleaning.ProcessedFile)
		}
		transfers, err := cleaning.LoadTransfers(path)
		if err != nil {
			logger.WithError(err).Fatal("load processed csv failed")
		}
		if err := store.InsertBulk(ctx, transfers); err != nil {
			logger.WithError(err).Fatal("load processed csv failed")
		}
		replay = fmt.Sprintf("go run ./cmd/analyze --source csv --input %s", path)
	}

	params := cfg.AnalysisParams()
	analyzer, err := analytics.New(analytics.Options{Params: &params, Logger: logger})
	if err != nil {
		logger.WithError(err).Fatal("invalid analysis parameters")
	}

	p := pipeline.New(store, analyzer, *outputDir).
		WithDataSource(*source).
		WithReplayCommand(replay).
		WithLogger(logger)
	if *reportTime != "" {
		fixed, err := time.Parse(time.RFC3339, *reportTime)
		if err != nil {
			logger.WithError(err).Fatal("invalid --report-time")
		}
		p = p.WithClock(func() time.Time { return fixed.UTC() })
	}

	res, err := p.Run(ctx)
	if err != nil {
		logger.WithError(err).Fatal("pipeline failed")
	}

	logger.WithFields(logrus.Fields{
		"output_dir":   *outputDir,
		"data_version": res.Manifest.DataVersion,
		"checks_ok":    res.Report.DataQuality.AllChecksPassed,
	}).Info("report generated")
	for _, f := range res.Manifest.Files {
		fmt.Printf("  - %s (%d bytes)\n", filepath.Join(*outputDir, f.Name), f.Bytes)
	}
	fmt.Printf("  - %s\n", filepath.Join(*outputDir, pipeline.ManifestFile))
}
