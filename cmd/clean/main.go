// Command clean converts raw Etherscan and CoinGecko JSON into the processed
// transfer CSV, optionally loading the result into PostgreSQL or ClickHouse.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"cryptopunks-analysis/internal/cleaning"
	"cryptopunks-analysis/internal/config"
	"cryptopunks-analysis/internal/domain"
	"cryptopunks-analysis/internal/ingestion"
	"cryptopunks-analysis/internal/storage"
	"cryptopunks-analysis/internal/storage/backend"
)

func main() {
	envFile := flag.String("env-file", "", "Path to .env file (default ./.env)")
	rawDir := flag.String("raw-dir", "", "Raw data directory (default RAW_DATA_DIR)")
	outDir := flag.String("out-dir", "", "Processed data directory (default PROCESSED_DATA_DIR)")
	load := flag.String("load", "", "Also load the cleaned ledger into a store: postgres or clickhouse")
	flag.Parse()

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

	if *rawDir == "" {
		*rawDir = cfg.RawDataDir
	}
	if *outDir == "" {
		*outDir = cfg.ProcessedDataDir
	}

	// Transfers
	var raw []ingestion.RawTransfer
	if err := ingestion.LoadJSON(filepath.Join(*rawDir, ingestion.TransfersFile), &raw); err != nil {
		logger.WithError(err).Fatal("load raw transfers failed")
	}
	transfers, err := cleaning.CleanTransfers(raw)
	if err != nil {
		logger.WithError(err).Fatal("clean transfers failed")
	}

	// Price is optional; without it ValueUSD stays empty.
	var quote *domain.PriceQuote
	var rawPrice ingestion.RawPrice
	pricePath := filepath.Join(*rawDir, ingestion.PriceFile)
	if err := ingestion.LoadJSON(pricePath, &rawPrice); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.WithError(err).Fatal("load raw price failed")
		}
		logger.WithField("path", pricePath).Warn("no price file, USD values left empty")
	} else {
		quote, err = cleaning.CleanPrice(rawPrice, cfg.PriceCoin, cfg.PriceCurrency)
		if err != nil {
			logger.WithError(err).Fatal("clean price failed")
		}
	}

	merged := cleaning.Merge(transfers, quote)
	path, err := cleaning.SaveCSV(*outDir, cleaning.ProcessedFile, merged)
	if err != nil {
		logger.WithError(err).Fatal("save processed csv failed")
	}
	logger.WithFields(logrus.Fields{"rows": len(merged), "path": path}).Info("processed ledger saved")

	if *load == "" {
		return
	}

	ctx := context.Background()
	store, err := backend.Open(ctx, backend.Options{
		Kind:          *load,
		PostgresDSN:   cfg.PostgresDSN,
		ClickHouseDSN: cfg.ClickHouseDSN,
		Logger:        logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("open store failed")
	}
	defer store.Close()
	if m := store.Migrations; m != nil {
		logger.WithFields(logrus.Fields{
			"store":   store.Kind,
			"applied": len(m.Applied),
			"skipped": len(m.Skipped),
		}).Info("schema migrations checked")
	}

	if err := store.InsertBulk(ctx, merged); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			logger.WithField("store", store.Kind).Fatal("ledger already loaded (duplicate transfers)")
		}
		logger.WithError(err).Fatal("load into store failed")
	}
	logger.WithFields(logrus.Fields{"rows": len(merged), "store": store.Kind}).Info("ledger loaded")
}
