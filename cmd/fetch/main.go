// Command fetch downloads CryptoPunks transfers from Etherscan and the ETH
// spot price from CoinGecko, and saves both as raw JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"cryptopunks-analysis/internal/cache"
	"cryptopunks-analysis/internal/config"
	"cryptopunks-analysis/internal/ingestion"
)

func main() {
	envFile := flag.String("env-file", "", "Path to .env file (default ./.env)")
	outDir := flag.String("out-dir", "", "Raw data directory (default RAW_DATA_DIR)")
	skipPrice := flag.Bool("skip-price", false, "Do not fetch the CoinGecko spot price")
	pageSize := flag.Int("page-size", ingestion.DefaultPageSize, "Transfers requested per Etherscan page")
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

	if cfg.EtherscanAPIKey == "" {
		logger.Fatal("ETHERSCAN_API_KEY is required")
	}
	if *outDir == "" {
		*outDir = cfg.RawDataDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := ingestion.NewHTTPClient(
		ingestion.WithTimeout(cfg.HTTPTimeout),
		ingestion.WithMaxRetries(cfg.MaxRetries),
		ingestion.WithRetryDelay(cfg.RetryBackoff),
		ingestion.WithRateLimit(cfg.EtherscanRateLimit),
		ingestion.WithLogger(logger),
	)

	// Transfers
	etherscan := ingestion.NewEtherscanClient(cfg.EtherscanBaseURL, cfg.EtherscanAPIKey, httpClient, *pageSize)
	log := logger.WithField("contract", cfg.ContractAddress)
	log.Info("fetching transfers")
	transfers, err := etherscan.FetchTransfers(ctx, cfg.ContractAddress)
	if err != nil {
		log.WithError(err).Fatal("fetch transfers failed")
	}
	path, err := ingestion.SaveJSON(*outDir, ingestion.TransfersFile, transfers)
	if err != nil {
		log.WithError(err).Fatal("save transfers failed")
	}
	log.WithFields(logrus.Fields{"count": len(transfers), "path": path}).Info("transfers saved")

	if *skipPrice {
		return
	}

	// Price
	var prices ingestion.PriceFetcher = ingestion.NewCoinGeckoClient(cfg.CoinGeckoBaseURL, cfg.CoinGeckoAPIKey, httpClient)
	if cfg.RedisAddr != "" {
		rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rclient.Close()
		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unavailable, fetching price without cache")
		} else {
			priceCache, err := cache.NewPriceCache(rclient, prices, cfg.PriceCacheTTL, logger)
			if err != nil {
				logger.WithError(err).Fatal("failed to create price cache")
			}
			prices = priceCache
		}
	}

	price, err := prices.FetchPrice(ctx, cfg.PriceCoin, cfg.PriceCurrency)
	if err != nil {
		logger.WithError(err).Fatal("fetch price failed")
	}
	path, err = ingestion.SaveJSON(*outDir, ingestion.PriceFile, price)
	if err != nil {
		logger.WithError(err).Fatal("save price failed")
	}
	logger.WithFields(logrus.Fields{
		"coin":  cfg.PriceCoin,
		"price": price[cfg.PriceCurrency],
		"path":  path,
	}).Info("price saved")
}
