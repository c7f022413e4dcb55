package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// SourceCoinGecko labels CoinGecko requests in logs and metrics.
const SourceCoinGecko = "coingecko"

// RawPrice is the per-coin object of CoinGecko's simple/price response,
// e.g. {"usd": 3120.5, "usd_market_cap": ..., "last_updated_at": 1700000000}.
type RawPrice map[string]float64

// PriceFetcher returns the current spot quote of coin in currency.
type PriceFetcher interface {
	FetchPrice(ctx context.Context, coin, currency string) (RawPrice, error)
}

// ErrCoinNotFound is returned when the response has no entry for the coin.
type ErrCoinNotFound struct {
	Coin string
}

func (e *ErrCoinNotFound) Error() string {
	return fmt.Sprintf("coingecko: no price for %q", e.Coin)
}

// CoinGeckoClient fetches spot prices.
type CoinGeckoClient struct {
	http    *HTTPClient
	baseURL string
	apiKey  string
}

// NewCoinGeckoClient creates a client; apiKey may be empty for the public tier.
func NewCoinGeckoClient(baseURL, apiKey string, httpClient *HTTPClient) *CoinGeckoClient {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &CoinGeckoClient{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// FetchPrice implements PriceFetcher.
func (c *CoinGeckoClient) FetchPrice(ctx context.Context, coin, currency string) (RawPrice, error) {
	q := url.Values{}
	q.Set("ids", coin)
	q.Set("vs_currencies", currency)
	q.Set("include_market_cap", "true")
	q.Set("include_24hr_vol", "true")
	q.Set("include_24hr_change", "true")
	q.Set("include_last_updated_at", "true")

	var header http.Header
	if c.apiKey != "" {
		header = http.Header{"X-Cg-Demo-Api-Key": []string{c.apiKey}}
	}

	var resp map[string]RawPrice
	if err := c.http.getJSON(ctx, SourceCoinGecko, c.baseURL+"/simple/price?"+q.Encode(), header, &resp); err != nil {
		return nil, err
	}

	price, ok := resp[coin]
	if !ok || len(price) == 0 {
		return nil, &ErrCoinNotFound{Coin: coin}
	}
	return price, nil
}

var _ PriceFetcher = (*CoinGeckoClient)(nil)
