package domain

import "time"

// PriceQuote is a spot price snapshot for the settlement asset.
type PriceQuote struct {
	Coin         string    // e.g. "ethereum"
	Currency     string    // e.g. "usd"
	Price        float64   // spot price in Currency
	MarketCap    float64   // market capitalisation in Currency
	Volume24h    float64   // 24h traded volume in Currency
	Change24hPct float64   // 24h price change (%)
	LastUpdated  time.Time // quote time (UTC)
}
