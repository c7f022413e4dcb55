// Package cleaning turns raw Etherscan and CoinGecko payloads into the
// canonical transfer ledger consumed by analytics.
package cleaning

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cryptopunks-analysis/internal/domain"
	"cryptopunks-analysis/internal/ingestion"
)

// ErrInvalidRecord is returned for raw records that cannot be converted.
var ErrInvalidRecord = errors.New("invalid record")

// weiExponent converts wei to ether (1 ETH = 10^18 wei).
const weiExponent = 18

// CleanTransfers converts raw Etherscan transfers. Values become ETH,
// timestamps become UTC, from/to become Sender/Receiver, and each transfer
// gets its position among transfers sharing the same hash as EventIndex.
// The result is in chain order (see SortTransfers).
func CleanTransfers(raw []ingestion.RawTransfer) ([]*domain.Transfer, error) {
	out := make([]*domain.Transfer, 0, len(raw))
	perHash := make(map[string]int)

	for i, r := range raw {
		ts, err := parseUnix(r.TimeStamp)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d timeStamp %q: %v", ErrInvalidRecord, i+1, r.TimeStamp, err)
		}

		value, err := weiToEther(r.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d value %q: %v", ErrInvalidRecord, i+1, r.Value, err)
		}

		var block int64
		if r.BlockNumber != "" {
			block, err = strconv.ParseInt(r.BlockNumber, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d blockNumber %q: %v", ErrInvalidRecord, i+1, r.BlockNumber, err)
			}
		}

		hash := strings.ToLower(r.Hash)
		idx := perHash[hash]
		perHash[hash]++

		out = append(out, &domain.Transfer{
			TxHash:      hash,
			EventIndex:  idx,
			BlockNumber: block,
			Timestamp:   ts,
			Sender:      strings.ToLower(r.From),
			Receiver:    strings.ToLower(r.To),
			Value:       value,
		})
	}

	SortTransfers(out)
	return out, nil
}

// CleanPrice converts a CoinGecko quote for coin in currency.
func CleanPrice(raw ingestion.RawPrice, coin, currency string) (*domain.PriceQuote, error) {
	price, ok := raw[currency]
	if !ok {
		return nil, fmt.Errorf("%w: no %q price", ErrInvalidRecord, currency)
	}

	quote := &domain.PriceQuote{
		Coin:         coin,
		Currency:     currency,
		Price:        price,
		MarketCap:    raw[currency+"_market_cap"],
		Volume24h:    raw[currency+"_24h_vol"],
		Change24hPct: raw[currency+"_24h_change"],
	}
	if updated, ok := raw["last_updated_at"]; ok {
		quote.LastUpdated = time.Unix(int64(updated), 0).UTC()
	}
	return quote, nil
}

// Merge joins transfers with quote on calendar date. Transfers on the
// quote's date get ValueUSD = Value * Price; others keep a nil ValueUSD.
// The input slice is not modified.
func Merge(transfers []*domain.Transfer, quote *domain.PriceQuote) []*domain.Transfer {
	out := make([]*domain.Transfer, len(transfers))

	var quoteDate string
	var price decimal.Decimal
	if quote != nil && !quote.LastUpdated.IsZero() {
		quoteDate = domain.DateOf(quote.LastUpdated)
		price = decimal.NewFromFloat(quote.Price)
	}

	for i, t := range transfers {
		c := *t
		c.ValueUSD = nil
		if quoteDate != "" && domain.DateOf(t.Timestamp) == quoteDate {
			usd := decimal.NewFromFloat(t.Value).Mul(price).InexactFloat64()
			c.ValueUSD = &usd
		}
		out[i] = &c
	}
	return out
}

func weiToEther(raw string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative value")
	}
	return d.Shift(-weiExponent).InexactFloat64(), nil
}

func parseUnix(raw string) (time.Time, error) {
	secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0).UTC(), nil
}
