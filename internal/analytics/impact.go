package analytics

import (
	"fmt"
	"sort"

	"cryptopunks-analysis/internal/domain"
)

// MarketImpact is the output of the market impact pass.
type MarketImpact struct {
	Threshold   float64              // value at the whale quantile, global over the ledger
	WhaleTrades []domain.Transfer    // value >= Threshold, ledger order
	PriceImpact []domain.PriceImpact // one row per date, sorted by date
}

// AnalyzeMarketImpact isolates whale transfers and compares their daily mean
// value with the mean value of all transfers that day.
//
// A date without whale trades has ImpactRatio 1.0. A date with whale trades
// and a zero daily average yields *UndefinedScoreError keyed by that date.
func AnalyzeMarketImpact(ledger *Ledger, quantile float64) (*MarketImpact, error) {
	if !validQuantile(quantile) {
		return nil, &InvalidInputError{Column: "whale_quantile", Value: fmt.Sprint(quantile), Reason: "must be in [0, 1]"}
	}
	if ledger.Len() == 0 {
		return nil, &InsufficientDataError{Analysis: PassMarketImpact, Have: 0, Need: 1}
	}

	sorted := ledger.Values()
	sort.Float64s(sorted)
	threshold := percentile(sorted, quantile)

	type dayAgg struct {
		sum, whaleSum     float64
		count, whaleCount int
	}
	byDate := make(map[string]*dayAgg)

	result := &MarketImpact{Threshold: threshold}
	for _, e := range ledger.Entries {
		agg, ok := byDate[e.Date]
		if !ok {
			agg = &dayAgg{}
			byDate[e.Date] = agg
		}
		agg.sum += e.Value
		agg.count++

		if e.Value >= threshold {
			agg.whaleSum += e.Value
			agg.whaleCount++
			result.WhaleTrades = append(result.WhaleTrades, e.Transfer)
		}
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	result.PriceImpact = make([]domain.PriceImpact, 0, len(dates))
	for _, date := range dates {
		agg := byDate[date]
		row := domain.PriceImpact{
			Date:         date,
			DailyAverage: agg.sum / float64(agg.count),
			WhaleCount:   agg.whaleCount,
			ImpactRatio:  1.0,
		}
		if agg.whaleCount > 0 {
			row.WhaleAverage = agg.whaleSum / float64(agg.whaleCount)
			if row.DailyAverage == 0 {
				return nil, &UndefinedScoreError{
					Analysis: PassMarketImpact,
					Key:      date,
					Reason:   "daily average value is zero",
				}
			}
			row.ImpactRatio = row.WhaleAverage / row.DailyAverage
		}
		result.PriceImpact = append(result.PriceImpact, row)
	}

	return result, nil
}
