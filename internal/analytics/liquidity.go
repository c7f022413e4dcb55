package analytics

import (
	"sort"

	"cryptopunks-analysis/internal/domain"
)

// ScoreLiquidity aggregates transfers per calendar date and scores each day as
//
//	total_value * count / (mean(total_value) * mean(count))
//
// so that 1.0 is a dataset-average day. Rows are sorted by date.
func ScoreLiquidity(ledger *Ledger) ([]domain.DailyLiquidity, error) {
	if ledger.Len() == 0 {
		return nil, &InsufficientDataError{Analysis: PassLiquidity, Have: 0, Need: 1}
	}

	byDate := make(map[string]*domain.DailyLiquidity)
	for _, e := range ledger.Entries {
		day, ok := byDate[e.Date]
		if !ok {
			day = &domain.DailyLiquidity{Date: e.Date}
			byDate[e.Date] = day
		}
		day.TotalValue += e.Value
		day.TransactionCount++
	}

	days := make([]domain.DailyLiquidity, 0, len(byDate))
	for _, day := range byDate {
		days = append(days, *day)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date < days[j].Date
	})

	volumes := make([]float64, len(days))
	counts := make([]float64, len(days))
	for i, d := range days {
		volumes[i] = d.TotalValue
		counts[i] = float64(d.TransactionCount)
	}

	denom := mean(volumes) * mean(counts)
	if denom == 0 {
		return nil, &UndefinedScoreError{
			Analysis: PassLiquidity,
			Key:      days[0].Date + ".." + days[len(days)-1].Date,
			Reason:   "mean daily volume or count is zero",
		}
	}

	for i := range days {
		days[i].LiquidityScore = days[i].TotalValue * float64(days[i].TransactionCount) / denom
	}
	return days, nil
}
