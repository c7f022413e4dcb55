package dashboard

import (
	"sort"
	"time"

	"cryptopunks-analysis/internal/domain"
)

// changeWindow is the number of leading and trailing rows compared by change ratios.
const changeWindow = 7

// OthersLabel is the address used for the remainder row of HolderConcentration.
const OthersLabel = "Others"

// Metric is a headline number with its change ratio (last rows vs first rows).
// Change is nil when the baseline is empty or zero.
type Metric struct {
	Value  float64  `json:"value"`
	Change *float64 `json:"change"`
}

// KeyMetrics are the four headline figures of the dashboard.
type KeyMetrics struct {
	TotalVolume       Metric `json:"total_volume"`
	ActiveHolders     Metric `json:"active_holders"`
	AvgTransaction    Metric `json:"avg_transaction"`
	DailyTransactions Metric `json:"daily_transactions"`
}

// ComputeKeyMetrics computes headline metrics over time-ordered transfers.
// Change ratios compare the last seven transfers with the first seven; for
// daily transactions they compare the last seven active days with the first seven.
func ComputeKeyMetrics(transfers []*domain.Transfer) KeyMetrics {
	var km KeyMetrics
	if len(transfers) == 0 {
		return km
	}

	head, tail := edges(transfers, changeWindow)

	km.TotalVolume = Metric{
		Value:  sumValue(transfers),
		Change: changeRatio(sumValue(tail), sumValue(head)),
	}
	km.ActiveHolders = Metric{
		Value:  float64(distinctReceivers(transfers)),
		Change: changeRatio(float64(distinctReceivers(tail)), float64(distinctReceivers(head))),
	}
	km.AvgTransaction = Metric{
		Value:  sumValue(transfers) / float64(len(transfers)),
		Change: changeRatio(meanValue(tail), meanValue(head)),
	}

	counts := dailyCounts(transfers)
	firstDays, lastDays := counts, counts
	if len(counts) > changeWindow {
		firstDays = counts[:changeWindow]
		lastDays = counts[len(counts)-changeWindow:]
	}
	km.DailyTransactions = Metric{
		Value:  meanInts(counts),
		Change: changeRatio(meanInts(lastDays), meanInts(firstDays)),
	}
	return km
}

// HolderShare is one slice of the holder concentration chart.
type HolderShare struct {
	Address string  `json:"address"`
	Value   float64 `json:"value"`
	Share   float64 `json:"share"`
}

// HolderConcentration returns the topN receivers by total received value,
// largest first, followed by an Others row when more holders exist.
func HolderConcentration(transfers []*domain.Transfer, topN int) []HolderShare {
	totals := make(map[string]float64)
	var grand float64
	for _, t := range transfers {
		totals[t.Receiver] += t.Value
		grand += t.Value
	}

	holders := make([]HolderShare, 0, len(totals))
	for addr, v := range totals {
		holders = append(holders, HolderShare{Address: addr, Value: v})
	}
	sort.Slice(holders, func(i, j int) bool {
		if holders[i].Value != holders[j].Value {
			return holders[i].Value > holders[j].Value
		}
		return holders[i].Address < holders[j].Address
	})

	if topN < 0 {
		topN = 0
	}
	if len(holders) > topN {
		others := HolderShare{Address: OthersLabel}
		for _, h := range holders[topN:] {
			others.Value += h.Value
		}
		holders = append(holders[:topN:topN], others)
	}

	if grand > 0 {
		for i := range holders {
			holders[i].Share = holders[i].Value / grand
		}
	}
	return holders
}

// SizeBucket is the number of transfers in one size category.
type SizeBucket struct {
	Category SizeCategory `json:"category"`
	Count    int          `json:"count"`
}

// SizeDistribution counts transfers per size category. Every category is
// present, in ascending order.
func SizeDistribution(transfers []*domain.Transfer) []SizeBucket {
	counts := make(map[SizeCategory]int, len(SizeCategories))
	for _, t := range transfers {
		counts[CategorizeSize(t.Value)]++
	}
	out := make([]SizeBucket, len(SizeCategories))
	for i, c := range SizeCategories {
		out[i] = SizeBucket{Category: c, Count: counts[c]}
	}
	return out
}

// PricePoint is one transfer value with its trailing moving average.
type PricePoint struct {
	Timestamp     time.Time `json:"timestamp"`
	Value         float64   `json:"value"`
	MovingAverage *float64  `json:"moving_average"`
}

// PriceSeries returns transfer values with a moving average over the last
// window transfers. The average is nil until the window is full.
func PriceSeries(transfers []*domain.Transfer, window int) []PricePoint {
	if window <= 0 {
		window = DefaultMovingAverage
	}
	out := make([]PricePoint, len(transfers))
	var running float64
	for i, t := range transfers {
		running += t.Value
		if i >= window {
			running -= transfers[i-window].Value
		}
		out[i] = PricePoint{Timestamp: t.Timestamp, Value: t.Value}
		if i >= window-1 {
			ma := running / float64(window)
			out[i].MovingAverage = &ma
		}
	}
	return out
}

// DailyVolume is the total value and count of transfers on one calendar day.
type DailyVolume struct {
	Date   string  `json:"date"`
	Volume float64 `json:"volume"`
	Count  int     `json:"count"`
}

// DailyVolumes aggregates transfers per UTC day. Days between the first and
// last transfer with no activity are filled with zero rows.
func DailyVolumes(transfers []*domain.Transfer) []DailyVolume {
	if len(transfers) == 0 {
		return nil
	}

	byDate := make(map[string]*DailyVolume)
	first, last := transfers[0].Timestamp, transfers[0].Timestamp
	for _, t := range transfers {
		d := domain.DateOf(t.Timestamp)
		dv, ok := byDate[d]
		if !ok {
			dv = &DailyVolume{Date: d}
			byDate[d] = dv
		}
		dv.Volume += t.Value
		dv.Count++
		if t.Timestamp.Before(first) {
			first = t.Timestamp
		}
		if t.Timestamp.After(last) {
			last = t.Timestamp
		}
	}

	start := startOfDay(first)
	end := startOfDay(last)
	var out []DailyVolume
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		d := day.Format(domain.DateLayout)
		if dv, ok := byDate[d]; ok {
			out = append(out, *dv)
		} else {
			out = append(out, DailyVolume{Date: d})
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func edges(transfers []*domain.Transfer, n int) (head, tail []*domain.Transfer) {
	if len(transfers) <= n {
		return transfers, transfers
	}
	return transfers[:n], transfers[len(transfers)-n:]
}

func changeRatio(current, baseline float64) *float64 {
	if baseline == 0 {
		return nil
	}
	r := current/baseline - 1
	return &r
}

func sumValue(transfers []*domain.Transfer) float64 {
	var s float64
	for _, t := range transfers {
		s += t.Value
	}
	return s
}

func meanValue(transfers []*domain.Transfer) float64 {
	if len(transfers) == 0 {
		return 0
	}
	return sumValue(transfers) / float64(len(transfers))
}

func distinctReceivers(transfers []*domain.Transfer) int {
	seen := make(map[string]struct{}, len(transfers))
	for _, t := range transfers {
		seen[t.Receiver] = struct{}{}
	}
	return len(seen)
}

// dailyCounts returns transfer counts of active days in date order.
func dailyCounts(transfers []*domain.Transfer) []int {
	counts := make(map[string]int)
	for _, t := range transfers {
		counts[domain.DateOf(t.Timestamp)]++
	}
	dates := make([]string, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	out := make([]int, len(dates))
	for i, d := range dates {
		out[i] = counts[d]
	}
	return out
}

func meanInts(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s int
	for _, x := range xs {
		s += x
	}
	return float64(s) / float64(len(xs))
}
