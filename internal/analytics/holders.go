package analytics

import (
	"math"
	"sort"

	"cryptopunks-analysis/internal/domain"
)

// quartileLabels are assigned to equal-frequency (or equal-width) buckets.
var quartileLabels = []domain.HolderType{
	domain.HolderSmall,
	domain.HolderMedium,
	domain.HolderLarge,
	domain.HolderWhale,
}

// edgePadFraction widens equal-width outer edges by this share of the range
// so the minimum and maximum fall inside the first and last bucket.
const edgePadFraction = 0.001

// ClassifyHolders sums received value per address and labels each holder.
//
// Addresses with a non-positive total are not holders. With at least four
// distinct totals, holders are split into quartiles (Small..Whale); when tied
// totals collapse quartile edges, equal-width buckets over [min, max] are used
// instead. With fewer than four distinct totals the split is at the median:
// Small (<= median) and Large (> median).
//
// Rows are sorted by address. Returns *InsufficientDataError if no holder remains.
func ClassifyHolders(ledger *Ledger) ([]domain.HolderStat, error) {
	totals := make(map[string]float64)
	for _, e := range ledger.Entries {
		totals[e.Receiver] += e.Value
	}

	stats := make([]domain.HolderStat, 0, len(totals))
	for addr, total := range totals {
		if math.IsNaN(total) || total <= 0 {
			continue
		}
		stats = append(stats, domain.HolderStat{Address: addr, TotalValueReceived: total})
	}
	if len(stats) == 0 {
		return nil, &InsufficientDataError{Analysis: PassHolders, Have: 0, Need: 1}
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Address < stats[j].Address
	})

	sorted := make([]float64, len(stats))
	for i, s := range stats {
		sorted[i] = s.TotalValueReceived
	}
	sort.Float64s(sorted)

	if countDistinct(sorted) >= len(quartileLabels) {
		edges := quantileEdges(sorted, len(quartileLabels))
		if !strictlyIncreasing(edges) {
			edges = equalWidthEdges(sorted[0], sorted[len(sorted)-1], len(quartileLabels))
		}
		for i := range stats {
			stats[i].HolderType = quartileLabels[bucketOf(stats[i].TotalValueReceived, edges)]
		}
		return stats, nil
	}

	median := percentile(sorted, 0.5)
	for i := range stats {
		if stats[i].TotalValueReceived <= median {
			stats[i].HolderType = domain.HolderSmall
		} else {
			stats[i].HolderType = domain.HolderLarge
		}
	}
	return stats, nil
}

// quantileEdges returns buckets+1 equal-frequency edges from min to max.
func quantileEdges(sorted []float64, buckets int) []float64 {
	edges := make([]float64, buckets+1)
	for i := 0; i <= buckets; i++ {
		edges[i] = percentile(sorted, float64(i)/float64(buckets))
	}
	return edges
}

// equalWidthEdges splits [min, max] into equal-width buckets with padded outer edges.
func equalWidthEdges(lo, hi float64, buckets int) []float64 {
	span := hi - lo
	edges := make([]float64, buckets+1)
	for i := 0; i <= buckets; i++ {
		edges[i] = lo + span*float64(i)/float64(buckets)
	}
	pad := span * edgePadFraction
	edges[0] = lo - pad
	edges[buckets] = hi + pad
	return edges
}

func strictlyIncreasing(edges []float64) bool {
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			return false
		}
	}
	return true
}

// bucketOf returns the right-closed bucket containing v; the first bucket
// also includes its lower edge.
func bucketOf(v float64, edges []float64) int {
	last := len(edges) - 2
	for i := 1; i < len(edges)-1; i++ {
		if v <= edges[i] {
			return i - 1
		}
	}
	return last
}
