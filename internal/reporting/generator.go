package reporting

import (
	"context"
	"sort"
	"time"

	"cryptopunks-analysis/internal/analytics"
	"cryptopunks-analysis/internal/domain"
)

// topRows bounds the highlight tables of the report.
const topRows = 10

// holderTypeOrder lists holder categories in increasing order of value.
var holderTypeOrder = []domain.HolderType{
	domain.HolderSmall, domain.HolderMedium, domain.HolderLarge, domain.HolderWhale,
}

// Generator produces reports from a transfer ledger.
type Generator struct {
	analyzer *analytics.Analyzer
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(analyzer *analytics.Analyzer) *Generator {
	return &Generator{
		analyzer: analyzer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate analyzes transfers and assembles the report.
// Analysis errors are returned unchanged so callers can classify them.
func (g *Generator) Generate(ctx context.Context, transfers []*domain.Transfer) (*Report, error) {
	bundle, err := g.analyzer.AnalyzeTransfers(ctx, transfers)
	if err != nil {
		return nil, err
	}
	return g.Build(transfers, bundle), nil
}

// Build assembles a report from an existing bundle.
func (g *Generator) Build(transfers []*domain.Transfer, bundle *domain.Bundle) *Report {
	r := g.Empty()
	r.DataSummary = summarize(transfers, bundle)
	r.Bundle = bundle
	r.HolderBreakdown = holderBreakdown(bundle.HolderStats)
	r.TopLiquidity = topLiquidity(bundle.Liquidity, topRows)
	r.TopImpact = topImpact(bundle.PriceImpact, topRows)
	return r
}

// Empty returns a report with metadata and parameters but no analysis output.
// Used when the analysis fails and only the data quality section can be shown.
func (g *Generator) Empty() *Report {
	p := g.analyzer.Params()
	return &Report{
		GeneratedAt: g.now(),
		Params: ParamsRow{
			WhaleQuantile: p.WhaleQuantile,
			AnomalyWindow: p.AnomalyWindow,
			AnomalySigma:  p.AnomalySigma,
		},
	}
}

func summarize(transfers []*domain.Transfer, bundle *domain.Bundle) DataSummary {
	s := DataSummary{
		TotalTransfers: bundle.RowsAnalyzed,
		RowsExcluded:   bundle.RowsExcluded,
	}

	senders := make(map[string]struct{})
	receivers := make(map[string]struct{})
	days := make(map[string]struct{})
	for _, t := range transfers {
		if t == nil {
			continue
		}
		if t.Sender != "" {
			senders[t.Sender] = struct{}{}
		}
		receivers[t.Receiver] = struct{}{}
		days[domain.DateOf(t.Timestamp)] = struct{}{}
		s.TotalVolume += t.Value
		if t.ValueUSD != nil {
			s.TotalVolumeUSD += *t.ValueUSD
			s.PricedTransfers++
		}
		ts := t.Timestamp.UTC()
		if s.DateRangeStart.IsZero() || ts.Before(s.DateRangeStart) {
			s.DateRangeStart = ts
		}
		if ts.After(s.DateRangeEnd) {
			s.DateRangeEnd = ts
		}
	}
	s.UniqueSenders = len(senders)
	s.UniqueReceivers = len(receivers)
	s.Days = len(days)
	return s
}

func holderBreakdown(stats []domain.HolderStat) []HolderTypeRow {
	byType := make(map[domain.HolderType]*HolderTypeRow)
	var total float64
	for _, h := range stats {
		row, ok := byType[h.HolderType]
		if !ok {
			row = &HolderTypeRow{HolderType: h.HolderType}
			byType[h.HolderType] = row
		}
		row.Holders++
		row.TotalValue += h.TotalValueReceived
		total += h.TotalValueReceived
	}

	var rows []HolderTypeRow
	for _, ht := range holderTypeOrder {
		row, ok := byType[ht]
		if !ok {
			continue
		}
		if total > 0 {
			row.Share = row.TotalValue / total
		}
		rows = append(rows, *row)
	}
	return rows
}

func topLiquidity(days []domain.DailyLiquidity, n int) []domain.DailyLiquidity {
	sorted := make([]domain.DailyLiquidity, len(days))
	copy(sorted, days)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LiquidityScore > sorted[j].LiquidityScore
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func topImpact(days []domain.PriceImpact, n int) []domain.PriceImpact {
	var withWhales []domain.PriceImpact
	for _, d := range days {
		if d.WhaleCount > 0 {
			withWhales = append(withWhales, d)
		}
	}
	sort.SliceStable(withWhales, func(i, j int) bool {
		return withWhales[i].ImpactRatio > withWhales[j].ImpactRatio
	})
	if len(withWhales) > n {
		withWhales = withWhales[:n]
	}
	return withWhales
}
