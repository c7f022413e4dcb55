// Package dashboard builds the filterable descriptive views served by the
// dashboard API: headline metrics, holder concentration, size distribution,
// price series and daily volume.
package dashboard

import (
	"sort"
	"time"

	"cryptopunks-analysis/internal/domain"
)

// Defaults for Builder.
const (
	DefaultTopHolders    = 10
	DefaultMovingAverage = 7
)

// Summary is every dashboard view for one filter.
type Summary struct {
	Filter        Filter        `json:"filter"`
	TransferCount int           `json:"transfer_count"`
	Metrics       KeyMetrics    `json:"metrics"`
	Holders       []HolderShare `json:"holders"`
	Sizes         []SizeBucket  `json:"sizes"`
	Prices        []PricePoint  `json:"prices"`
	Volume        []DailyVolume `json:"volume"`
}

// Builder assembles summaries.
type Builder struct {
	now           func() time.Time
	topHolders    int
	movingAverage int
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock sets the clock used to resolve the year of PeriodYTD.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithTopHolders sets how many holders HolderConcentration lists before Others.
func WithTopHolders(n int) Option {
	return func(b *Builder) { b.topHolders = n }
}

// WithMovingAverage sets the price series moving average window.
func WithMovingAverage(n int) Option {
	return func(b *Builder) { b.movingAverage = n }
}

// NewBuilder creates a Builder with defaults.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		now:           time.Now,
		topHolders:    DefaultTopHolders,
		movingAverage: DefaultMovingAverage,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build filters transfers and computes every view. The input is not modified.
func (b *Builder) Build(transfers []*domain.Transfer, filter Filter) (*Summary, error) {
	if filter.Period == "" {
		filter.Period = PeriodAll
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	ordered := make([]*domain.Transfer, len(transfers))
	copy(ordered, transfers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	selected := filter.Apply(ordered, b.now())

	return &Summary{
		Filter:        filter,
		TransferCount: len(selected),
		Metrics:       ComputeKeyMetrics(selected),
		Holders:       HolderConcentration(selected, b.topHolders),
		Sizes:         SizeDistribution(selected),
		Prices:        PriceSeries(selected, b.movingAverage),
		Volume:        DailyVolumes(selected),
	}, nil
}

// Build is NewBuilder().Build.
func Build(transfers []*domain.Transfer, filter Filter) (*Summary, error) {
	return NewBuilder().Build(transfers, filter)
}
