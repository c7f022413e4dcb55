package reporting

import (
	"time"

	"cryptopunks-analysis/internal/domain"
)

// Report represents the analysis report structure.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Source      string // "fixtures", "csv", "postgres" or "clickhouse"

	// Data Summary
	DataSummary DataSummary

	// Data Quality (sufficiency checks)
	DataQuality DataQualitySection

	// Parameters used for the analysis
	Params ParamsRow

	// Analysis output
	Bundle *domain.Bundle

	// Derived sections
	HolderBreakdown []HolderTypeRow         // one row per holder type, in increasing order
	TopLiquidity    []domain.DailyLiquidity // highest scoring days, score DESC
	TopImpact       []domain.PriceImpact    // days with whales, impact ratio DESC

	// Reproducibility
	Reproducibility ReproducibilityMetadata
}

// DataSummary contains data description.
type DataSummary struct {
	TotalTransfers  int
	RowsExcluded    int
	UniqueSenders   int
	UniqueReceivers int
	TotalVolume     float64 // ETH
	TotalVolumeUSD  float64 // sum of ValueUSD where known
	PricedTransfers int     // transfers with ValueUSD
	DateRangeStart  time.Time
	DateRangeEnd    time.Time
	Days            int // distinct UTC days with transfers
}

// DataQualitySection contains data sufficiency checks and integrity errors.
type DataQualitySection struct {
	SufficiencyChecks []SufficiencyCheckRow
	IntegrityErrors   []string
	AllChecksPassed   bool
}

// SufficiencyCheckRow represents one sufficiency criterion.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// ParamsRow echoes the analysis parameters.
type ParamsRow struct {
	WhaleQuantile float64
	AnomalyWindow int
	AnomalySigma  float64
}

// HolderTypeRow summarizes holders of one category.
type HolderTypeRow struct {
	HolderType domain.HolderType
	Holders    int
	TotalValue float64
	Share      float64 // of total value received
}

// ReproducibilityMetadata identifies the inputs and generator of a report.
type ReproducibilityMetadata struct {
	ReportTimestamp  time.Time
	GeneratorVersion string
	DataVersion      string // short sha256 of the analyzed ledger
	CommitHash       string
	ReplayCommand    string
}
