package domain

// Bundle is the full analysis output handed to the dashboard.
// Parts are independent views of the same input, joined only by date/address.
type Bundle struct {
	HolderStats []HolderStat
	Liquidity   []DailyLiquidity
	WhaleTrades []Transfer
	PriceImpact []PriceImpact
	Anomalies   []Anomaly

	// Metadata
	WhaleThreshold float64 // value at the whale quantile
	RowsAnalyzed   int     // transfers that passed normalization
	RowsExcluded   int     // rows dropped for null/negative value
}

// Bundle part names used by the dashboard API and report exports.
const (
	PartHolderStats = "holder_stats"
	PartLiquidity   = "liquidity"
	PartWhaleTrades = "whale_trades"
	PartPriceImpact = "price_impact"
	PartAnomalies   = "anomalies"
)

// BundleParts lists part names in presentation order.
var BundleParts = []string{
	PartHolderStats,
	PartLiquidity,
	PartWhaleTrades,
	PartPriceImpact,
	PartAnomalies,
}
