package domain

// DailyLiquidity aggregates one calendar day of transfers.
type DailyLiquidity struct {
	Date             string  // YYYY-MM-DD (UTC)
	TotalValue       float64 // sum of transfer values that day
	TransactionCount int     // number of transfers that day
	LiquidityScore   float64 // 1.0 = dataset-average day
}
