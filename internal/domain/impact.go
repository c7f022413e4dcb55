package domain

// PriceImpact compares whale trade value with the overall daily average.
type PriceImpact struct {
	Date         string  // YYYY-MM-DD (UTC)
	DailyAverage float64 // mean value of all transfers that day
	WhaleAverage float64 // mean value of whale transfers that day, 0 if none
	WhaleCount   int     // number of whale transfers that day
	ImpactRatio  float64 // WhaleAverage / DailyAverage, 1.0 if no whales
}
