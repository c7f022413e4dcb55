package analytics

import (
	"math"

	"cryptopunks-analysis/internal/domain"
)

// DetectAnomalies flags transfers whose value lies more than sigma rolling
// standard deviations from the rolling mean.
//
// Entries are processed in timestamp order. The window is trailing and
// includes the current transfer, so it grows from 1 up to window entries.
// Windows with fewer than 2 values or zero deviation never flag.
func DetectAnomalies(ledger *Ledger, window int, sigma float64) []domain.Anomaly {
	if window < 1 {
		window = 1
	}

	sorted := ledger.SortedByTime()
	values := make([]float64, len(sorted))
	for i, e := range sorted {
		values[i] = e.Value
	}

	var anomalies []domain.Anomaly
	for i, e := range sorted {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		w := values[start : i+1]
		if len(w) < 2 {
			continue
		}

		m := mean(w)
		std := sampleStddev(w, m)
		if std == 0 || math.IsNaN(std) {
			continue
		}

		z := math.Abs(e.Value-m) / std
		if z > sigma {
			anomalies = append(anomalies, domain.Anomaly{
				Transfer:    e.Transfer,
				RollingMean: m,
				RollingStd:  std,
				ZScore:      z,
			})
		}
	}
	return anomalies
}
