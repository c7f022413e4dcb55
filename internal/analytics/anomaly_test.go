package analytics

import (
	"testing"

	"cryptopunks-analysis/internal/domain"
)

func TestDetectAnomalies_FlagsOutlierAfterConstantRun(t *testing.T) {
	var ts []*domain.Transfer
	for i := 0; i < 50; i++ {
		ts = append(ts, tr(secondsAfter(i), "0x1", 100))
	}
	ts = append(ts, tr(secondsAfter(50), "0xoutlier", 100000))

	anomalies := DetectAnomalies(ledgerOf(t, ts...), 50, 3.0)

	if len(anomalies) != 1 {
		t.Fatalf("expected 1 anomaly, got %d", len(anomalies))
	}
	a := anomalies[0]
	if a.Transfer.Receiver != "0xoutlier" {
		t.Errorf("expected outlier flagged, got %s", a.Transfer.Receiver)
	}
	// Window: 49 x 100 + 100000 → mean 2098
	if a.RollingMean != 2098 {
		t.Errorf("expected rolling mean 2098, got %v", a.RollingMean)
	}
	if a.ZScore <= 3 {
		t.Errorf("expected z > 3, got %v", a.ZScore)
	}
}

func TestDetectAnomalies_SortsByTimestamp(t *testing.T) {
	// Same data as above, supplied newest first.
	var ts []*domain.Transfer
	ts = append(ts, tr(secondsAfter(50), "0xoutlier", 100000))
	for i := 49; i >= 0; i-- {
		ts = append(ts, tr(secondsAfter(i), "0x1", 100))
	}

	anomalies := DetectAnomalies(ledgerOf(t, ts...), 50, 3.0)

	if len(anomalies) != 1 || anomalies[0].Transfer.Receiver != "0xoutlier" {
		t.Errorf("expected only the outlier, got %+v", anomalies)
	}
}

func TestDetectAnomalies_ConstantSeriesNeverFlags(t *testing.T) {
	var ts []*domain.Transfer
	for i := 0; i < 20; i++ {
		ts = append(ts, tr(secondsAfter(i), "0x1", 7))
	}

	if anomalies := DetectAnomalies(ledgerOf(t, ts...), 50, 3.0); len(anomalies) != 0 {
		t.Errorf("expected no anomalies, got %d", len(anomalies))
	}
}

func TestDetectAnomalies_SingleRow(t *testing.T) {
	ledger := ledgerOf(t, tr(secondsAfter(0), "0x1", 1000))

	if anomalies := DetectAnomalies(ledger, 50, 3.0); len(anomalies) != 0 {
		t.Errorf("expected no anomalies, got %d", len(anomalies))
	}
}

func TestDetectAnomalies_ShortWindow(t *testing.T) {
	values := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	var ts []*domain.Transfer
	for i, v := range values {
		ts = append(ts, tr(secondsAfter(i), "0x1", v))
	}

	if anomalies := DetectAnomalies(ledgerOf(t, ts...), 5, 1.5); len(anomalies) != 0 {
		t.Errorf("expected no anomalies on flat series, got %d", len(anomalies))
	}

	// One spike in a window of n reaches z = (n-1)/sqrt(n), about 1.79 for n=5.
	ts = append(ts, tr(secondsAfter(10), "0xspike", 50))
	anomalies := DetectAnomalies(ledgerOf(t, ts...), 5, 1.5)
	if len(anomalies) != 1 || anomalies[0].Transfer.Receiver != "0xspike" {
		t.Errorf("expected spike flagged, got %+v", anomalies)
	}
}
