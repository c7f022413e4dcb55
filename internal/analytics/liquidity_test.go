package analytics

import (
	"errors"
	"math"
	"testing"
)

func TestScoreLiquidity_BusierDayScoresHigher(t *testing.T) {
	// Day A has double the volume and count of day B.
	ledger := ledgerOf(t,
		tr("2021-08-01T10:00:00Z", "0x1", 10),
		tr("2021-08-01T11:00:00Z", "0x2", 10),
		tr("2021-08-02T10:00:00Z", "0x3", 10),
	)

	days, err := ScoreLiquidity(ledger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}

	a, b := days[0], days[1]
	if a.Date != "2021-08-01" || b.Date != "2021-08-02" {
		t.Fatalf("unexpected dates: %s, %s", a.Date, b.Date)
	}
	if a.TotalValue != 20 || a.TransactionCount != 2 {
		t.Errorf("day A: expected 20/2, got %v/%d", a.TotalValue, a.TransactionCount)
	}
	if a.LiquidityScore <= b.LiquidityScore {
		t.Errorf("expected day A score %v > day B score %v", a.LiquidityScore, b.LiquidityScore)
	}

	// mean volume 15, mean count 1.5 → denominator 22.5
	if math.Abs(a.LiquidityScore-40.0/22.5) > 1e-12 {
		t.Errorf("day A: expected score %v, got %v", 40.0/22.5, a.LiquidityScore)
	}
	if math.Abs(b.LiquidityScore-10.0/22.5) > 1e-12 {
		t.Errorf("day B: expected score %v, got %v", 10.0/22.5, b.LiquidityScore)
	}
}

func TestScoreLiquidity_UniformDaysScoreOne(t *testing.T) {
	ledger := ledgerOf(t,
		tr("2021-08-01T10:00:00Z", "0x1", 4),
		tr("2021-08-02T10:00:00Z", "0x2", 4),
		tr("2021-08-03T10:00:00Z", "0x3", 4),
	)

	days, err := ScoreLiquidity(ledger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sum float64
	for _, d := range days {
		sum += d.LiquidityScore
	}
	if got := sum / float64(len(days)); got != 1.0 {
		t.Errorf("expected mean score 1.0, got %v", got)
	}
}

func TestScoreLiquidity_SingleDayScoresExactlyOne(t *testing.T) {
	ledger := ledgerOf(t, tr("2021-08-01T10:00:00Z", "0x1", 7.3))

	days, err := ScoreLiquidity(ledger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 1 || days[0].LiquidityScore != 1.0 {
		t.Errorf("expected one day scoring 1.0, got %+v", days)
	}
}

func TestScoreLiquidity_ZeroVolumeIsUndefined(t *testing.T) {
	ledger := ledgerOf(t,
		tr("2021-08-01T10:00:00Z", "0x1", 0),
		tr("2021-08-02T10:00:00Z", "0x2", 0),
	)

	_, err := ScoreLiquidity(ledger)
	if !errors.Is(err, ErrUndefinedScore) {
		t.Fatalf("expected ErrUndefinedScore, got %v", err)
	}

	var scoreErr *UndefinedScoreError
	if !errors.As(err, &scoreErr) {
		t.Fatalf("expected *UndefinedScoreError, got %T", err)
	}
	if scoreErr.Key != "2021-08-01..2021-08-02" {
		t.Errorf("unexpected key %q", scoreErr.Key)
	}
	if scoreErr.Reason != "mean daily volume or count is zero" {
		t.Errorf("unexpected reason %q", scoreErr.Reason)
	}
}

func TestScoreLiquidity_EmptyLedger(t *testing.T) {
	_, err := ScoreLiquidity(&Ledger{})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}
