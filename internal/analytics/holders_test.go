package analytics

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"cryptopunks-analysis/internal/domain"
)

var labelRank = map[domain.HolderType]int{
	domain.HolderSmall:  0,
	domain.HolderMedium: 1,
	domain.HolderLarge:  2,
	domain.HolderWhale:  3,
}

func TestClassifyHolders_Quartiles(t *testing.T) {
	var ts []*domain.Transfer
	for i := 1; i <= 8; i++ {
		ts = append(ts, tr(secondsAfter(i), fmt.Sprintf("0x%d", i), float64(i)))
	}

	stats, err := ClassifyHolders(ledgerOf(t, ts...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Edges: [1, 2.75, 4.5, 6.25, 8]
	want := map[string]domain.HolderType{
		"0x1": domain.HolderSmall, "0x2": domain.HolderSmall,
		"0x3": domain.HolderMedium, "0x4": domain.HolderMedium,
		"0x5": domain.HolderLarge, "0x6": domain.HolderLarge,
		"0x7": domain.HolderWhale, "0x8": domain.HolderWhale,
	}
	if len(stats) != len(want) {
		t.Fatalf("expected %d holders, got %d", len(want), len(stats))
	}
	for _, s := range stats {
		if s.HolderType != want[s.Address] {
			t.Errorf("%s: expected %s, got %s", s.Address, want[s.Address], s.HolderType)
		}
	}
}

func TestClassifyHolders_LabelsMonotonicInValue(t *testing.T) {
	values := []float64{0.5, 120, 3, 3, 3, 48, 7.25, 900, 15, 15, 2, 66}
	var ts []*domain.Transfer
	for i, v := range values {
		ts = append(ts, tr(secondsAfter(i), fmt.Sprintf("0x%02d", i), v))
	}

	stats, err := ClassifyHolders(ledgerOf(t, ts...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, a := range stats {
		if _, ok := labelRank[a.HolderType]; !ok {
			t.Fatalf("%s: unexpected label %q", a.Address, a.HolderType)
		}
		for _, b := range stats {
			if a.TotalValueReceived < b.TotalValueReceived && labelRank[a.HolderType] > labelRank[b.HolderType] {
				t.Errorf("%s (%v, %s) ranks above %s (%v, %s)",
					a.Address, a.TotalValueReceived, a.HolderType,
					b.Address, b.TotalValueReceived, b.HolderType)
			}
		}
	}
}

func TestClassifyHolders_EqualWidthFallback(t *testing.T) {
	// Nine holders tied at 1 collapse the lower quartile edges.
	var ts []*domain.Transfer
	for i := 0; i < 9; i++ {
		ts = append(ts, tr(secondsAfter(i), fmt.Sprintf("0xa%d", i), 1))
	}
	ts = append(ts,
		tr(secondsAfter(10), "0xb2", 2),
		tr(secondsAfter(11), "0xb3", 3),
		tr(secondsAfter(12), "0xb4", 4),
	)

	stats, err := ClassifyHolders(ledgerOf(t, ts...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Edges: [~1, 1.75, 2.5, 3.25, ~4]
	want := map[float64]domain.HolderType{
		1: domain.HolderSmall,
		2: domain.HolderMedium,
		3: domain.HolderLarge,
		4: domain.HolderWhale,
	}
	for _, s := range stats {
		if s.HolderType != want[s.TotalValueReceived] {
			t.Errorf("%s (%v): expected %s, got %s", s.Address, s.TotalValueReceived, want[s.TotalValueReceived], s.HolderType)
		}
	}
}

func TestClassifyHolders_MedianSplit(t *testing.T) {
	ledger := ledgerOf(t,
		tr(secondsAfter(1), "0xsmall", 5),
		tr(secondsAfter(2), "0xlarge", 15),
	)

	stats, err := ClassifyHolders(ledger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 holders, got %d", len(stats))
	}
	// Sorted by address: 0xlarge, 0xsmall
	if stats[0].Address != "0xlarge" || stats[0].HolderType != domain.HolderLarge {
		t.Errorf("expected 0xlarge Large, got %+v", stats[0])
	}
	if stats[1].Address != "0xsmall" || stats[1].HolderType != domain.HolderSmall {
		t.Errorf("expected 0xsmall Small, got %+v", stats[1])
	}
}

func TestClassifyHolders_ThreeDistinctValues(t *testing.T) {
	ledger := ledgerOf(t,
		tr(secondsAfter(1), "0x1", 1),
		tr(secondsAfter(2), "0x2", 2),
		tr(secondsAfter(3), "0x3", 3),
	)

	stats, err := ClassifyHolders(ledger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Median 2 is inclusive on the Small side.
	want := []domain.HolderType{domain.HolderSmall, domain.HolderSmall, domain.HolderLarge}
	for i, s := range stats {
		if s.HolderType != want[i] {
			t.Errorf("%s: expected %s, got %s", s.Address, want[i], s.HolderType)
		}
	}
}

func TestClassifyHolders_ConservesValue(t *testing.T) {
	ledger := ledgerOf(t,
		tr(secondsAfter(1), "0x1", 1.25),
		tr(secondsAfter(2), "0x1", 2.5),
		tr(secondsAfter(3), "0x2", 0),
		tr(secondsAfter(4), "0x3", 10),
		tr(secondsAfter(5), "0x4", 0.125),
		tr(secondsAfter(6), "0x5", 42),
	)

	stats, err := ClassifyHolders(ledger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got float64
	for _, s := range stats {
		got += s.TotalValueReceived
		if s.Address == "0x2" {
			t.Errorf("zero-inflow address should not be a holder")
		}
	}
	want := 1.25 + 2.5 + 10 + 0.125 + 42
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected total %v, got %v", want, got)
	}
}

func TestClassifyHolders_NoPositiveHolders(t *testing.T) {
	ledger := ledgerOf(t,
		tr(secondsAfter(1), "0x1", 0),
		tr(secondsAfter(2), "0x2", 0),
	)

	_, err := ClassifyHolders(ledger)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}
