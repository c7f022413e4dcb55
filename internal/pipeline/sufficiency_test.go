package pipeline

import (
	"math"
	"strings"
	"testing"
	"time"

	"cryptopunks-analysis/internal/domain"
)

func checkByName(t *testing.T, r *SufficiencyResult, name string) SufficiencyCheck {
	t.Helper()
	for _, c := range r.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not found", name)
	return SufficiencyCheck{}
}

func TestSufficiencyChecker_FixturesPass(t *testing.T) {
	r := NewSufficiencyChecker(DefaultThresholds(50)).Check(FixtureTransfers())
	if !r.AllPass {
		for _, c := range r.Checks {
			if !c.Pass {
				t.Errorf("check %s failed: %s (threshold %s)", c.Name, c.Actual, c.Threshold)
			}
		}
	}
	if len(r.Checks) != 6 {
		t.Errorf("Expected 6 checks, got %d", len(r.Checks))
	}
}

func TestSufficiencyChecker_Empty(t *testing.T) {
	r := NewSufficiencyChecker(DefaultThresholds(50)).Check(nil)
	if r.AllPass {
		t.Error("Expected empty ledger to fail")
	}
	if c := checkByName(t, r, "Days covered"); c.Pass || c.Actual != "0 days" {
		t.Errorf("Unexpected coverage check: %+v", c)
	}
}

func TestSufficiencyChecker_Duplicates(t *testing.T) {
	ts := time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC)
	transfers := []*domain.Transfer{
		{TxHash: "0x1", Timestamp: ts, Receiver: "a", Value: 1},
		{TxHash: "0x1", Timestamp: ts, Receiver: "b", Value: 2},
		{TxHash: "0x1", EventIndex: 1, Timestamp: ts, Receiver: "c", Value: 3},
	}
	r := NewSufficiencyChecker(DefaultThresholds(1)).Check(transfers)

	c := checkByName(t, r, "Duplicate transfers")
	if c.Pass || c.Actual != "1" {
		t.Errorf("Unexpected duplicate check: %+v", c)
	}
	if len(r.Errors) != 1 || !strings.Contains(r.Errors[0], "0x1#0 (count=2)") {
		t.Errorf("Unexpected errors: %v", r.Errors)
	}
}

func TestSufficiencyChecker_ExcludedRatioAndHolders(t *testing.T) {
	ts := time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC)
	transfers := []*domain.Transfer{
		{TxHash: "0x1", Timestamp: ts, Receiver: "a", Value: 1},
		{TxHash: "0x2", Timestamp: ts, Receiver: "b", Value: 0},
		{TxHash: "0x3", Timestamp: ts, Receiver: "c", Value: -1},
		{TxHash: "0x4", Timestamp: ts, Receiver: "d", Value: math.NaN()},
	}
	r := NewSufficiencyChecker(DefaultThresholds(1)).Check(transfers)

	if c := checkByName(t, r, "Excluded rows"); c.Pass || c.Actual != "50.0% (2/4)" {
		t.Errorf("Unexpected excluded check: %+v", c)
	}
	// Zero-value receivers do not count as holders.
	if c := checkByName(t, r, "Distinct holders"); c.Pass || c.Actual != "1" {
		t.Errorf("Unexpected holders check: %+v", c)
	}
}

func TestSufficiencyChecker_PricedCheckOptional(t *testing.T) {
	th := DefaultThresholds(50)
	th.MinPricedTransfers = 1000
	r := NewSufficiencyChecker(th).Check(FixtureTransfers())

	if len(r.Checks) != 7 {
		t.Fatalf("Expected 7 checks with priced check enabled, got %d", len(r.Checks))
	}
	if c := checkByName(t, r, "Priced transfers"); c.Pass {
		t.Errorf("Expected priced check to fail: %+v", c)
	}
	if r.AllPass {
		t.Error("Expected AllPass false")
	}
}
