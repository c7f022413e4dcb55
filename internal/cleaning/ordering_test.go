package cleaning

import (
	"errors"
	"testing"
	"time"

	"cryptopunks-analysis/internal/domain"
)

func TestSortTransfers(t *testing.T) {
	t0 := time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	// Intentionally unordered transfers
	transfers := []*domain.Transfer{
		{Timestamp: t1, BlockNumber: 200, TxHash: "0x2", EventIndex: 0},
		{Timestamp: t0, BlockNumber: 100, TxHash: "0x1", EventIndex: 1},
		{Timestamp: t0, BlockNumber: 100, TxHash: "0x1", EventIndex: 0},
		{Timestamp: t0, BlockNumber: 100, TxHash: "0x2", EventIndex: 0},
		{Timestamp: t0, BlockNumber: 99, TxHash: "0x9", EventIndex: 0},
	}

	SortTransfers(transfers)

	expected := []struct {
		block      int64
		hash       string
		eventIndex int
	}{
		{99, "0x9", 0},
		{100, "0x1", 0},
		{100, "0x1", 1},
		{100, "0x2", 0},
		{200, "0x2", 0},
	}
	for i, exp := range expected {
		got := transfers[i]
		if got.BlockNumber != exp.block || got.TxHash != exp.hash || got.EventIndex != exp.eventIndex {
			t.Errorf("Index %d: got (%d, %s, %d), want (%d, %s, %d)",
				i, got.BlockNumber, got.TxHash, got.EventIndex, exp.block, exp.hash, exp.eventIndex)
		}
	}

	if err := ValidateOrdering(transfers); err != nil {
		t.Errorf("Expected sorted transfers to validate, got %v", err)
	}
}

func TestSortTransfers_Empty(t *testing.T) {
	var transfers []*domain.Transfer
	SortTransfers(transfers) // Should not panic
	if err := ValidateOrdering(transfers); err != nil {
		t.Errorf("Expected nil for empty slice, got %v", err)
	}
}

func TestValidateOrdering_Invalid(t *testing.T) {
	t0 := time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC)

	reversed := []*domain.Transfer{
		{Timestamp: t0.Add(time.Second), TxHash: "0x1"},
		{Timestamp: t0, TxHash: "0x1"},
	}
	if err := ValidateOrdering(reversed); !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("Expected ErrInvalidOrdering, got %v", err)
	}

	duplicate := []*domain.Transfer{
		{Timestamp: t0, TxHash: "0x1"},
		{Timestamp: t0, TxHash: "0x1"},
	}
	if err := ValidateOrdering(duplicate); !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("Expected ErrInvalidOrdering for duplicates, got %v", err)
	}
}
