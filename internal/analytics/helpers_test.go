package analytics

import (
	"testing"
	"time"

	"cryptopunks-analysis/internal/domain"
)

func tr(ts, receiver string, value float64) *domain.Transfer {
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	return &domain.Transfer{
		TxHash:    "0x" + ts,
		Timestamp: parsed,
		Sender:    "0xsender",
		Receiver:  receiver,
		Value:     value,
	}
}

func transfers(ts ...*domain.Transfer) []*domain.Transfer {
	return ts
}

func ledgerOf(t *testing.T, ts ...*domain.Transfer) *Ledger {
	t.Helper()
	ledger, err := NewLedger(ts)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	return ledger
}

// secondsAfter returns an RFC3339 timestamp n seconds after 2021-08-01 00:00 UTC.
func secondsAfter(n int) string {
	base := time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(n) * time.Second).Format(time.RFC3339)
}
