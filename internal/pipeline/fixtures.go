package pipeline

import (
	"context"
	"fmt"
	"time"

	"cryptopunks-analysis/internal/domain"
	"cryptopunks-analysis/internal/storage"
)

// Fixture ledger shape.
const (
	fixtureDays        = 30
	fixturePerDay      = 3
	fixtureWhaleEvery  = 15  // every 15th transfer is a whale trade
	fixtureOutlierAt   = 75  // index of the single extreme transfer
	fixtureOutlierETH  = 950 // value of the extreme transfer
	fixtureStartBlock  = 12550000
	fixtureBlocksPerTx = 2100
)

var (
	fixtureStart  = time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	fixtureValues = []float64{8.5, 12, 15.5, 22, 18, 30, 9.75, 45, 27, 14}
)

// FixtureTransfers returns the deterministic demo ledger: 30 days of
// CryptoPunk sales with periodic whale trades, one extreme outlier and
// USD quotes missing on every tenth day.
func FixtureTransfers() []*domain.Transfer {
	n := fixtureDays * fixturePerDay
	transfers := make([]*domain.Transfer, 0, n)
	for i := 0; i < n; i++ {
		day := i / fixturePerDay
		slot := i % fixturePerDay

		value := fixtureValues[i%len(fixtureValues)] + float64(day)*0.25
		switch {
		case i == fixtureOutlierAt:
			value = fixtureOutlierETH
		case i%fixtureWhaleEvery == fixtureWhaleEvery-1:
			value = 150
		}

		t := &domain.Transfer{
			TxHash:      fmt.Sprintf("0x%064x", i+1),
			EventIndex:  slot,
			BlockNumber: int64(fixtureStartBlock + i*fixtureBlocksPerTx),
			Timestamp:   fixtureStart.AddDate(0, 0, day).Add(time.Duration(2+slot*7) * time.Hour),
			Sender:      fixtureAddress(100 + (i*7)%9),
			// Mid-range holders buy more often, which skews the holder quartiles.
			Receiver: fixtureAddress(i%7 + i%5),
			Value:    value,
		}
		if day%10 != 9 {
			usd := value * (2400 + float64(day)*15)
			t.ValueUSD = &usd
		}
		transfers = append(transfers, t)
	}
	return transfers
}

// LoadFixtures populates store with the demo ledger.
func LoadFixtures(ctx context.Context, store storage.TransferStore) error {
	if err := store.InsertBulk(ctx, FixtureTransfers()); err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}
	return nil
}

func fixtureAddress(n int) string {
	return fmt.Sprintf("0x%040x", n+1)
}
