package cleaning

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptopunks-analysis/internal/analytics"
	"cryptopunks-analysis/internal/domain"
	"cryptopunks-analysis/internal/ingestion"
)

func sampleRaw() []ingestion.RawTransfer {
	return []ingestion.RawTransfer{
		{BlockNumber: "3914495", TimeStamp: "1627862400", Hash: "0xAA", From: "0x0A", To: "0x0B", Value: "2500000000000000000"},
		{BlockNumber: "3914495", TimeStamp: "1627862400", Hash: "0xaa", From: "0x0B", To: "0x0C", Value: "1"},
		{BlockNumber: "3914600", TimeStamp: "1627948800", Hash: "0xbb", From: "0x0C", To: "0x0D", Value: "0"},
	}
}

func TestCleanTransfers(t *testing.T) {
	transfers, err := CleanTransfers(sampleRaw())
	require.NoError(t, err)
	require.Len(t, transfers, 3)

	first := transfers[0]
	assert.Equal(t, 2.5, first.Value)
	assert.Equal(t, "0xaa", first.TxHash)
	assert.Equal(t, 0, first.EventIndex)
	assert.Equal(t, int64(3914495), first.BlockNumber)
	assert.Equal(t, "0x0a", first.Sender)
	assert.Equal(t, "0x0b", first.Receiver)
	assert.Equal(t, time.Date(2021, 8, 2, 0, 0, 0, 0, time.UTC), first.Timestamp)

	// Same hash, second event.
	assert.Equal(t, 1, transfers[1].EventIndex)
	assert.Equal(t, 1e-18, transfers[1].Value)
	assert.Equal(t, 0, transfers[2].EventIndex)
}

func TestCleanTransfers_InvalidRecord(t *testing.T) {
	tests := []struct {
		name string
		raw  ingestion.RawTransfer
	}{
		{"bad timestamp", ingestion.RawTransfer{TimeStamp: "soon", Value: "1"}},
		{"bad value", ingestion.RawTransfer{TimeStamp: "1627862400", Value: "1e18x"}},
		{"negative value", ingestion.RawTransfer{TimeStamp: "1627862400", Value: "-1"}},
		{"bad block", ingestion.RawTransfer{TimeStamp: "1627862400", Value: "1", BlockNumber: "0x1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CleanTransfers([]ingestion.RawTransfer{tt.raw})
			assert.True(t, errors.Is(err, ErrInvalidRecord), "got %v", err)
		})
	}
}

func TestCleanPrice(t *testing.T) {
	quote, err := CleanPrice(ingestion.RawPrice{
		"usd":             2000,
		"usd_market_cap":  240e9,
		"usd_24h_vol":     10e9,
		"usd_24h_change":  1.5,
		"last_updated_at": 1627948800,
	}, "ethereum", "usd")
	require.NoError(t, err)

	assert.Equal(t, 2000.0, quote.Price)
	assert.Equal(t, 240e9, quote.MarketCap)
	assert.Equal(t, 1.5, quote.Change24hPct)
	assert.Equal(t, "2021-08-03", domain.DateOf(quote.LastUpdated))

	_, err = CleanPrice(ingestion.RawPrice{"eur": 1}, "ethereum", "usd")
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestMerge_LeftJoinOnDate(t *testing.T) {
	transfers, err := CleanTransfers(sampleRaw())
	require.NoError(t, err)
	quote := &domain.PriceQuote{Price: 2000, LastUpdated: time.Date(2021, 8, 2, 18, 0, 0, 0, time.UTC)}

	merged := Merge(transfers, quote)
	require.Len(t, merged, 3)

	require.NotNil(t, merged[0].ValueUSD)
	assert.Equal(t, 5000.0, *merged[0].ValueUSD)
	assert.NotNil(t, merged[1].ValueUSD)
	assert.Nil(t, merged[2].ValueUSD, "transfer on another day has no quote")

	for _, tr := range transfers {
		assert.Nil(t, tr.ValueUSD, "input must not be modified")
	}
	assert.Nil(t, Merge(transfers, nil)[0].ValueUSD)
}

func TestCSV_RoundTripFeedsAnalytics(t *testing.T) {
	transfers, err := CleanTransfers(sampleRaw())
	require.NoError(t, err)
	quote := &domain.PriceQuote{Price: 2000, LastUpdated: time.Date(2021, 8, 2, 18, 0, 0, 0, time.UTC)}
	merged := Merge(transfers, quote)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, merged))
	assert.True(t, strings.HasPrefix(buf.String(), "timeStamp,hash,event_index,block_number,sender,receiver,value,value_usd\n"))

	back, err := ReadTransfers(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, merged, back)

	table, err := ReadTable(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	a, err := analytics.New(analytics.Options{})
	require.NoError(t, err)
	bundle, err := a.Analyze(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, 3, bundle.RowsAnalyzed)
}

func TestReadTable_Empty(t *testing.T) {
	_, err := ReadTable(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestSaveCSV(t *testing.T) {
	transfers, err := CleanTransfers(sampleRaw())
	require.NoError(t, err)

	path, err := SaveCSV(t.TempDir()+"/processed", ProcessedFile, transfers)
	require.NoError(t, err)

	back, err := LoadTransfers(path)
	require.NoError(t, err)
	assert.Len(t, back, 3)
}
