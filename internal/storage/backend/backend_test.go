package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptopunks-analysis/internal/storage"
)

type nopRecorder struct{ calls int }

func (r *nopRecorder) RecordDBQuery(string, string, time.Duration, error) { r.calls++ }

func TestOpen_Memory(t *testing.T) {
	rec := &nopRecorder{}
	store, err := Open(context.Background(), Options{Kind: "", Recorder: rec})
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, KindMemory, store.Kind)
	assert.Nil(t, store.Migrations, "memory store has no schema")
	_, ok := store.TransferStore.(*storage.InstrumentedTransferStore)
	assert.True(t, ok, "recorder should wrap the store")

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, rec.calls)
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Options{Kind: "sqlite"})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Kind: KindPostgres})
	assert.ErrorContains(t, err, "requires a DSN")

	_, err = Open(ctx, Options{Kind: KindClickHouse})
	assert.ErrorContains(t, err, "requires a DSN")
}
