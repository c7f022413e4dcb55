package storage

import (
	"context"
	"time"

	"cryptopunks-analysis/internal/domain"
)

// QueryRecorder receives per-operation store timings. Implemented by observability.Metrics.
type QueryRecorder interface {
	RecordDBQuery(database, operation string, d time.Duration, err error)
}

// InstrumentedTransferStore reports the duration and outcome of every call
// on the wrapped store.
type InstrumentedTransferStore struct {
	next     TransferStore
	database string
	recorder QueryRecorder
}

// Instrument wraps store so calls are recorded under database ("postgres", "clickhouse", "memory").
func Instrument(store TransferStore, database string, recorder QueryRecorder) *InstrumentedTransferStore {
	return &InstrumentedTransferStore{next: store, database: database, recorder: recorder}
}

func (s *InstrumentedTransferStore) InsertBulk(ctx context.Context, transfers []*domain.Transfer) error {
	start := time.Now()
	err := s.next.InsertBulk(ctx, transfers)
	s.recorder.RecordDBQuery(s.database, "insert_bulk", time.Since(start), err)
	return err
}

func (s *InstrumentedTransferStore) GetAll(ctx context.Context) ([]*domain.Transfer, error) {
	start := time.Now()
	out, err := s.next.GetAll(ctx)
	s.recorder.RecordDBQuery(s.database, "get_all", time.Since(start), err)
	return out, err
}

func (s *InstrumentedTransferStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.Transfer, error) {
	began := time.Now()
	out, err := s.next.GetByTimeRange(ctx, start, end)
	s.recorder.RecordDBQuery(s.database, "get_by_time_range", time.Since(began), err)
	return out, err
}

func (s *InstrumentedTransferStore) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.next.Count(ctx)
	s.recorder.RecordDBQuery(s.database, "count", time.Since(start), err)
	return n, err
}

var _ TransferStore = (*InstrumentedTransferStore)(nil)
