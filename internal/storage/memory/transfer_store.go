package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cryptopunks-analysis/internal/domain"
	"cryptopunks-analysis/internal/idhash"
	"cryptopunks-analysis/internal/storage"
)

// TransferStore is an in-memory implementation of storage.TransferStore.
type TransferStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Transfer // keyed by transfer_id
}

// NewTransferStore creates a new in-memory transfer store.
func NewTransferStore() *TransferStore {
	return &TransferStore{
		data: make(map[string]*domain.Transfer),
	}
}

// InsertBulk adds multiple transfers atomically. Fails entire batch on any duplicate.
func (s *TransferStore) InsertBulk(_ context.Context, transfers []*domain.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, len(transfers))
	batchKeys := make(map[string]struct{}, len(transfers))

	// First pass: validate and check for duplicates (existing + intra-batch)
	for i, t := range transfers {
		if err := storage.ValidateTransfer(t); err != nil {
			return err
		}
		key := idhash.ComputeTransferID(t.TxHash, t.EventIndex)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
		keys[i] = key
	}

	// Second pass: insert all
	for i, t := range transfers {
		s.data[keys[i]] = cloneTransfer(t)
	}

	return nil
}

// GetAll retrieves all transfers, ordered by timestamp ASC.
func (s *TransferStore) GetAll(_ context.Context) ([]*domain.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Transfer, 0, len(s.data))
	for _, t := range s.data {
		result = append(result, cloneTransfer(t))
	}
	sortTransfers(result)
	return result, nil
}

// GetByTimeRange retrieves transfers within [start, end] (inclusive).
func (s *TransferStore) GetByTimeRange(_ context.Context, start, end time.Time) ([]*domain.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transfer
	for _, t := range s.data {
		if !t.Timestamp.Before(start) && !t.Timestamp.After(end) {
			result = append(result, cloneTransfer(t))
		}
	}
	sortTransfers(result)
	return result, nil
}

// Count returns the number of stored transfers.
func (s *TransferStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

func cloneTransfer(t *domain.Transfer) *domain.Transfer {
	c := *t
	c.Timestamp = t.Timestamp.UTC()
	if t.ValueUSD != nil {
		usd := *t.ValueUSD
		c.ValueUSD = &usd
	}
	return &c
}

// sortTransfers orders by timestamp, then tx_hash and event_index for stable output.
func sortTransfers(ts []*domain.Transfer) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].Timestamp.Equal(ts[j].Timestamp) {
			return ts[i].Timestamp.Before(ts[j].Timestamp)
		}
		if ts[i].TxHash != ts[j].TxHash {
			return ts[i].TxHash < ts[j].TxHash
		}
		return ts[i].EventIndex < ts[j].EventIndex
	})
}

var _ storage.TransferStore = (*TransferStore)(nil)
