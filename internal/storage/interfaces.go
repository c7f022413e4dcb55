package storage

import (
	"context"
	"time"

	"cryptopunks-analysis/internal/domain"
)

// TransferStore provides access to transfers storage.
// Transfers are keyed by (tx_hash, event_index) and never updated.
type TransferStore interface {
	// InsertBulk adds multiple transfers atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, transfers []*domain.Transfer) error

	// GetAll retrieves all transfers, ordered by timestamp ASC.
	GetAll(ctx context.Context) ([]*domain.Transfer, error)

	// GetByTimeRange retrieves transfers within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.Transfer, error)

	// Count returns the number of stored transfers.
	Count(ctx context.Context) (int, error)
}

// ValidateTransfer checks the fields every store requires.
func ValidateTransfer(t *domain.Transfer) error {
	if t == nil || t.TxHash == "" || t.Receiver == "" || t.Timestamp.IsZero() || t.Value < 0 || t.EventIndex < 0 {
		return ErrInvalidInput
	}
	return nil
}
