package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"cryptopunks-analysis/internal/domain"
	"cryptopunks-analysis/internal/storage"
)

// TransferStore implements storage.TransferStore using PostgreSQL.
type TransferStore struct {
	pool *Pool
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(pool *Pool) *TransferStore {
	return &TransferStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

var transferColumns = []string{
	"tx_hash", "event_index", "block_number", "timestamp",
	"sender", "receiver", "value", "value_usd",
}

// InsertBulk adds multiple transfers atomically using COPY.
// Fails entire batch on any duplicate (tx_hash, event_index).
func (s *TransferStore) InsertBulk(ctx context.Context, transfers []*domain.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}
	for _, t := range transfers {
		if err := storage.ValidateTransfer(t); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"transfers"},
		transferColumns,
		pgx.CopyFromSlice(len(transfers), func(i int) ([]any, error) {
			t := transfers[i]
			return []any{
				t.TxHash, t.EventIndex, t.BlockNumber, t.Timestamp.UTC(),
				t.Sender, t.Receiver, t.Value, t.ValueUSD,
			}, nil
		}),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isCheckViolation(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("copy transfers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetAll retrieves all transfers, ordered by timestamp ASC.
func (s *TransferStore) GetAll(ctx context.Context) ([]*domain.Transfer, error) {
	query := `
		SELECT tx_hash, event_index, block_number, timestamp, sender, receiver, value, value_usd
		FROM transfers
		ORDER BY timestamp ASC, tx_hash ASC, event_index ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all transfers: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// GetByTimeRange retrieves transfers within [start, end] (inclusive).
func (s *TransferStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.Transfer, error) {
	query := `
		SELECT tx_hash, event_index, block_number, timestamp, sender, receiver, value, value_usd
		FROM transfers
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp ASC, tx_hash ASC, event_index ASC
	`

	rows, err := s.pool.Query(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("get transfers by time range: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// Count returns the number of stored transfers.
func (s *TransferStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM transfers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transfers: %w", err)
	}
	return int(n), nil
}

// scanTransfers scans multiple rows into a slice of Transfer.
func scanTransfers(rows pgx.Rows) ([]*domain.Transfer, error) {
	var transfers []*domain.Transfer

	for rows.Next() {
		var t domain.Transfer

		err := rows.Scan(
			&t.TxHash,
			&t.EventIndex,
			&t.BlockNumber,
			&t.Timestamp,
			&t.Sender,
			&t.Receiver,
			&t.Value,
			&t.ValueUSD,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}
		t.Timestamp = t.Timestamp.UTC()

		transfers = append(transfers, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}

	return transfers, nil
}
