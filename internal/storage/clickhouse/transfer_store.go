package clickhouse

import (
	"context"
	"fmt"
	"time"

	"cryptopunks-analysis/internal/domain"
	"cryptopunks-analysis/internal/idhash"
	"cryptopunks-analysis/internal/storage"
)

// existsChunkSize bounds the IN list of a single duplicate check query.
const existsChunkSize = 500

// TransferStore implements storage.TransferStore using ClickHouse.
// Rows are keyed by transfer_id; the table is a ReplacingMergeTree so reads use FINAL.
type TransferStore struct {
	conn *Conn
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(conn *Conn) *TransferStore {
	return &TransferStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

// InsertBulk adds multiple transfers. Fails entire batch on duplicate (tx_hash, event_index).
func (s *TransferStore) InsertBulk(ctx context.Context, transfers []*domain.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}

	ids := make([]string, len(transfers))
	seen := make(map[string]struct{}, len(transfers))
	for i, t := range transfers {
		if err := storage.ValidateTransfer(t); err != nil {
			return err
		}
		id := idhash.ComputeTransferID(t.TxHash, t.EventIndex)
		if _, exists := seen[id]; exists {
			return storage.ErrDuplicateKey
		}
		seen[id] = struct{}{}
		ids[i] = id
	}

	// Check for duplicates against existing DB rows
	for start := 0; start < len(ids); start += existsChunkSize {
		end := min(start+existsChunkSize, len(ids))
		exists, err := s.anyExists(ctx, ids[start:end])
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transfers (
			transfer_id, tx_hash, event_index, block_number, timestamp,
			sender, receiver, value, value_usd
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, t := range transfers {
		err = batch.Append(
			ids[i], t.TxHash, uint32(t.EventIndex), uint64(t.BlockNumber), t.Timestamp.UTC(),
			t.Sender, t.Receiver, t.Value, t.ValueUSD,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetAll retrieves all transfers, ordered by timestamp ASC.
func (s *TransferStore) GetAll(ctx context.Context) ([]*domain.Transfer, error) {
	query := `
		SELECT tx_hash, event_index, block_number, timestamp, sender, receiver, value, value_usd
		FROM transfers FINAL
		ORDER BY timestamp ASC, tx_hash ASC, event_index ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all transfers: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// GetByTimeRange retrieves transfers within [start, end] (inclusive).
func (s *TransferStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.Transfer, error) {
	query := `
		SELECT tx_hash, event_index, block_number, timestamp, sender, receiver, value, value_usd
		FROM transfers FINAL
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, tx_hash ASC, event_index ASC
	`

	rows, err := s.conn.Query(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// Count returns the number of stored transfers.
func (s *TransferStore) Count(ctx context.Context) (int, error) {
	var count uint64
	if err := s.conn.QueryRow(ctx, `SELECT count() FROM transfers FINAL`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transfers: %w", err)
	}
	return int(count), nil
}

// anyExists reports whether any of the given transfer ids is already stored.
func (s *TransferStore) anyExists(ctx context.Context, ids []string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM transfers WHERE transfer_id IN (?)`, ids).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanTransfers scans multiple rows.
func scanTransfers(rows chRows) ([]*domain.Transfer, error) {
	var transfers []*domain.Transfer

	for rows.Next() {
		var t domain.Transfer
		var eventIndex uint32
		var blockNumber uint64

		err := rows.Scan(
			&t.TxHash, &eventIndex, &blockNumber, &t.Timestamp,
			&t.Sender, &t.Receiver, &t.Value, &t.ValueUSD,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}

		t.EventIndex = int(eventIndex)
		t.BlockNumber = int64(blockNumber)
		t.Timestamp = t.Timestamp.UTC()
		transfers = append(transfers, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}

	return transfers, nil
}
