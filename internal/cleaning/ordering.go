package cleaning

import (
	"errors"
	"sort"

	"cryptopunks-analysis/internal/domain"
)

// ErrInvalidOrdering is returned when transfers are not in chain order.
var ErrInvalidOrdering = errors.New("transfers are not in deterministic order")

// SortTransfers orders transfers by (timestamp ASC, block_number ASC, tx_hash ASC, event_index ASC).
func SortTransfers(transfers []*domain.Transfer) {
	sort.SliceStable(transfers, func(i, j int) bool {
		return compareTransfers(transfers[i], transfers[j]) < 0
	})
}

// ValidateOrdering checks that transfers are strictly ordered.
// Returns ErrInvalidOrdering if not; equal keys count as misordered.
func ValidateOrdering(transfers []*domain.Transfer) error {
	for i := 1; i < len(transfers); i++ {
		if compareTransfers(transfers[i-1], transfers[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareTransfers returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareTransfers(a, b *domain.Transfer) int {
	if !a.Timestamp.Equal(b.Timestamp) {
		if a.Timestamp.Before(b.Timestamp) {
			return -1
		}
		return 1
	}
	if a.BlockNumber != b.BlockNumber {
		if a.BlockNumber < b.BlockNumber {
			return -1
		}
		return 1
	}
	if a.TxHash != b.TxHash {
		if a.TxHash < b.TxHash {
			return -1
		}
		return 1
	}
	if a.EventIndex != b.EventIndex {
		if a.EventIndex < b.EventIndex {
			return -1
		}
		return 1
	}
	return 0
}
