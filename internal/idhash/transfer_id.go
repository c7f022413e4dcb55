package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ComputeTransferID computes a deterministic transfer_id using SHA256.
// Formula: SHA256(lower(tx_hash)|event_index)
// Returns hex-encoded hash (64 characters).
func ComputeTransferID(txHash string, eventIndex int) string {
	data := fmt.Sprintf("%s|%d", strings.ToLower(txHash), eventIndex)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
