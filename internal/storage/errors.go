package storage

import "errors"

// Storage errors shared by the memory, postgres and clickhouse stores.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a transfer with the same
	// (tx_hash, event_index) is already stored or repeated within a batch.
	ErrDuplicateKey = errors.New("duplicate key: transfer already stored")

	// ErrInvalidInput is returned when a transfer is missing required fields.
	ErrInvalidInput = errors.New("invalid input")
)
