// Package backend opens the transfer store selected by name, applying
// migrations for the database-backed kinds.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"cryptopunks-analysis/internal/storage"
	chstore "cryptopunks-analysis/internal/storage/clickhouse"
	"cryptopunks-analysis/internal/storage/memory"
	"cryptopunks-analysis/internal/storage/migrations"
	pgstore "cryptopunks-analysis/internal/storage/postgres"
)

// Store kinds.
const (
	KindMemory     = "memory"
	KindPostgres   = "postgres"
	KindClickHouse = "clickhouse"
)

// Options selects and configures a store.
type Options struct {
	Kind          string
	PostgresDSN   string
	ClickHouseDSN string
	Recorder      storage.QueryRecorder // optional; wraps the store with Instrument
	Logger        logrus.FieldLogger    // optional; logs schema migrations
}

// Store is an opened transfer store and its release function.
type Store struct {
	storage.TransferStore
	Kind       string
	Migrations *migrations.Result // nil for the memory store
	close      func() error
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open connects to the store named by opts.Kind.
func Open(ctx context.Context, opts Options) (*Store, error) {
	kind := strings.ToLower(strings.TrimSpace(opts.Kind))
	var (
		ts      storage.TransferStore
		closeFn func() error
		applied *migrations.Result
	)

	var migOpts []migrations.Option
	if opts.Logger != nil {
		migOpts = append(migOpts, migrations.WithLogger(opts.Logger))
	}
	if opts.Recorder != nil {
		migOpts = append(migOpts, migrations.WithRecorder(opts.Recorder))
	}

	switch kind {
	case "", KindMemory:
		kind = KindMemory
		ts = memory.NewTransferStore()

	case KindPostgres:
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres store requires a DSN")
		}
		pool, err := pgstore.NewPool(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		res, err := migrations.RunPostgresMigrations(ctx, pool, migOpts...)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		applied = res
		ts = pgstore.NewTransferStore(pool)
		closeFn = func() error { pool.Close(); return nil }

	case KindClickHouse:
		if opts.ClickHouseDSN == "" {
			return nil, fmt.Errorf("clickhouse store requires a DSN")
		}
		conn, err := chstore.OpenDatabase(ctx, opts.ClickHouseDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		res, err := migrations.RunClickhouseMigrations(ctx, conn, migOpts...)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		applied = res
		ts = chstore.NewTransferStore(conn)
		closeFn = conn.Close

	default:
		return nil, fmt.Errorf("unknown store %q (want memory, postgres or clickhouse)", opts.Kind)
	}

	if opts.Recorder != nil {
		ts = storage.Instrument(ts, kind, opts.Recorder)
	}
	return &Store{TransferStore: ts, Kind: kind, Migrations: applied, close: closeFn}, nil
}
