package migrations

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickhouseConn is the part of driver.Conn used to migrate. *clickhouse.Conn satisfies it.
type ClickhouseConn interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
}

// RunClickhouseMigrations applies the embedded ClickHouse migrations that are
// not yet recorded in schema_migrations. The database must already exist
// (see clickhouse.OpenDatabase).
//
// ClickHouse has no DDL transactions: the version row is written after every
// statement of a file succeeded, so a failed file is retried whole and its
// statements must be idempotent.
func RunClickhouseMigrations(ctx context.Context, conn ClickhouseConn, opts ...Option) (*Result, error) {
	migrations, err := ClickhouseMigrations()
	if err != nil {
		return nil, err
	}
	return run(ctx, clickhouseTarget{conn: conn}, migrations, opts)
}

type clickhouseTarget struct {
	conn ClickhouseConn
}

func (clickhouseTarget) database() string { return "clickhouse" }

func (t clickhouseTarget) ensureVersionTable(ctx context.Context) error {
	return t.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+VersionTable+` (
			version    String,
			applied_at DateTime DEFAULT now()
		)
		ENGINE = ReplacingMergeTree(applied_at)
		ORDER BY version`)
}

func (t clickhouseTarget) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := t.conn.Query(ctx, "SELECT version FROM "+VersionTable+" FINAL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (t clickhouseTarget) apply(ctx context.Context, m Migration) error {
	for _, stmt := range m.Statements {
		if err := t.conn.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return t.conn.Exec(ctx, "INSERT INTO "+VersionTable+" (version) VALUES (?)", m.Version)
}
