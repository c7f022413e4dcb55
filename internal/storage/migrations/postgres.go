package migrations

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresConn is the part of pgxpool.Pool used to migrate. *postgres.Pool satisfies it.
type PostgresConn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// RunPostgresMigrations applies the embedded PostgreSQL migrations that are not
// yet recorded in schema_migrations. Each version runs in its own transaction
// together with its version row.
func RunPostgresMigrations(ctx context.Context, conn PostgresConn, opts ...Option) (*Result, error) {
	migrations, err := PostgresMigrations()
	if err != nil {
		return nil, err
	}
	return run(ctx, postgresTarget{conn: conn}, migrations, opts)
}

type postgresTarget struct {
	conn PostgresConn
}

func (postgresTarget) database() string { return "postgres" }

func (t postgresTarget) ensureVersionTable(ctx context.Context) error {
	_, err := t.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+VersionTable+` (
			version    TEXT        PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

func (t postgresTarget) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := t.conn.Query(ctx, "SELECT version FROM "+VersionTable)
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

func (t postgresTarget) apply(ctx context.Context, m Migration) error {
	tx, err := t.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range m.Statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, "INSERT INTO "+VersionTable+" (version) VALUES ($1)", m.Version); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
