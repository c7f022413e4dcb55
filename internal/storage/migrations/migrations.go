// Package migrations applies the embedded, versioned SQL schema to PostgreSQL
// and ClickHouse. Applied versions are recorded in schema_migrations, so
// rerunning a load only applies files that are new.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cryptopunks-analysis/internal/storage"
)

// PostgresFS embeds all PostgreSQL migration files.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds all ClickHouse migration files.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// VersionTable records applied migration versions.
const VersionTable = "schema_migrations"

// Migration is one SQL file split into statements.
type Migration struct {
	Version    string // file name without .sql, e.g. "001_transfers"
	Statements []string
}

// Result lists the versions a run applied and the ones it found already applied.
type Result struct {
	Applied []string
	Skipped []string
}

// Load reads every .sql file in dir, in lexical order.
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := validateNoSemicolonInStrings(string(data)); err != nil {
			return nil, fmt.Errorf("validate migration %s: %w", name, err)
		}
		stmts := splitStatements(string(data))
		if len(stmts) == 0 {
			continue
		}
		out = append(out, Migration{Version: strings.TrimSuffix(name, ".sql"), Statements: stmts})
	}
	return out, nil
}

// PostgresMigrations returns the embedded PostgreSQL migrations.
func PostgresMigrations() ([]Migration, error) {
	return Load(PostgresFS, "postgres")
}

// ClickhouseMigrations returns the embedded ClickHouse migrations.
func ClickhouseMigrations() ([]Migration, error) {
	return Load(ClickhouseFS, "clickhouse")
}

// Option configures a migration run.
type Option func(*runner)

// WithLogger logs each applied and skipped version.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *runner) { r.logger = l }
}

// WithRecorder reports the duration of each applied version as a "migrate" query.
func WithRecorder(rec storage.QueryRecorder) Option {
	return func(r *runner) { r.recorder = rec }
}

// target is the database-specific half of a run.
type target interface {
	database() string
	ensureVersionTable(ctx context.Context) error
	appliedVersions(ctx context.Context) (map[string]bool, error)
	apply(ctx context.Context, m Migration) error // statements plus the version row
}

type runner struct {
	logger   logrus.FieldLogger
	recorder storage.QueryRecorder
}

func run(ctx context.Context, t target, migrations []Migration, opts []Option) (*Result, error) {
	r := &runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		r.logger = l
	}
	log := r.logger.WithFields(logrus.Fields{"component": "migrations", "database": t.database()})

	if err := t.ensureVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("create %s: %w", VersionTable, err)
	}
	applied, err := t.appliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", VersionTable, err)
	}

	res := &Result{}
	for _, m := range migrations {
		if applied[m.Version] {
			res.Skipped = append(res.Skipped, m.Version)
			log.WithField("version", m.Version).Debug("migration already applied")
			continue
		}

		start := time.Now()
		err := t.apply(ctx, m)
		elapsed := time.Since(start)
		if r.recorder != nil {
			r.recorder.RecordDBQuery(t.database(), "migrate", elapsed, err)
		}
		if err != nil {
			return res, fmt.Errorf("apply migration %s: %w", m.Version, err)
		}

		res.Applied = append(res.Applied, m.Version)
		log.WithFields(logrus.Fields{
			"version":    m.Version,
			"statements": len(m.Statements),
			"duration":   elapsed.String(),
		}).Info("migration applied")
	}
	return res, nil
}

// splitStatements splits SQL content into statements on semicolons, dropping
// blank lines and -- comments.
//
// Semicolons inside string literals or /* */ comments are not handled; Load
// rejects the former via validateNoSemicolonInStrings.
func splitStatements(input string) []string {
	var filtered []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		filtered = append(filtered, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(filtered, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects SQL with a semicolon inside a
// single-quoted literal ('' is an escaped quote).
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return fmt.Errorf("semicolon inside string literal at byte %d", i)
			}
		}
	}
	return nil
}
