package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ledger is a bookkeeping table that remembers which .sql files ran.
type ledger struct {
	table string
	kind  string
}

var (
	migrationsLedger = ledger{table: "schema_migrations", kind: "migration"}
	seedersLedger    = ledger{table: "schema_seeders", kind: "seed"}
)

// EnsureTable creates the table tracking applied migrations.
func EnsureTable(ctx context.Context, pool *pgxpool.Pool) error {
	return migrationsLedger.ensure(ctx, pool)
}

// EnsureSeedTable creates the table tracking applied seeders.
func EnsureSeedTable(ctx context.Context, pool *pgxpool.Pool) error {
	return seedersLedger.ensure(ctx, pool)
}

// Apply runs the unapplied .sql files in dir in lexical order, each inside its
// own transaction.
func Apply(ctx context.Context, pool *pgxpool.Pool, dir string) ([]string, error) {
	fsys, err := dirFS(dir, "migrations")
	if err != nil {
		return nil, err
	}
	return migrationsLedger.run(ctx, pool, fsys)
}

func ApplyFS(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) ([]string, error) {
	return migrationsLedger.run(ctx, pool, fsys)
}

// Seed runs the unapplied seed files in dir, tracked in schema_seeders.
func Seed(ctx context.Context, pool *pgxpool.Pool, dir string) ([]string, error) {
	fsys, err := dirFS(dir, "seeders")
	if err != nil {
		return nil, err
	}
	return seedersLedger.run(ctx, pool, fsys)
}

func SeedFS(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) ([]string, error) {
	return seedersLedger.run(ctx, pool, fsys)
}

func dirFS(dir, what string) (fs.FS, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s directory %q not found", what, dir)
		}
		return nil, fmt.Errorf("stat %s dir: %w", what, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s path %q is not a directory", what, dir)
	}
	return os.DirFS(dir), nil
}

func (l ledger) ensure(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		create table if not exists `+l.table+` (
			name text primary key,
			applied_at timestamptz not null default now()
		)
	`)
	if err != nil {
		return fmt.Errorf("create %s: %w", l.table, err)
	}
	return nil
}

func (l ledger) run(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS) ([]string, error) {
	names, err := sqlFiles(fsys)
	if err != nil {
		return nil, fmt.Errorf("read %s files: %w", l.kind, err)
	}

	var applied []string
	for _, name := range names {
		done, err := l.applied(ctx, pool, name)
		if err != nil {
			return applied, err
		}
		if done {
			continue
		}
		contents, err := fs.ReadFile(fsys, name)
		if err != nil {
			return applied, fmt.Errorf("read %s: %w", name, err)
		}
		if err := l.exec(ctx, pool, name, strings.TrimSpace(string(contents))); err != nil {
			return applied, err
		}
		applied = append(applied, name)
	}
	return applied, nil
}

func (l ledger) applied(ctx context.Context, pool *pgxpool.Pool, name string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `select exists (select 1 from `+l.table+` where name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check %s %s: %w", l.kind, name, err)
	}
	return exists, nil
}

// exec runs statement and records name in the same transaction. Empty files
// are only recorded.
func (l ledger) exec(ctx context.Context, pool *pgxpool.Pool, name, statement string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s %s: %w", l.kind, name, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if statement != "" {
		if _, err := tx.Exec(ctx, statement); err != nil {
			return fmt.Errorf("exec %s %s: %w", l.kind, name, err)
		}
	}
	if err := l.record(ctx, tx, name); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s %s: %w", l.kind, name, err)
	}
	return nil
}

func (l ledger) record(ctx context.Context, tx pgx.Tx, name string) error {
	if _, err := tx.Exec(ctx, `insert into `+l.table+` (name) values ($1)`, name); err != nil {
		return fmt.Errorf("record %s %s: %w", l.kind, name, err)
	}
	return nil
}

func sqlFiles(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
