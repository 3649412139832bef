// Package migrate applies the embedded, versioned schema migrations.
//
// Migrations are named NNNN_description.sql and run in strict numeric
// order inside individual transactions. Each applied version is recorded
// in schema_migrations; reruns are no-ops. Gaps or duplicate version
// numbers in the embedded set are startup errors, as is a database that
// already holds a version this binary does not ship.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type migration struct {
	version int
	file    string
}

// Run applies all embedded migrations that have not been applied yet.
// It is safe to call on every startup.
func Run(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}
	if err := checkNoUnknownVersions(migrations, applied); err != nil {
		return err
	}

	logger := slog.Default().With("component", "migrations")
	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		logger.InfoContext(ctx, "applying migration", "version", m.version, "file", m.file)
		if applyErr := applyMigration(ctx, db, logger, m); applyErr != nil {
			return applyErr
		}
	}
	return nil
}

// loadMigrations reads the embedded directory and validates the version
// sequence: strictly increasing, no duplicates, no gaps, starting at 1.
func loadMigrations() ([]migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var migrations []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		version, parseErr := parseVersion(e.Name())
		if parseErr != nil {
			return nil, parseErr
		}
		migrations = append(migrations, migration{version: version, file: e.Name()})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].version < migrations[j].version })

	for i, m := range migrations {
		if m.version != i+1 {
			return nil, fmt.Errorf("migration versions must be sequential starting at 1: found %d in %s", m.version, m.file)
		}
	}
	return migrations, nil
}

func parseVersion(file string) (int, error) {
	name := strings.TrimSuffix(file, ".sql")
	prefix, _, found := strings.Cut(name, "_")
	if !found {
		return 0, fmt.Errorf("migration file %s must be named NNNN_description.sql", file)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, fmt.Errorf("migration file %s has invalid version prefix %q", file, prefix)
	}
	return version, nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if scanErr := rows.Scan(&v); scanErr != nil {
			return nil, fmt.Errorf("scan applied migration: %w", scanErr)
		}
		applied[v] = true
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("list applied migrations: %w", rowsErr)
	}
	return applied, nil
}

// checkNoUnknownVersions rejects a database migrated further than this
// binary knows about, which usually means a rollback to an old build.
func checkNoUnknownVersions(migrations []migration, applied map[int]bool) error {
	known := make(map[int]bool, len(migrations))
	for _, m := range migrations {
		known[m.version] = true
	}
	for v := range applied {
		if !known[v] {
			return fmt.Errorf("database has applied migration version %d unknown to this binary", v)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, logger *slog.Logger, m migration) error {
	sqlBytes, err := migrationsFS.ReadFile("migrations/" + m.file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", m.file, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			logger.ErrorContext(ctx, "failed to rollback transaction", "err", rollbackErr, "migration_file", m.file)
		}
	}()

	if _, execErr := tx.ExecContext(ctx, string(sqlBytes)); execErr != nil {
		return fmt.Errorf("exec migration %s: %w", m.file, execErr)
	}
	if _, insertErr := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); insertErr != nil {
		return fmt.Errorf("record migration %s: %w", m.file, insertErr)
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("commit migration %s: %w", m.file, commitErr)
	}
	return nil
}
