package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MigrationsFS is set by the top-level migrations package to embed
// migration files into the binary.
//
//	//go:embed *.sql
//	var migrationsFS embed.FS
//
//	func init() {
//	    database.MigrationsFS = migrationsFS
//	    database.MigrationsDir = "."
//	}
var MigrationsFS embed.FS

// MigrationsDir is the directory within MigrationsFS containing
// migration files. "." means files are at the root of the embedded FS.
var MigrationsDir = "migrations"

// Migration represents a single database migration.
// Filenames follow YYYYMMDD_HHMMSS_description.up.sql / .down.sql.
type Migration struct {
	Version string // e.g. 20260815_100000
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrationRecord represents a row in the schema_migrations table.
type MigrationRecord struct {
	Version   string
	AppliedAt time.Time
}

// Migrate applies all pending migrations in version order.
//
// Each migration runs in its own transaction: if migration N fails,
// earlier migrations stay committed, N is rolled back, and later ones
// are not attempted. Re-running Migrate after fixing the issue resumes
// from N.
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	if len(migrations) == 0 {
		return nil
	}

	applied, err := db.getAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("getting applied migrations: %w", err)
	}

	appliedSet := make(map[string]bool)
	for _, m := range applied {
		appliedSet[m.Version] = true
	}

	for _, m := range migrations {
		if appliedSet[m.Version] {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// createMigrationsTable creates the schema_migrations table if absent.
func (db *DB) createMigrationsTable(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	return err
}

// getAppliedMigrations returns all migrations recorded as applied,
// oldest first.
func (db *DB) getAppliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := db.DB.QueryContext(ctx,
		"SELECT version, applied_at FROM schema_migrations ORDER BY version ASC")
	if err != nil {
		return nil, fmt.Errorf("querying schema_migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var rec MigrationRecord
		var appliedAt string
		if err := rows.Scan(&rec.Version, &appliedAt); err != nil {
			return nil, fmt.Errorf("scanning migration record: %w", err)
		}
		t, err := time.Parse(time.RFC3339, appliedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing applied_at %q: %w", appliedAt, err)
		}
		rec.AppliedAt = t
		records = append(records, rec)
	}
	return records, rows.Err()
}

// applyMigration runs a single migration inside a transaction and
// records it in schema_migrations.
func (db *DB) applyMigration(ctx context.Context, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
		return fmt.Errorf("executing up SQL: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.Version, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}

	return tx.Commit()
}

// loadMigrations reads all migrations from the embedded filesystem.
func loadMigrations() ([]Migration, error) {
	byVersion := make(map[string]*Migration)

	err := fs.WalkDir(MigrationsFS, MigrationsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}

		name := filepath.Base(path)
		version, title, direction, parseErr := parseMigrationFilename(name)
		if parseErr != nil {
			return parseErr
		}

		data, readErr := MigrationsFS.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("reading %s: %w", path, readErr)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version, Name: title}
			byVersion[version] = m
		}
		switch direction {
		case "up":
			m.UpSQL = string(data)
		case "down":
			m.DownSQL = string(data)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// parseMigrationFilename splits YYYYMMDD_HHMMSS_description.up.sql into
// its version, descriptive name, and direction.
func parseMigrationFilename(name string) (version, title, direction string, err error) {
	trimmed := strings.TrimSuffix(name, ".sql")
	switch {
	case strings.HasSuffix(trimmed, ".up"):
		direction = "up"
		trimmed = strings.TrimSuffix(trimmed, ".up")
	case strings.HasSuffix(trimmed, ".down"):
		direction = "down"
		trimmed = strings.TrimSuffix(trimmed, ".down")
	default:
		return "", "", "", fmt.Errorf("migration %s: missing .up or .down suffix", name)
	}

	parts := strings.SplitN(trimmed, "_", 3)
	if len(parts) < 3 {
		return "", "", "", fmt.Errorf("migration %s: expected YYYYMMDD_HHMMSS_description", name)
	}

	return parts[0] + "_" + parts[1], parts[2], direction, nil
}
