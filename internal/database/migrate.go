// Migration runner: forward-only, ledger-based, safe to run on every
// process start. Units are SQL files named NNN_name.sql; the zero-padded
// numeric prefix makes lexicographic order the application order. A unit
// and its ledger entry are committed in one transaction, so a unit is
// either fully applied and recorded or not applied at all. There are no
// down-migrations and no checksums; applied units are immutable by
// convention.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"regexp"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationPattern is enforced strictly: a typo in a filename aborts
// startup instead of being silently skipped.
var migrationPattern = regexp.MustCompile(`^\d{3}_\w+\.sql$`)

const ledgerDDL = `CREATE TABLE IF NOT EXISTS _migrations (
    name       VARCHAR(255) NOT NULL,
    applied_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (name)
)`

// RunMigrations applies the embedded migration units to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	return Migrate(ctx, db, sub)
}

// Migrate ensures the ledger table exists, validates every discovered
// unit name, and applies not-yet-recorded units in lexicographic order.
// Any error aborts immediately; already-applied units are untouched.
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	if _, err := db.ExecContext(ctx, ledgerDDL); err != nil {
		return fmt.Errorf("create migration ledger: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var names, invalid []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !migrationPattern.MatchString(e.Name()) {
			invalid = append(invalid, e.Name())
			continue
		}
		names = append(names, e.Name())
	}
	// Refuse to apply anything while a misnamed unit exists.
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return fmt.Errorf("invalid migration filenames (expected NNN_name.sql): %s",
			strings.Join(invalid, ", "))
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)

	applied, err := appliedSet(ctx, db)
	if err != nil {
		return err
	}

	for _, name := range names {
		if applied[name] {
			continue
		}
		stmts, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := applyOne(ctx, db, name, string(stmts)); err != nil {
			return err
		}
		log.Printf("migration applied: %s", name)
	}
	return nil
}

func appliedSet(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM _migrations")
	if err != nil {
		return nil, fmt.Errorf("read migration ledger: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// applyOne runs a unit's statements and records it in the ledger inside
// a single transaction.
func applyOne(ctx context.Context, db *sql.DB, name, stmts string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, stmts); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply migration %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}
