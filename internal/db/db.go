// Package db opens the SQLite file that holds Timeless's durable state.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/timeless/internal/config"
	_ "modernc.org/sqlite"
)

// FileName is the database file name inside the base directory.
const FileName = "timeless.db"

// ExportsDir is the default export directory inside the base directory.
const ExportsDir = "exports"

// migration moves the schema to version.
type migration struct {
	version int
	stmt    string
}

// migrations run in order. Each commits together with its user_version bump.
var migrations = []migration{
	{
		version: 1,
		stmt: `
		CREATE TABLE IF NOT EXISTS kv (
		  key        TEXT PRIMARY KEY,
		  value      TEXT NOT NULL,
		  updated_at INTEGER NOT NULL
		);`,
	},
}

// CurrentSchemaVersion is the version the last migration produces.
var CurrentSchemaVersion = migrations[len(migrations)-1].version

// Init opens (creating if needed) baseDir/timeless.db and brings its schema
// up to date. Tests pass t.TempDir() instead of ~/.timeless.
func Init(baseDir string) (*sql.DB, error) {
	if err := ensurePrivateDir(baseDir); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	if err := ensurePrivateDir(filepath.Join(baseDir, ExportsDir)); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}

	dbPath := filepath.Join(baseDir, FileName)
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := expectPragma(db, "journal_mode", "wal"); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// The file exists once migrations ran
	_ = os.Chmod(dbPath, 0600)
	return db, nil
}

// dsn applies pragmas on every pooled connection.
func dsn(path string) string {
	return path +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)"
}

// ensurePrivateDir creates dir with owner-only permissions. The chmod is
// best-effort since some platforms ignore it.
func ensurePrivateDir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	_ = os.Chmod(dir, 0700)
	return nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies pending migrations. A database written by a newer
// binary is refused rather than guessed at.
func migrate(db *sql.DB) error {
	current, err := GetUserVersion(db)
	if err != nil {
		return err
	}
	if current > CurrentSchemaVersion {
		return fmt.Errorf("database schema v%d is newer than this binary supports (v%d)", current, CurrentSchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version=%d", m.version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: set user_version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", m.version, err)
		}
	}
	return nil
}

// expectPragma fails unless PRAGMA name reports want.
func expectPragma(db *sql.DB, name, want string) error {
	var got string
	if err := db.QueryRow("PRAGMA " + name).Scan(&got); err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if got != want {
		return fmt.Errorf("expected %s %s, got %s", name, want, got)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
