// Package sqlitedb opens single-file SQLite databases and applies embedded
// goose migrations to them.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pressly/goose/v3"
	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"
)

const busyTimeoutMillis = 5000

// goose keeps its base FS, dialect and version table in package globals.
var gooseMu sync.Mutex

// Open opens the database at path, creating parent directories as needed.
// Callers own the returned handle and must close it.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, busyTimeoutMillis)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// One connection keeps the per-operation lifetime honest and avoids
	// writer contention inside a single process.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", path, err)
	}
	return db, nil
}

// Migrate applies every migration found under dir in fsys, tracking applied
// versions in versionTable. Stores sharing one file need distinct tables.
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS, dir, versionTable string) error {
	if versionTable == "" {
		return fmt.Errorf("sqlite: migration version table is required")
	}
	gooseMu.Lock()
	prevTable := goose.TableName()
	defer func() {
		goose.SetBaseFS(nil)
		goose.SetTableName(prevTable)
		gooseMu.Unlock()
	}()
	goose.SetBaseFS(fsys)
	goose.SetTableName(versionTable)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("sqlite: set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("sqlite: apply migrations: %w", err)
	}
	return nil
}

// With opens path, runs fn and closes the handle regardless of outcome.
func With(ctx context.Context, path string, fn func(db *sql.DB) error) error {
	db, err := Open(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}
