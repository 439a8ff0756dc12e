// Package store is an optional, cross-invocation cache of a finished
// scan: `jscan query` can run against a previous scan's classes,
// interfaces, and annotations tables without re-walking the classpath.
// `jscan scan` records each root's mtime in scanned_roots, and
// RootUnchanged compares against it; the scan command itself does not
// call RootUnchanged and re-walks every root. The
// in-memory hierarchy.Graph is always the source of truth during a single
// scan; the store is never required for correctness, only for avoiding
// repeat work across invocations.
//
// Two drivers are supported: "sqlite" opens a plain modernc.org/sqlite
// file for the common case, "dolt" opens a Dolt repository via
// github.com/dolthub/driver so repeated scans of the same classpath
// accumulate a git-log-style commit history.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/dolthub/driver"
	_ "modernc.org/sqlite"
)

// Driver selects the store's backing SQL engine.
type Driver string

const (
	DriverSQLite Driver = "sqlite"
	DriverDolt   Driver = "dolt"
)

// Store manages the .jscan/store on-disk cache of finished scans.
type Store struct {
	db     *sql.DB
	dbPath string
	driver Driver
}

// Open opens or creates the store at storeDir using driver ("sqlite" or
// "dolt", defaulting to "sqlite" for any other value), initializing the
// schema if new.
func Open(storeDir string, driver Driver) (*Store, error) {
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	var db *sql.DB
	var dbPath string
	var err error

	switch driver {
	case DriverDolt:
		db, dbPath, err = openDolt(storeDir)
	default:
		driver = DriverSQLite
		db, dbPath, err = openSQLite(storeDir)
	}
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, dbPath: dbPath, driver: driver}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func openSQLite(storeDir string) (*sql.DB, string, error) {
	dbPath := filepath.Join(storeDir, "jscan.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, "", fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("set WAL mode: %w", err)
	}
	return db, dbPath, nil
}

func openDolt(storeDir string) (*sql.DB, string, error) {
	dbPath := filepath.Join(storeDir, "dolt")
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, "", fmt.Errorf("create dolt directory: %w", err)
	}

	initDSN := fmt.Sprintf("file://%s?commitname=jscan&commitemail=jscan@local", dbPath)
	initDB, err := sql.Open("dolt", initDSN)
	if err != nil {
		return nil, "", fmt.Errorf("open dolt for init: %w", err)
	}
	if _, err := initDB.Exec("CREATE DATABASE IF NOT EXISTS jscan"); err != nil {
		initDB.Close()
		return nil, "", fmt.Errorf("create dolt database: %w", err)
	}
	initDB.Close()

	dsn := fmt.Sprintf("file://%s?commitname=jscan&commitemail=jscan@local&database=jscan", dbPath)
	db, err := sql.Open("dolt", dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open dolt store: %w", err)
	}
	return db, dbPath, nil
}

// OpenDefault opens the store under .jscan/store in the current working
// directory, using driver.
func OpenDefault(driver Driver) (*Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return Open(filepath.Join(cwd, ".jscan", "store"), driver)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the store's on-disk location.
func (s *Store) Path() string { return s.dbPath }

// Driver reports which backing engine this store opened with.
func (s *Store) Driver() Driver { return s.driver }

// DB returns the underlying connection for advanced callers (e.g. ad hoc
// `jscan sql` style inspection is deliberately not exposed at the CLI
// layer, but the handle stays available to Go callers).
func (s *Store) DB() *sql.DB { return s.db }
