package store

import "fmt"

// initSchema creates every table the store needs if it doesn't already
// exist. Plain idempotent DDL, run on every Open.
func (s *Store) initSchema() error {
	// Key columns are VARCHAR rather than TEXT: the dolt driver speaks the
	// MySQL dialect, where TEXT columns cannot be a primary key.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			scan_id VARCHAR(64) PRIMARY KEY,
			started_at VARCHAR(64) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS classes (
			name VARCHAR(512) PRIMARY KEY,
			kind VARCHAR(16) NOT NULL,
			super_name VARCHAR(512),
			public INTEGER NOT NULL DEFAULT 0,
			final_mod INTEGER NOT NULL DEFAULT 0,
			abstract_mod INTEGER NOT NULL DEFAULT 0,
			synthetic_mod INTEGER NOT NULL DEFAULT 0,
			signature TEXT,
			source_location INTEGER NOT NULL DEFAULT 0,
			scan_id VARCHAR(64) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS interfaces (
			name VARCHAR(512) PRIMARY KEY,
			kind VARCHAR(16) NOT NULL DEFAULT 'interface',
			signature TEXT,
			source_location INTEGER NOT NULL DEFAULT 0,
			scan_id VARCHAR(64) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS class_interfaces (
			class_name VARCHAR(512) NOT NULL,
			interface_name VARCHAR(512) NOT NULL,
			PRIMARY KEY (class_name, interface_name)
		)`,
		`CREATE TABLE IF NOT EXISTS annotations (
			name VARCHAR(512) PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS class_annotations (
			class_name VARCHAR(512) NOT NULL,
			annotation_name VARCHAR(512) NOT NULL,
			PRIMARY KEY (class_name, annotation_name)
		)`,
		`CREATE TABLE IF NOT EXISTS scanned_roots (
			root_path VARCHAR(1024) PRIMARY KEY,
			mod_time VARCHAR(64) NOT NULL,
			scan_id VARCHAR(64) NOT NULL,
			scanned_at VARCHAR(64) NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}
