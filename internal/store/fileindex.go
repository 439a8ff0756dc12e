package store

import (
	"database/sql"
	"fmt"
	"time"
)

// RootEntry records the last scan of one classpath root: a path keyed to
// a modification stamp and the scan_id that observed it.
type RootEntry struct {
	RootPath  string
	ModTime   time.Time
	ScanID    string
	ScannedAt time.Time
}

// MarkRootScanned records that rootPath was scanned as of modTime during
// scanID.
func (s *Store) MarkRootScanned(rootPath string, modTime time.Time, scanID string) error {
	_, err := s.db.Exec(`
		REPLACE INTO scanned_roots (root_path, mod_time, scan_id, scanned_at)
		VALUES (?, ?, ?, ?)`,
		rootPath, modTime.UTC().Format(time.RFC3339), scanID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("mark root scanned %s: %w", rootPath, err)
	}
	return nil
}

// RootEntryFor returns the last recorded scan of rootPath. Returns
// sql.ErrNoRows if the root has never been scanned.
func (s *Store) RootEntryFor(rootPath string) (*RootEntry, error) {
	var entry RootEntry
	var modTime, scannedAt string
	err := s.db.QueryRow(`
		SELECT root_path, mod_time, scan_id, scanned_at FROM scanned_roots WHERE root_path = ?`,
		rootPath,
	).Scan(&entry.RootPath, &modTime, &entry.ScanID, &scannedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get scanned root %s: %w", rootPath, err)
	}
	entry.ModTime, _ = time.Parse(time.RFC3339, modTime)
	entry.ScannedAt, _ = time.Parse(time.RFC3339, scannedAt)
	return &entry, nil
}

// RootUnchanged reports whether rootPath was already scanned at exactly
// modTime, meaning a scan driver may skip re-walking it and instead trust
// the store's persisted facts for that root.
func (s *Store) RootUnchanged(rootPath string, modTime time.Time) (bool, error) {
	entry, err := s.RootEntryFor(rootPath)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return entry.ModTime.Equal(modTime), nil
}
