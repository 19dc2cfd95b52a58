package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTestSQLite opens a fully migrated report store in t.TempDir() and
// registers cleanup. Tests that never exercise the read/write split can use
// writeDB for everything.
func OpenTestSQLite(t *testing.T) (writeDB, readDB *sql.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "reports.sqlite")

	writeDB, readDB, err := OpenReportStore(path, 4)
	if err != nil {
		t.Fatalf("open report store: %v", err)
	}
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})

	if err := Migrate(writeDB); err != nil {
		t.Fatalf("migrate report store: %v", err)
	}

	return writeDB, readDB
}

// MustExec runs one statement and fails the test on error. Seed helpers use
// it to load inventory rows without repeating error plumbing.
func MustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
