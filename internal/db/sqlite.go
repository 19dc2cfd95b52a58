// Package db opens the SQLite report store and keeps its schema current.
//
// The store is split into two pools over the same file: report executions go
// through a multi-connection read pool, while definition and ledger writes go
// through a single-connection pool so SQLite never sees competing writers.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

const (
	busyTimeoutMs   = "5000"
	defaultReadOpen = 4
	pingTimeout     = 5 * time.Second
)

// OpenReportStore opens the write and read pools for the report store at
// path. readConns sizes the read pool; values <= 0 use a default of 4.
func OpenReportStore(path string, readConns int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = openPool(path, true, 1)
	if err != nil {
		return nil, nil, err
	}

	if readConns <= 0 {
		readConns = defaultReadOpen
	}
	readDB, err = openPool(path, false, readConns)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}

	return writeDB, readDB, nil
}

// openPool opens one pool with the hardened DSN. Writer pools get a single
// connection and immediate transactions; reader pools never take the write
// lock path.
func openPool(path string, writer bool, maxOpen int) (*sql.DB, error) {
	role := "read"
	if writer {
		role = "write"
	}

	pool, err := sql.Open("sqlite3", storeDSN(path, writer))
	if err != nil {
		return nil, fmt.Errorf("open report store (%s): %w", role, err)
	}

	pool.SetMaxOpenConns(maxOpen)
	pool.SetMaxIdleConns(maxOpen)
	pool.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping report store (%s): %w", role, err)
	}

	return pool, nil
}

// storeDSN builds the DSN: WAL journal, 5s busy timeout, NORMAL sync, and
// enforced foreign keys. The writer additionally takes locks eagerly.
func storeDSN(path string, writer bool) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", busyTimeoutMs)
	params.Set("_synchronous", "NORMAL")
	params.Set("_foreign_keys", "on")
	if writer {
		params.Set("_txlock", "immediate")
	}
	return path + "?" + params.Encode()
}
