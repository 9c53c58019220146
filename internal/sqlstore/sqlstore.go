// Package sqlstore opens the embedded SQLite database WaveSyncDB
// replicates. It is deliberately thin: schema ownership and write
// interception live in the interceptor and schema packages, which
// wrap the *sql.DB this package returns.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens (creating if necessary) a SQLite database at path in WAL
// mode, behind a pool of a single connection.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", path, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", path, err)
	}

	// a single connection serializes every statement, reads included,
	// which avoids SQLITE_BUSY on the write path.
	db.SetMaxOpenConns(1)

	return db, nil
}
