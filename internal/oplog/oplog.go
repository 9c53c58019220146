// Package oplog implements the durable, per-row operation history
// backing anti-entropy replay: a reserved _wavesync_log table.
package oplog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arjunv/wavesyncdb/internal/ids"
	"github.com/arjunv/wavesyncdb/internal/messages"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS _wavesync_log (
	op_id TEXT PRIMARY KEY,
	hlc_time INTEGER NOT NULL,
	hlc_counter INTEGER NOT NULL,
	node_id BLOB NOT NULL,
	table_name TEXT NOT NULL,
	kind TEXT NOT NULL,
	primary_key TEXT NOT NULL,
	data BLOB,
	columns TEXT,
	created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
)`

const createIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_wavesync_log_hlc ON _wavesync_log (hlc_time, hlc_counter)`

// Log wraps a *sql.DB with the operation history table.
type Log struct {
	db *sql.DB
}

// Open creates the _wavesync_log table if it does not already exist.
func Open(ctx context.Context, db *sql.DB) (*Log, error) {
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("oplog: create table: %w", err)
	}
	if _, err := db.ExecContext(ctx, createIndexSQL); err != nil {
		return nil, fmt.Errorf("oplog: create index: %w", err)
	}
	return &Log{db: db}, nil
}

// Append inserts or replaces an operation record, keyed by op_id.
func (l *Log) Append(ctx context.Context, op messages.SyncOperation) error {
	columns := joinColumns(op.Columns)
	_, err := l.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO _wavesync_log
			(op_id, hlc_time, hlc_counter, node_id, table_name, kind, primary_key, data, columns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.OpID.String(), op.HLCTime, op.HLCCounter, op.NodeID.Bytes(),
		op.Table, op.Kind.String(), op.PrimaryKey, op.Data, columns)
	if err != nil {
		return fmt.Errorf("oplog: append: %w", err)
	}
	return nil
}

// LatestForRow returns the most recent logged operation for a given
// table/primary-key pair, if any.
func (l *Log) LatestForRow(ctx context.Context, table, primaryKey string) (messages.SyncOperation, bool, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT op_id, hlc_time, hlc_counter, node_id, table_name, kind, primary_key, data, columns
		FROM _wavesync_log
		WHERE table_name = ? AND primary_key = ?
		ORDER BY hlc_time DESC, hlc_counter DESC
		LIMIT 1`, table, primaryKey)

	op, err := scanOp(row)
	if err == sql.ErrNoRows {
		return messages.SyncOperation{}, false, nil
	}
	if err != nil {
		return messages.SyncOperation{}, false, fmt.Errorf("oplog: latest for row: %w", err)
	}
	return op, true, nil
}

// Since returns every logged operation with hlc_time strictly greater
// than sinceHLCTime, ordered for replay (hlc_time then hlc_counter).
func (l *Log) Since(ctx context.Context, sinceHLCTime int64) ([]messages.SyncOperation, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT op_id, hlc_time, hlc_counter, node_id, table_name, kind, primary_key, data, columns
		FROM _wavesync_log
		WHERE hlc_time > ?
		ORDER BY hlc_time ASC, hlc_counter ASC`, sinceHLCTime)
	if err != nil {
		return nil, fmt.Errorf("oplog: since: %w", err)
	}
	defer rows.Close()

	var out []messages.SyncOperation
	for rows.Next() {
		op, err := scanOp(rows)
		if err != nil {
			return nil, fmt.Errorf("oplog: since scan: %w", err)
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

// Compact deletes every logged operation older than beforeHLCTime.
func (l *Log) Compact(ctx context.Context, beforeHLCTime int64) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM _wavesync_log WHERE hlc_time < ?`, beforeHLCTime)
	if err != nil {
		return 0, fmt.Errorf("oplog: compact: %w", err)
	}
	return res.RowsAffected()
}

// Size returns the number of rows currently logged.
func (l *Log) Size(ctx context.Context) (int64, error) {
	var n int64
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM _wavesync_log`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("oplog: size: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOp(s scanner) (messages.SyncOperation, error) {
	var op messages.SyncOperation
	var opIDStr, kindStr, columns string
	var nodeIDBytes []byte

	err := s.Scan(&opIDStr, &op.HLCTime, &op.HLCCounter, &nodeIDBytes,
		&op.Table, &kindStr, &op.PrimaryKey, &op.Data, &columns)
	if err != nil {
		return op, err
	}

	opID, err := ids.ParseOpID(opIDStr)
	if err == nil {
		op.OpID = opID
	}
	op.NodeID, _ = ids.NodeIDFromBytes(nodeIDBytes)
	op.Kind = parseKind(kindStr)
	op.Columns = splitColumns(columns)
	return op, nil
}

func parseKind(s string) messages.WriteKind {
	switch s {
	case "INSERT":
		return messages.KindInsert
	case "UPDATE":
		return messages.KindUpdate
	case "DELETE":
		return messages.KindDelete
	default:
		return 0
	}
}

func joinColumns(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ","
		}
		out += c
	}
	return out
}

func splitColumns(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
