// Package interceptor wraps a *sql.DB write path: it classifies each
// statement, checks whether its table is registered for sync,
// inlines bind parameters into the literal SQL text, stamps the
// result with an HLC timestamp and op_id, appends it to the oplog,
// and hands it to a Publisher for gossip.
package interceptor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/arjunv/wavesyncdb/internal/conflict"
	"github.com/arjunv/wavesyncdb/internal/hlc"
	"github.com/arjunv/wavesyncdb/internal/ids"
	"github.com/arjunv/wavesyncdb/internal/messages"
	"github.com/arjunv/wavesyncdb/internal/notifier"
	"github.com/arjunv/wavesyncdb/internal/oplog"
	"github.com/arjunv/wavesyncdb/internal/registry"
	"github.com/arjunv/wavesyncdb/internal/renderer"
	"go.uber.org/zap"
)

// reservedPrefix marks tables that are never classified as syncable,
// regardless of registration: WaveSyncDB's own bookkeeping tables.
const reservedPrefix = "_wavesync"

// Publisher gossips a stamped operation to the mesh. Implemented by
// internal/engine; declared here to avoid a dependency cycle.
type Publisher interface {
	Publish(ctx context.Context, op messages.SyncOperation) error
}

// Conn is the intercepting wrapper around a local *sql.DB connection.
type Conn struct {
	db        *sql.DB
	registry  *registry.Registry
	oplog     *oplog.Log
	clock     *hlc.Clock
	nodeID    ids.NodeID
	notifier  *notifier.Notifier
	publisher Publisher
	dialect   renderer.Dialect
	logger    *zap.Logger
}

// New constructs a Conn. publisher may be nil, in which case stamped
// operations are logged and notified locally but never gossiped (a
// single-node configuration).
func New(db *sql.DB, reg *registry.Registry, log *oplog.Log, clock *hlc.Clock, nodeID ids.NodeID,
	n *notifier.Notifier, pub Publisher, dialect renderer.Dialect, logger *zap.Logger) *Conn {
	return &Conn{
		db: db, registry: reg, oplog: log, clock: clock, nodeID: nodeID,
		notifier: n, publisher: pub, dialect: dialect, logger: logger,
	}
}

// Exec runs a write statement, intercepting it for sync if its target
// table is registered.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	kind, table, ok := Classify(query)
	if !ok || !c.registry.IsRegistered(table) {
		return res, nil
	}

	rendered, err := renderer.Render(query, args, c.dialect)
	if err != nil {
		c.logger.Warn("renderer failed, write not synced",
			zap.String("table", table), zap.Error(err))
		return res, nil
	}

	meta, _ := c.registry.Get(table)

	op := messages.SyncOperation{
		OpID:       ids.NewOpID(),
		NodeID:     c.nodeID,
		Table:      table,
		Kind:       kind,
		PrimaryKey: extractPrimaryKey(query, args, kind, meta.PrimaryKeyColumn),
		Data:       []byte(rendered),
		Columns:    meta.Columns,
	}

	ts := c.clock.Now()
	op.HLCTime = ts.Physical
	op.HLCCounter = ts.Logical

	if err := c.Apply(ctx, op); err != nil {
		c.logger.Error("failed to record local write", zap.String("table", table), zap.Error(err))
	}

	return res, nil
}

// Apply durably records a locally stamped op (oplog append + notify)
// and gossips it if a Publisher is configured. Remote operations go
// through ApplyRemote instead, which is never re-gossiped from here.
func (c *Conn) Apply(ctx context.Context, op messages.SyncOperation) error {
	if err := c.oplog.Append(ctx, op); err != nil {
		return fmt.Errorf("interceptor: apply: %w", err)
	}

	c.notifier.Publish(messages.ChangeNotification{
		Table: op.Table, Kind: op.Kind, PrimaryKey: op.PrimaryKey,
	})

	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, op); err != nil {
			c.logger.Warn("gossip publish failed", zap.String("op_id", op.OpID.String()), zap.Error(err))
		}
	}
	return nil
}

// ApplyRemote resolves a conflict against the local oplog before
// applying a remote operation, replaying its rendered SQL if it wins.
func (c *Conn) ApplyRemote(ctx context.Context, op messages.SyncOperation) (bool, error) {
	current, found, err := c.oplog.LatestForRow(ctx, op.Table, op.PrimaryKey)
	if err != nil {
		return false, fmt.Errorf("interceptor: apply remote: %w", err)
	}
	if found && !conflict.ShouldApply(op, current) {
		return false, nil
	}

	if err := c.clock.Observe(hlc.Timestamp{Physical: op.HLCTime, Logical: op.HLCCounter}); err != nil {
		c.logger.Warn("clock observe failed", zap.Error(err))
	}

	if len(op.Data) > 0 {
		if _, err := c.db.ExecContext(ctx, string(op.Data)); err != nil {
			return false, fmt.Errorf("interceptor: replay remote op: %w", err)
		}
	}

	if err := c.oplog.Append(ctx, op); err != nil {
		return false, fmt.Errorf("interceptor: apply remote: %w", err)
	}
	c.notifier.Publish(messages.ChangeNotification{Table: op.Table, Kind: op.Kind, PrimaryKey: op.PrimaryKey})
	return true, nil
}

// OpsSince returns every locally logged operation newer than
// sinceHLCTime, for a peer's anti-entropy full-sync request.
func (c *Conn) OpsSince(ctx context.Context, sinceHLCTime int64) ([]messages.SyncOperation, error) {
	return c.oplog.Since(ctx, sinceHLCTime)
}

// Classify identifies the write kind and target table of a SQL
// statement, tolerant of double-quoted, backtick-quoted, or unquoted
// table names. It returns ok=false for statements it cannot classify
// (SELECT, DDL, etc).
func Classify(query string) (messages.WriteKind, string, bool) {
	trimmed := strings.TrimSpace(query)
	upper := strings.ToUpper(trimmed)
	fields := strings.Fields(trimmed)
	if len(fields) < 3 {
		return 0, "", false
	}

	var kind messages.WriteKind
	var tableIdx int
	switch {
	case strings.HasPrefix(upper, "INSERT"):
		kind = messages.KindInsert
		tableIdx = 2 // INSERT INTO <table>
	case strings.HasPrefix(upper, "UPDATE"):
		kind = messages.KindUpdate
		tableIdx = 1 // UPDATE <table>
	case strings.HasPrefix(upper, "DELETE"):
		kind = messages.KindDelete
		tableIdx = 2 // DELETE FROM <table>
	default:
		return 0, "", false
	}
	if tableIdx >= len(fields) {
		return 0, "", false
	}

	table := unquoteIdent(fields[tableIdx])
	if strings.HasPrefix(table, reservedPrefix) {
		return 0, "", false
	}
	return kind, table, true
}

func unquoteIdent(s string) string {
	s = strings.Trim(s, "\"`")
	return s
}
