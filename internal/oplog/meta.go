package oplog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arjunv/wavesyncdb/internal/ids"
)

const createMetaTableSQL = `
CREATE TABLE IF NOT EXISTS _wavesync_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

const metaKeyNodeID = "node_id"

// LoadOrCreateNodeID returns the NodeID persisted in _wavesync_meta for
// this database file, minting and storing one on first open. Every
// later open of the same file returns the same identity, so LWW
// tie-breaks stay stable across restarts instead of reshuffling every
// process lifetime.
func LoadOrCreateNodeID(ctx context.Context, db *sql.DB) (ids.NodeID, error) {
	if _, err := db.ExecContext(ctx, createMetaTableSQL); err != nil {
		return ids.NodeID{}, fmt.Errorf("oplog: create meta table: %w", err)
	}

	var stored string
	err := db.QueryRowContext(ctx, `SELECT value FROM _wavesync_meta WHERE key = ?`, metaKeyNodeID).Scan(&stored)
	switch {
	case err == nil:
		nodeID, parseErr := ids.ParseNodeID(stored)
		if parseErr != nil {
			return ids.NodeID{}, fmt.Errorf("oplog: stored node id %q: %w", stored, parseErr)
		}
		return nodeID, nil
	case err != sql.ErrNoRows:
		return ids.NodeID{}, fmt.Errorf("oplog: load node id: %w", err)
	}

	nodeID := ids.NewNodeID()
	if _, err := db.ExecContext(ctx, `INSERT INTO _wavesync_meta (key, value) VALUES (?, ?)`,
		metaKeyNodeID, nodeID.String()); err != nil {
		return ids.NodeID{}, fmt.Errorf("oplog: persist node id: %w", err)
	}
	return nodeID, nil
}
