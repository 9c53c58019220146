// Package schema provides a fluent builder for declaring application
// tables: create each table if missing, then register the synced ones
// with the table registry in one call.
package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arjunv/wavesyncdb/internal/messages"
	"github.com/arjunv/wavesyncdb/internal/registry"
)

type entry struct {
	createSQL string
	meta      messages.TableMeta
	synced    bool
}

// Builder accumulates table declarations before applying them.
type Builder struct {
	db       *sql.DB
	registry *registry.Registry
	entries  []entry
}

// New starts a schema builder against db, registering synced tables
// into reg.
func New(db *sql.DB, reg *registry.Registry) *Builder {
	return &Builder{db: db, registry: reg}
}

// Register declares a table that both gets created locally and
// participates in gossip replication.
func (b *Builder) Register(createSQL string, meta messages.TableMeta) *Builder {
	b.entries = append(b.entries, entry{createSQL: createSQL, meta: meta, synced: true})
	return b
}

// RegisterLocal declares a table that gets created locally but is
// never intercepted for sync (e.g. a cache or derived-data table).
func (b *Builder) RegisterLocal(createSQL string, meta messages.TableMeta) *Builder {
	b.entries = append(b.entries, entry{createSQL: createSQL, meta: meta, synced: false})
	return b
}

// FromAutoRegistered pulls in every entity auto-registered under
// prefix (see registry.AutoRegister/GetSchemaRegistry) as a synced
// table, so application packages can declare their schema via
// AutoRegister without this builder needing to know about them ahead
// of time.
func (b *Builder) FromAutoRegistered(prefix string) *Builder {
	for _, e := range registry.GetSchemaRegistry(prefix) {
		createSQL, meta := e.SchemaFn()
		b.entries = append(b.entries, entry{createSQL: createSQL, meta: meta, synced: true})
	}
	return b
}

// Sync creates every declared table and registers the synced ones.
func (b *Builder) Sync(ctx context.Context) error {
	for _, e := range b.entries {
		if _, err := b.db.ExecContext(ctx, e.createSQL); err != nil {
			return fmt.Errorf("schema: create table %s: %w", e.meta.TableName, err)
		}
		if e.synced {
			b.registry.Register(e.meta)
		}
	}
	return nil
}
