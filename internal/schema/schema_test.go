package schema

import (
	"context"
	"database/sql"
	"testing"

	"github.com/arjunv/wavesyncdb/internal/messages"
	"github.com/arjunv/wavesyncdb/internal/registry"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBuilder_SyncCreatesAndRegisters(t *testing.T) {
	db := openTestDB(t)
	reg := registry.New()

	b := New(db, reg)
	b.Register(`CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)`,
		messages.TableMeta{TableName: "widgets", PrimaryKeyColumn: "id", Columns: []string{"id", "name"}})
	b.RegisterLocal(`CREATE TABLE cache (k TEXT PRIMARY KEY, v TEXT)`,
		messages.TableMeta{TableName: "cache", PrimaryKeyColumn: "k", Columns: []string{"k", "v"}})

	if err := b.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if !reg.IsRegistered("widgets") {
		t.Error("expected widgets to be registered for sync")
	}
	if reg.IsRegistered("cache") {
		t.Error("expected cache to stay local-only")
	}

	if _, err := db.Exec(`INSERT INTO widgets (id, name) VALUES (1, 'a')`); err != nil {
		t.Fatalf("widgets table not created: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO cache (k, v) VALUES ('x', 'y')`); err != nil {
		t.Fatalf("cache table not created: %v", err)
	}
}
