package registry

import (
	"testing"

	"github.com/arjunv/wavesyncdb/internal/messages"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := New()
	meta := messages.TableMeta{TableName: "tasks", PrimaryKeyColumn: "id", Columns: []string{"id", "title"}}
	r.Register(meta)

	got, ok := r.Get("tasks")
	if !ok {
		t.Fatal("expected tasks to be registered")
	}
	if got.PrimaryKeyColumn != "id" {
		t.Errorf("expected primary key column id, got %s", got.PrimaryKeyColumn)
	}

	if r.IsRegistered("missing") {
		t.Error("did not expect missing table to be registered")
	}
}

func TestRegistry_AllTables(t *testing.T) {
	r := New()
	r.Register(messages.TableMeta{TableName: "a"})
	r.Register(messages.TableMeta{TableName: "b"})

	all := r.AllTables()
	if len(all) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(all))
	}
}

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		expected string
	}{
		{"plain path no hyphen", "myapp/models", "myapp/models"},
		{"hyphenated leaf segment with wildcard", "my-app::*", "my_app::"},
		{"hyphenated first segment", "my-app/models", "my_app/models"},
		{"trailing slash", "myapp/models/", "myapp/models"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizePrefix(tt.prefix)
			if got != tt.expected {
				t.Errorf("normalizePrefix(%q) = %q, want %q", tt.prefix, got, tt.expected)
			}
		})
	}
}

func TestGetSchemaRegistry(t *testing.T) {
	AutoRegister(Entity{ModulePath: "my-app/models", SchemaFn: func() (string, messages.TableMeta) {
		return "CREATE TABLE widgets (id INTEGER PRIMARY KEY)", messages.TableMeta{TableName: "widgets", PrimaryKeyColumn: "id"}
	}})

	entities := GetSchemaRegistry("my_app/models")
	found := false
	for _, e := range entities {
		if e.ModulePath == "my-app/models" {
			found = true
		}
	}
	if !found {
		t.Error("expected to discover entity registered under hyphenated module path")
	}
}
