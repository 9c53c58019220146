package interceptor

import (
	"testing"

	"github.com/arjunv/wavesyncdb/internal/messages"
)

func TestExtractPrimaryKey(t *testing.T) {
	tests := []struct {
		name  string
		query string
		args  []any
		kind  messages.WriteKind
		pkCol string
		want  string
	}{
		{
			"insert text pk, placeholders",
			`INSERT INTO tasks (id, title) VALUES (?, ?)`,
			[]any{"u1", "write the spec"}, messages.KindInsert, "id", "u1",
		},
		{
			"insert text pk, literal values",
			`INSERT INTO tasks (id, title) VALUES ('u1', 'write the spec')`,
			nil, messages.KindInsert, "id", "u1",
		},
		{
			"insert quoted identifiers",
			`INSERT INTO "tasks" ("id", "title") VALUES (?, ?)`,
			[]any{"u1", "t"}, messages.KindInsert, "id", "u1",
		},
		{
			"insert pk not first column",
			`INSERT INTO tasks (title, id) VALUES (?, ?)`,
			[]any{"t", "u1"}, messages.KindInsert, "id", "u1",
		},
		{
			"update placeholder where",
			`UPDATE tasks SET title = ? WHERE id = ?`,
			[]any{"new", "u1"}, messages.KindUpdate, "id", "u1",
		},
		{
			"update literal where",
			`UPDATE tasks SET title = 'new' WHERE id = 'u1'`,
			nil, messages.KindUpdate, "id", "u1",
		},
		{
			"delete placeholder where",
			`DELETE FROM tasks WHERE id = ?`,
			[]any{"u1"}, messages.KindDelete, "id", "u1",
		},
		{
			"empty pk column",
			`INSERT INTO tasks (id) VALUES (?)`,
			[]any{"u1"}, messages.KindInsert, "", "",
		},
		{
			"column named where in a string doesn't confuse where search",
			`UPDATE tasks SET title = 'contains WHERE keyword' WHERE id = ?`,
			[]any{"u1"}, messages.KindUpdate, "id", "u1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractPrimaryKey(tt.query, tt.args, tt.kind, tt.pkCol)
			if got != tt.want {
				t.Errorf("extractPrimaryKey(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}
