package renderer

import "testing"

func TestRender_InsertSQLite(t *testing.T) {
	sql := "INSERT INTO `tasks` (`title`, `description`, `completed`) VALUES (?, ?, ?)"
	out, err := Render(sql, []any{"Sample Task", "This is a sample task", false}, SQLite)
	if err != nil {
		t.Fatal(err)
	}
	want := "INSERT INTO `tasks` (`title`, `description`, `completed`) VALUES ('Sample Task', 'This is a sample task', 0)"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestRender_UpdateMySQLBoolLiteral(t *testing.T) {
	sql := "UPDATE `tasks` SET `completed` = ? WHERE (`tasks`.`id` = ?)"
	out, err := Render(sql, []any{true, 1}, MySQL)
	if err != nil {
		t.Fatal(err)
	}
	want := "UPDATE `tasks` SET `completed` = true WHERE (`tasks`.`id` = 1)"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestRender_DeleteSQLite(t *testing.T) {
	sql := "DELETE FROM `tasks` WHERE (`tasks`.`id` = ?)"
	out, err := Render(sql, []any{1}, SQLite)
	if err != nil {
		t.Fatal(err)
	}
	want := "DELETE FROM `tasks` WHERE (`tasks`.`id` = 1)"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestRender_PostgresNumberedPlaceholders(t *testing.T) {
	sql := "SELECT * FROM users WHERE id = $1 AND name = $2"
	out, err := Render(sql, []any{42, "Alice"}, PostgreSQL)
	if err != nil {
		t.Fatal(err)
	}
	want := "SELECT * FROM users WHERE id = 42 AND name = 'Alice'"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestRender_DoesNotReplaceInsideStringsOrComments(t *testing.T) {
	sql := "SELECT '?' AS q, '-- not a comment' AS c /* $1 ? */ , col FROM t WHERE x = ?"
	out, err := Render(sql, []any{7}, SQLite)
	if err != nil {
		t.Fatal(err)
	}
	want := "SELECT '?' AS q, '-- not a comment' AS c /* $1 ? */ , col FROM t WHERE x = 7"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestRender_DoubledSingleQuotesInsideString(t *testing.T) {
	sql := "SELECT 'it''s ? not a placeholder' AS s, col FROM t WHERE x = ?"
	out, err := Render(sql, []any{9}, SQLite)
	if err != nil {
		t.Fatal(err)
	}
	want := "SELECT 'it''s ? not a placeholder' AS s, col FROM t WHERE x = 9"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestRender_PlaceholderMismatchError(t *testing.T) {
	sql := "SELECT * FROM t WHERE a = ? AND b = ?"
	_, err := Render(sql, []any{1}, SQLite)
	if err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestRender_NullAndNumbersAndStrings(t *testing.T) {
	sql := "INSERT INTO t (a,b,c,d) VALUES ($1,$2,$3,$4)"
	out, err := Render(sql, []any{nil, 3.14, 7, "hey"}, PostgreSQL)
	if err != nil {
		t.Fatal(err)
	}
	want := "INSERT INTO t (a,b,c,d) VALUES (NULL,3.14,7,'hey')"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestRender_QuotedIdentifiersAndBackticks(t *testing.T) {
	sql := `UPDATE "weird-table" SET ` + "`val`" + ` = ? WHERE "id" = ?`
	out, err := Render(sql, []any{"a'b", 5}, MySQL)
	if err != nil {
		t.Fatal(err)
	}
	want := `UPDATE "weird-table" SET ` + "`val`" + ` = 'a''b' WHERE "id" = 5`
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestCountPlaceholders_IgnoresLineComment(t *testing.T) {
	sql := "SELECT ? -- trailing ? comment\nFROM t WHERE y = ?"
	if got := CountPlaceholders(sql, SQLite); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}
