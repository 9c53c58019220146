package interceptor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/arjunv/wavesyncdb/internal/messages"
)

// extractPrimaryKey pulls the primary key value out of a write
// statement using the table's registered PrimaryKeyColumn, matching
// it against the column/values lists of an INSERT or the WHERE clause
// of an UPDATE/DELETE. This works for any primary key type (TEXT,
// composite-less application-assigned keys, etc), unlike relying on
// the driver's LastInsertId, which is only meaningful for a
// rowid-alias autoincrement column and never set at all for
// UPDATE/DELETE.
func extractPrimaryKey(query string, args []any, kind messages.WriteKind, pkColumn string) string {
	if pkColumn == "" {
		return ""
	}
	runes := []rune(query)
	masked := []rune(maskQuoted(query))
	upperMasked := []rune(strings.ToUpper(string(masked)))
	placeholders := placeholderPositions(query)

	resolve := func(tokenStart int, token string) string {
		token = strings.TrimSpace(token)
		if token == "?" {
			for argIdx, pos := range placeholders {
				if pos == tokenStart && argIdx < len(args) {
					return fmt.Sprintf("%v", args[argIdx])
				}
			}
			return ""
		}
		return unquoteLiteral(token)
	}

	switch kind {
	case messages.KindInsert:
		groups := topLevelParenGroups(masked)
		if len(groups) < 2 {
			return ""
		}
		cols := splitTopLevelByComma(masked, groups[0][0], groups[0][1])
		vals := splitTopLevelByComma(masked, groups[1][0], groups[1][1])
		for i, col := range cols {
			name := unquoteIdent(strings.TrimSpace(string(runes[col[0]:col[1]])))
			if !strings.EqualFold(name, pkColumn) || i >= len(vals) {
				continue
			}
			start, end := vals[i][0], vals[i][1]
			for start < end && isBlank(runes[start]) {
				start++
			}
			return resolve(start, string(runes[start:end]))
		}
		return ""

	case messages.KindUpdate, messages.KindDelete:
		whereIdx := indexKeywordTopLevel(upperMasked, "WHERE")
		if whereIdx < 0 {
			return ""
		}
		pattern := assignmentPattern(pkColumn)
		loc := pattern.FindStringIndex(string(masked[whereIdx:]))
		if loc == nil {
			return ""
		}
		matchEnd := whereIdx + loc[1]
		token, tokenStart := nextToken(runes, matchEnd)
		return resolve(tokenStart, token)
	}
	return ""
}

func assignmentPattern(col string) *regexp.Regexp {
	quoted := "[\"`]?" + regexp.QuoteMeta(col) + "[\"`]?"
	return regexp.MustCompile(`(?i)` + quoted + `\s*=`)
}

func isBlank(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// nextToken reads a single value token (a `?` placeholder, a quoted
// string literal, or a bare literal) starting at or after from,
// skipping leading whitespace.
func nextToken(runes []rune, from int) (token string, start int) {
	i := from
	n := len(runes)
	for i < n && isBlank(runes[i]) {
		i++
	}
	start = i
	if i >= n {
		return "", start
	}
	if runes[i] == '?' {
		return "?", start
	}
	if runes[i] == '\'' {
		j := i + 1
		for j < n {
			if runes[j] == '\'' {
				if j+1 < n && runes[j+1] == '\'' {
					j += 2
					continue
				}
				j++
				break
			}
			j++
		}
		return string(runes[i:j]), start
	}
	j := i
	for j < n && !isBlank(runes[j]) && runes[j] != ',' && runes[j] != ')' && runes[j] != ';' {
		j++
	}
	return string(runes[i:j]), start
}

func unquoteLiteral(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

// placeholderPositions returns the rune index of every top-level `?`
// placeholder in query, in source order — the same order
// database/sql binds args to, so placeholderPositions[i] is the
// position of the placeholder that args[i] fills.
func placeholderPositions(query string) []int {
	var positions []int
	var inSQ, inDQ, inBT, inLC, inBC bool
	runes := []rune(query)
	n := len(runes)
	for i := 0; i < n; i++ {
		c := runes[i]

		if inLC {
			if c == '\n' {
				inLC = false
			}
			continue
		}
		if inBC {
			if c == '*' && i+1 < n && runes[i+1] == '/' {
				i++
				inBC = false
			}
			continue
		}

		switch {
		case c == '\'' && !inDQ && !inBT:
			if inSQ && i+1 < n && runes[i+1] == '\'' {
				i++
			} else {
				inSQ = !inSQ
			}
			continue
		case c == '"' && !inSQ && !inBT:
			inDQ = !inDQ
			continue
		case c == '`' && !inSQ && !inDQ:
			inBT = !inBT
			continue
		case c == '-' && !inSQ && !inDQ && !inBT && i+1 < n && runes[i+1] == '-':
			i++
			inLC = true
			continue
		case c == '/' && !inSQ && !inDQ && !inBT && i+1 < n && runes[i+1] == '*':
			i++
			inBC = true
			continue
		}

		if inSQ || inDQ || inBT {
			continue
		}
		if c == '?' {
			positions = append(positions, i)
		}
	}
	return positions
}

// maskQuoted returns query with the contents of quoted strings,
// quoted identifiers, and comments blanked to spaces (same rune
// length as query), so structural searches — top-level parens, the
// WHERE keyword, a column name in an assignment — never trigger on
// text that happens to appear inside a literal.
func maskQuoted(query string) string {
	var out strings.Builder
	var inSQ, inDQ, inBT, inLC, inBC bool
	runes := []rune(query)
	n := len(runes)
	for i := 0; i < n; i++ {
		c := runes[i]

		if inLC {
			out.WriteRune(' ')
			if c == '\n' {
				inLC = false
				out.WriteRune('\n')
			}
			continue
		}
		if inBC {
			out.WriteRune(' ')
			if c == '*' && i+1 < n && runes[i+1] == '/' {
				i++
				out.WriteRune(' ')
				inBC = false
			}
			continue
		}

		switch {
		case c == '\'' && !inDQ && !inBT:
			if inSQ && i+1 < n && runes[i+1] == '\'' {
				out.WriteRune(' ')
				i++
				out.WriteRune(' ')
			} else {
				inSQ = !inSQ
				out.WriteRune(' ')
			}
			continue
		case c == '"' && !inSQ && !inBT:
			inDQ = !inDQ
			out.WriteRune(' ')
			continue
		case c == '`' && !inSQ && !inDQ:
			inBT = !inBT
			out.WriteRune(' ')
			continue
		case c == '-' && !inSQ && !inDQ && !inBT && i+1 < n && runes[i+1] == '-':
			out.WriteRune(' ')
			i++
			out.WriteRune(' ')
			inLC = true
			continue
		case c == '/' && !inSQ && !inDQ && !inBT && i+1 < n && runes[i+1] == '*':
			out.WriteRune(' ')
			i++
			out.WriteRune(' ')
			inBC = true
			continue
		}

		if inSQ || inDQ || inBT {
			out.WriteRune(' ')
			continue
		}
		out.WriteRune(c)
	}
	return out.String()
}

// topLevelParenGroups returns the [start,end) rune spans inside each
// top-level (depth-1) parenthesized group in masked, in order.
func topLevelParenGroups(masked []rune) [][2]int {
	var groups [][2]int
	depth := 0
	start := -1
	for i, c := range masked {
		switch c {
		case '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case ')':
			depth--
			if depth == 0 && start >= 0 {
				groups = append(groups, [2]int{start, i})
				start = -1
			}
		}
	}
	return groups
}

// splitTopLevelByComma splits masked[lo:hi) on commas at paren-depth
// 0 relative to the span, returning [start,end) rune spans.
func splitTopLevelByComma(masked []rune, lo, hi int) [][2]int {
	var spans [][2]int
	depth := 0
	start := lo
	for i := lo; i < hi; i++ {
		switch masked[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				spans = append(spans, [2]int{start, i})
				start = i + 1
			}
		}
	}
	spans = append(spans, [2]int{start, hi})
	return spans
}

// indexKeywordTopLevel finds the first whole-word occurrence of
// keyword in upperMasked at paren-depth 0. upperMasked must already be
// uppercased and quote-blanked (see maskQuoted).
func indexKeywordTopLevel(upperMasked []rune, keyword string) int {
	kw := []rune(keyword)
	depth := 0
	n := len(upperMasked)
	for i := 0; i < n; i++ {
		switch upperMasked[i] {
		case '(':
			depth++
			continue
		case ')':
			depth--
			continue
		}
		if depth != 0 {
			continue
		}
		if i+len(kw) > n || string(upperMasked[i:i+len(kw)]) != keyword {
			continue
		}
		before := i == 0 || !isIdentRune(upperMasked[i-1])
		after := i+len(kw) == n || !isIdentRune(upperMasked[i+len(kw)])
		if before && after {
			return i
		}
	}
	return -1
}

func isIdentRune(r rune) bool {
	return r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
