// Package statement recognises the three statement shapes that can break a
// foreign key (INSERT, UPDATE, DELETE) and recovers just enough structure
// to say which value went where. It is deliberately not a SQL parser:
// every extractor works on one fixed shape and reports ok=false on
// anything it does not understand.
package statement

import (
	"slices"
	"strings"

	"github.com/koustreak/fkguard/internal/database"
)

// Kind is the statement shape, taken from the leading keyword.
type Kind int

const (
	KindOther Kind = iota
	KindInsert
	KindUpdate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return "other"
	}
}

// Classify reports the statement kind from its first keyword,
// case-insensitively, ignoring leading whitespace.
func Classify(sql string) Kind {
	s := strings.TrimSpace(sql)
	end := 0
	for end < len(s) && isWordByte(s[end]) {
		end++
	}
	switch strings.ToLower(s[:end]) {
	case "insert":
		return KindInsert
	case "update":
		return KindUpdate
	case "delete":
		return KindDelete
	default:
		return KindOther
	}
}

// TableName returns the target table: the name after INTO for INSERT,
// after UPDATE (and an optional OR <action>) for UPDATE, after FROM for
// DELETE. Quoting is removed and a schema qualifier dropped.
func TableName(sql string) (string, bool) {
	t := scan(sql)
	name, _, ok := tableName(t, Classify(sql))
	return name, ok
}

func tableName(t *text, kind Kind) (string, int, bool) {
	var at int
	switch kind {
	case KindInsert:
		at = t.keyword("into", 0)
		if at < 0 {
			return "", 0, false
		}
		at += len("into")
	case KindUpdate:
		at = t.keyword("update", 0) + len("update")
		if or := t.skipSpace(at); t.keyword("or", or) == or {
			_, after, ok := t.identPart(t.skipSpace(or + len("or")))
			if !ok {
				return "", 0, false
			}
			at = after
		}
	case KindDelete:
		at = t.keyword("from", 0)
		if at < 0 {
			return "", 0, false
		}
		at += len("from")
	default:
		return "", 0, false
	}
	return t.ident(at)
}

// InsertColumns returns the parenthesised column list that follows the
// table name of an INSERT, each entry trimmed and unquoted.
func InsertColumns(sql string) ([]string, bool) {
	if Classify(sql) != KindInsert {
		return nil, false
	}
	t := scan(sql)
	_, end, ok := tableName(t, KindInsert)
	if !ok {
		return nil, false
	}

	open := t.skipSpace(end)
	if open >= len(t.src) || t.src[open] != '(' {
		return nil, false
	}
	closing := t.matching(open)
	if closing < 0 {
		return nil, false
	}

	parts := t.split(open+1, closing, t.depth[open]+1)
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		name := unquote(p)
		if name == "" {
			return nil, false
		}
		cols = append(cols, name)
	}
	return cols, true
}

// UpdateSet describes the SET clause of an UPDATE.
type UpdateSet struct {
	// Columns are the columns assigned exactly one placeholder, left to right.
	Columns []string
	// ArgIndexes[i] is the argument position bound to Columns[i].
	ArgIndexes []int
	// ArgsCount is the number of placeholders anywhere in the SET clause.
	ArgsCount int
}

// UpdateColumns parses every "column = ?" assignment of an UPDATE's SET
// clause and counts the clause's placeholders.
func UpdateColumns(sql string) (UpdateSet, bool) {
	if Classify(sql) != KindUpdate {
		return UpdateSet{}, false
	}
	t := scan(sql)
	_, end, ok := tableName(t, KindUpdate)
	if !ok {
		return UpdateSet{}, false
	}

	set := t.keyword("set", end)
	if set < 0 {
		return UpdateSet{}, false
	}
	from := set + len("set")
	to := t.firstKeyword(from, "where", "from", "returning", "order", "limit")

	var us UpdateSet
	us.ArgsCount = len(t.placeholders(from, to))

	offset := from
	for _, part := range t.split(from, to, 0) {
		eq := strings.IndexByte(part, '=')
		if eq > 0 {
			rhs := strings.TrimSpace(part[eq+1:])
			phs := t.placeholders(offset+eq+1, offset+len(part))
			if len(phs) == 1 && rhs == t.src[phs[0].start:phs[0].end] {
				us.Columns = append(us.Columns, unquote(part[:eq]))
				us.ArgIndexes = append(us.ArgIndexes, phs[0].index)
			}
		}
		offset += len(part) + 1
	}
	return us, true
}

// ValueFor returns the argument bound to column.
//
// INSERT zips the column list with args one to one and fails when their
// lengths differ. UPDATE uses only the SET-clause arguments and fails when
// the SET clause holds placeholders outside plain "column = ?" assignments.
// DELETE and other statements never carry column values.
func ValueFor(column, sql string, args []any) (any, bool) {
	switch Classify(sql) {
	case KindInsert:
		cols, ok := InsertColumns(sql)
		if !ok || len(cols) != len(args) {
			return nil, false
		}
		i := slices.Index(cols, column)
		if i < 0 {
			return nil, false
		}
		return args[i], true

	case KindUpdate:
		us, ok := UpdateColumns(sql)
		if !ok || len(us.Columns) != us.ArgsCount || len(args) < us.ArgsCount {
			return nil, false
		}
		i := slices.Index(us.Columns, column)
		if i < 0 || us.ArgIndexes[i] >= len(args) {
			return nil, false
		}
		return args[us.ArgIndexes[i]], true
	}
	return nil, false
}

// Where is the predicate of a DELETE statement.
type Where struct {
	// Clause is the predicate text as written, without the WHERE keyword.
	Clause string
	phs    []placeholder
	offset int
}

// DeleteWhere extracts the WHERE clause of a DELETE. A trailing semicolon
// and any RETURNING, ORDER BY or LIMIT tail are excluded.
func DeleteWhere(sql string) (Where, bool) {
	if Classify(sql) != KindDelete {
		return Where{}, false
	}
	t := scan(sql)
	_, end, ok := tableName(t, KindDelete)
	if !ok {
		return Where{}, false
	}

	at := t.keyword("where", end)
	if at < 0 {
		return Where{}, false
	}
	from := at + len("where")
	to := t.firstKeyword(from, "returning", "order", "limit")
	for to > from && (isSpace(t.src[to-1]) || t.src[to-1] == ';') {
		to--
	}
	from = t.skipSpace(from)
	if from >= to {
		return Where{}, false
	}

	return Where{
		Clause: t.src[from:to],
		phs:    t.placeholders(from, to),
		offset: from,
	}, true
}

// Bind rewrites the clause's placeholders for dialect d, numbered from 1,
// and returns the arguments they bind, in order. It fails when a
// placeholder refers past the end of args.
func (w Where) Bind(d database.Dialect, args []any) (string, []any, bool) {
	var sb strings.Builder
	bound := make([]any, 0, len(w.phs))
	last := 0
	for i, ph := range w.phs {
		if ph.index >= len(args) {
			return "", nil, false
		}
		sb.WriteString(w.Clause[last : ph.start-w.offset])
		sb.WriteString(database.Placeholder(d, i+1))
		bound = append(bound, args[ph.index])
		last = ph.end - w.offset
	}
	sb.WriteString(w.Clause[last:])
	return sb.String(), bound, true
}

// Render returns the clause with its arguments substituted. Display only.
func (w Where) Render(args []any) string {
	return substitute(w.Clause, w.offset, w.phs, args)
}

// Conditions renders the WHERE clause of a DELETE with its placeholders
// replaced by the corresponding arguments, for display.
func Conditions(sql string, args []any) (string, bool) {
	w, ok := DeleteWhere(sql)
	if !ok {
		return "", false
	}
	return w.Render(args), true
}
