package database

import (
	"fmt"
	"sort"
	"strings"

	"github.com/koustreak/fkguard/internal/errs"
)

// Dialect controls which SQL placeholder and identifier quoting style the
// query builders emit.
type Dialect int

const (
	// DialectSQLite uses ? placeholders and "double-quoted" identifiers.
	DialectSQLite Dialect = iota

	// DialectPostgres uses $1, $2, … placeholders.
	DialectPostgres

	// DialectMySQL uses ? placeholders and `backtick` identifiers.
	DialectMySQL
)

func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectMySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

// validOps is the allowlist of comparison operators for WHERE clauses.
// Any operator not in this list is rejected to prevent SQL injection
// through the operator position (which cannot be parameterized).
var validOps = map[string]bool{
	"=":    true,
	"!=":   true,
	"<>":   true,
	"<":    true,
	">":    true,
	"<=":   true,
	">=":   true,
	"LIKE": true,
	"IS":   true,
}

// SelectBuilder constructs a parameterized SELECT query using a fluent API.
// Values are never interpolated into the SQL string; they are always
// passed as args.
//
// Usage (existence probe):
//
//	sql, args, err := Select("customers", DialectSQLite).
//	    Columns("1").
//	    Where("id", "=", 99).
//	    Limit(1).
//	    Build()
type SelectBuilder struct {
	table   string
	dialect Dialect
	columns []string
	raw     *rawClause
	where   []whereClause
	limit   *int
}

type whereClause struct {
	column string
	op     string
	value  any
}

type rawClause struct {
	sql  string
	args []any
}

// Select starts a new SelectBuilder for the given table and dialect.
func Select(table string, d Dialect) *SelectBuilder {
	return &SelectBuilder{table: table, dialect: d}
}

// Columns restricts the SELECT to the specified columns.
// If not called, SELECT * is used. The literal "1" is emitted unquoted.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// Where adds a WHERE condition. op must be one of the allowed comparison
// operators. Multiple calls are combined with AND.
func (b *SelectBuilder) Where(column, op string, value any) *SelectBuilder {
	b.where = append(b.where, whereClause{column, op, value})
	return b
}

// WhereRaw sets a caller-supplied predicate, already written in the
// builder's dialect, together with the arguments its placeholders bind.
// It is emitted first, in parentheses, and ANDed with any Where calls.
// For DialectPostgres the clause must number its placeholders from $1.
func (b *SelectBuilder) WhereRaw(clause string, args ...any) *SelectBuilder {
	b.raw = &rawClause{sql: clause, args: args}
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// Build produces the final SQL string and argument slice.
// Returns an error if any WHERE operator is not in the allowlist.
func (b *SelectBuilder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "select: empty table name")
	}

	// --- column list ---
	cols := "*"
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			if c == "1" {
				quoted[i] = c
				continue
			}
			quoted[i] = QuoteIdent(b.dialect, c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(QuoteIdent(b.dialect, b.table))

	var args []any
	argIdx := 1

	// --- WHERE ---
	var parts []string
	if b.raw != nil {
		parts = append(parts, "("+b.raw.sql+")")
		args = append(args, b.raw.args...)
		argIdx += len(b.raw.args)
	}
	for _, w := range b.where {
		op := strings.ToUpper(w.op)
		if !validOps[op] {
			return "", nil, errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("unsupported WHERE operator: %q", w.op),
			)
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", QuoteIdent(b.dialect, w.column), op, Placeholder(b.dialect, argIdx)))
		args = append(args, w.value)
		argIdx++
	}
	if len(parts) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}

	// --- LIMIT ---
	if b.limit != nil {
		sb.WriteString(fmt.Sprintf(" LIMIT %s", Placeholder(b.dialect, argIdx)))
		args = append(args, *b.limit)
	}

	return sb.String(), args, nil
}

// BuildInsert produces a parameterized single-row INSERT for values.
// Columns are emitted in sorted order so the statement text is stable.
func BuildInsert(d Dialect, table string, values map[string]any) (string, []any, error) {
	if table == "" {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "insert: empty table name")
	}
	if len(values) == 0 {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "insert: no values")
	}

	cols := make([]string, 0, len(values))
	for c := range values {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	holders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = QuoteIdent(d, c)
		holders[i] = Placeholder(d, i+1)
		args[i] = values[c]
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdent(d, table),
		strings.Join(quoted, ", "),
		strings.Join(holders, ", "),
	)
	return sql, args, nil
}

// Placeholder returns the correct parameter placeholder for the dialect.
// Postgres: $1, $2, …   SQLite/MySQL: ? (index is ignored)
func Placeholder(d Dialect, idx int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", idx)
	}
	return "?"
}

// QuoteIdent wraps a SQL identifier so reserved words and mixed-case
// names survive. MySQL gets backticks; everything else the ANSI double
// quote.
func QuoteIdent(d Dialect, name string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
