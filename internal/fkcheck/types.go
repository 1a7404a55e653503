// Package fkcheck explains foreign key failures.
//
// A Guard runs statements against a database.DB. When the engine rejects
// one with a constraint violation, the Guard asks a Diagnoser which row,
// column and table caused it and returns an *Error carrying both the
// rendered statement and the structured Diagnosis.
//
// Usage:
//
//	guard := fkcheck.NewGuard(db, fkcheck.WithLogger(log))
//	_, err := guard.Exec(ctx, "INSERT INTO orders (id, customer_id) VALUES (?, ?)", 1, 99)
//	var fkErr *fkcheck.Error
//	if errors.As(err, &fkErr) {
//	    for _, v := range fkErr.Diagnosis.Violations { ... }
//	}
package fkcheck

import (
	"fmt"
	"strings"

	"github.com/koustreak/fkguard/internal/database"
	"github.com/koustreak/fkguard/internal/statement"
)

// ForeignKey is one declared local column -> foreign column reference.
type ForeignKey = database.ForeignKey

// FailedDeleteReference is a dependent row found while diagnosing a DELETE:
// the row of the deleted table identified by PrimaryKeyColumn =
// PrimaryKeyValue is still referenced through ForeignKey by a row whose
// local column holds ConflictingValue.
type FailedDeleteReference struct {
	// ForeignKey is nil when no declared key matched; the message then
	// omits the key.
	ForeignKey       *ForeignKey
	PrimaryKeyColumn string
	// PrimaryKeyValue is nil when the primary key column was NULL or absent
	// from the selected row.
	PrimaryKeyValue  *string
	ConflictingValue string
}

// ViolationKind says which side of a foreign key is broken.
type ViolationKind string

const (
	// MissingReference: an INSERT/UPDATE wrote a value with no parent row.
	MissingReference ViolationKind = "missing_reference"
	// DependentRow: a DELETE targets a row that other rows still reference.
	DependentRow ViolationKind = "dependent_row"
)

// Violation is one attributable foreign key problem.
type Violation struct {
	Kind ViolationKind `json:"kind"`
	// Table is the table the statement wrote to.
	Table      string     `json:"table"`
	ForeignKey ForeignKey `json:"foreign_key"`
	// Value is the offending value: the missing parent key for
	// MissingReference, the still-referenced key for DependentRow.
	Value string `json:"value"`

	PrimaryKeyColumn string  `json:"primary_key_column,omitempty"`
	PrimaryKeyValue  *string `json:"primary_key_value,omitempty"`
}

// Message renders the violation: the key, then the cause.
func (v Violation) Message() string {
	fk := v.ForeignKey
	head := fmt.Sprintf("FK error (%s.%s -> %s.%s)", fk.LocalTable, fk.LocalColumn, fk.ForeignTable, fk.ForeignColumn)

	switch v.Kind {
	case DependentRow:
		pk := "NULL"
		if v.PrimaryKeyValue != nil {
			pk = *v.PrimaryKeyValue
		}
		return fmt.Sprintf("%s: for %s.%s = %s: cannot delete, because %s has a row with %s = %s",
			head, v.Table, v.PrimaryKeyColumn, pk, fk.LocalTable, fk.LocalColumn, v.Value)
	default:
		return fmt.Sprintf("%s: no row with %s = %s in %s",
			head, fk.ForeignColumn, v.Value, fk.ForeignTable)
	}
}

// Violation converts a reference into the record reported to callers.
// table is the table the DELETE targeted.
func (r FailedDeleteReference) Violation(table string) Violation {
	v := Violation{
		Kind:             DependentRow,
		Table:            table,
		Value:            r.ConflictingValue,
		PrimaryKeyColumn: r.PrimaryKeyColumn,
		PrimaryKeyValue:  r.PrimaryKeyValue,
	}
	if r.ForeignKey != nil {
		v.ForeignKey = *r.ForeignKey
	} else {
		v.ForeignKey = ForeignKey{ForeignTable: table, ForeignColumn: r.PrimaryKeyColumn}
	}
	return v
}

// Diagnosis is everything learned about one failed statement.
type Diagnosis struct {
	// Statement is the SQL with its arguments substituted, for display.
	Statement string         `json:"statement"`
	Kind      statement.Kind `json:"-"`
	Table     string         `json:"table,omitempty"`
	// ForeignKeys lists the keys that touch Table: its own for INSERT and
	// UPDATE, plus the ones referencing it for DELETE.
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
	Violations  []Violation  `json:"violations"`
}

// Message joins the violations with blank lines. Without violations it
// falls back to the raw foreign key list, and to "" when there is none.
func (d *Diagnosis) Message() string {
	if d == nil {
		return ""
	}
	if len(d.Violations) > 0 {
		msgs := make([]string, len(d.Violations))
		for i, v := range d.Violations {
			msgs[i] = v.Message()
		}
		return strings.Join(msgs, "\n\n")
	}
	if len(d.ForeignKeys) == 0 {
		return ""
	}
	return "foreign_key_list=[" + joinKeys(d.ForeignKeys) + "]"
}

func joinKeys(fks []ForeignKey) string {
	parts := make([]string, len(fks))
	for i, fk := range fks {
		parts[i] = fk.String()
	}
	return strings.Join(parts, ", ")
}
