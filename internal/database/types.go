package database

import "fmt"

// ForeignKey is one declared reference from LocalTable.LocalColumn to
// ForeignTable.ForeignColumn. Composite keys are reported as one
// ForeignKey per column pair.
type ForeignKey struct {
	ForeignTable  string `json:"foreign_table"`
	LocalTable    string `json:"local_table"`
	ForeignColumn string `json:"foreign_column"`
	LocalColumn   string `json:"local_column"`
}

func (fk ForeignKey) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", fk.LocalTable, fk.LocalColumn, fk.ForeignTable, fk.ForeignColumn)
}

// ColumnInfo describes a single column in a table.
type ColumnInfo struct {
	Name         string `json:"name"`
	IsPrimaryKey bool   `json:"is_primary_key"`
}
