package schema

import "github.com/koustreak/fkguard/internal/database"

// TableInfo is everything the catalog knows about one table, including
// the foreign keys of other tables that point at it.
type TableInfo struct {
	Name         string                `json:"name"`
	PrimaryKey   string                `json:"primary_key,omitempty"`
	Columns      []database.ColumnInfo `json:"columns"`
	ForeignKeys  []database.ForeignKey `json:"foreign_keys"`
	ReferencedBy []database.ForeignKey `json:"referenced_by"`
}

// SchemaInfo is a point-in-time snapshot of the whole catalog.
type SchemaInfo struct {
	Tables []TableInfo `json:"tables"`
}

// Table looks up a table by exact name.
func (s *SchemaInfo) Table(name string) (*TableInfo, bool) {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// ForeignKeys returns every foreign key in the snapshot, table by table.
func (s *SchemaInfo) ForeignKeys() []database.ForeignKey {
	var all []database.ForeignKey
	for _, t := range s.Tables {
		all = append(all, t.ForeignKeys...)
	}
	return all
}
