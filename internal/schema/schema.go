package schema

import (
	"context"
	"fmt"
	"slices"

	"github.com/koustreak/fkguard/internal/database"
	"github.com/koustreak/fkguard/internal/errs"
)

// Inspect builds the full SchemaInfo by walking the Catalog: every table,
// its columns, its foreign keys, and the reverse references into it.
func Inspect(ctx context.Context, cat database.Catalog) (*SchemaInfo, error) {
	tables, err := cat.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	info := &SchemaInfo{Tables: make([]TableInfo, 0, len(tables))}
	for _, name := range tables {
		ti, err := inspectTable(ctx, cat, name)
		if err != nil {
			return nil, err
		}
		info.Tables = append(info.Tables, *ti)
	}

	byName := make(map[string]*TableInfo, len(info.Tables))
	for i := range info.Tables {
		byName[info.Tables[i].Name] = &info.Tables[i]
	}
	for _, t := range info.Tables {
		for _, fk := range t.ForeignKeys {
			if target, ok := byName[fk.ForeignTable]; ok {
				target.ReferencedBy = append(target.ReferencedBy, fk)
			}
		}
	}
	return info, nil
}

// InspectTable returns a single table's snapshot. ReferencedBy still
// requires reading the foreign keys of every table. Tables whose foreign
// keys cannot be read are skipped for that part.
func InspectTable(ctx context.Context, cat database.Catalog, table string) (*TableInfo, error) {
	tables, err := cat.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(tables, table) {
		return nil, errs.New(errs.ErrKindNotFound, fmt.Sprintf("table %q not found", table))
	}

	ti, err := inspectTable(ctx, cat, table)
	if err != nil {
		return nil, err
	}
	for _, other := range tables {
		fks, err := cat.ForeignKeys(ctx, other)
		if err != nil {
			continue
		}
		for _, fk := range fks {
			if fk.ForeignTable == table {
				ti.ReferencedBy = append(ti.ReferencedBy, fk)
			}
		}
	}
	return ti, nil
}

func inspectTable(ctx context.Context, cat database.Catalog, table string) (*TableInfo, error) {
	cols, err := cat.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	fks, err := cat.ForeignKeys(ctx, table)
	if err != nil {
		return nil, err
	}

	ti := &TableInfo{
		Name:         table,
		Columns:      nonNil(cols),
		ForeignKeys:  nonNil(fks),
		ReferencedBy: []database.ForeignKey{},
	}
	// composite keys: first flagged column only
	for _, c := range cols {
		if c.IsPrimaryKey {
			ti.PrimaryKey = c.Name
			break
		}
	}
	return ti, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
