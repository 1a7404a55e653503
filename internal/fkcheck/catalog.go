package fkcheck

import (
	"context"
	"sync"

	"github.com/koustreak/fkguard/internal/database"
)

// PrimaryKeyOf returns the first column of table flagged as primary key.
// Composite keys yield only their first flagged column.
func PrimaryKeyOf(ctx context.Context, cat database.Catalog, table string) (string, bool, error) {
	cols, err := cat.Columns(ctx, table)
	if err != nil {
		return "", false, err
	}
	for _, c := range cols {
		if c.IsPrimaryKey {
			return c.Name, true, nil
		}
	}
	return "", false, nil
}

// ReferencesTo returns every foreign key, across all tables, whose target
// is table. Self references are included. Tables whose foreign keys cannot
// be read are skipped.
func ReferencesTo(ctx context.Context, cat database.Catalog, table string) ([]ForeignKey, error) {
	tables, err := cat.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	var refs []ForeignKey
	for _, t := range tables {
		fks, err := cat.ForeignKeys(ctx, t)
		if err != nil {
			continue
		}
		for _, fk := range fks {
			if fk.ForeignTable == table {
				refs = append(refs, fk)
			}
		}
	}
	return refs, nil
}

// CachedCatalog memoises a Catalog for the life of the process. Entries are
// never invalidated: the schema is assumed not to change underneath a
// running diagnoser. Errors are not cached.
type CachedCatalog struct {
	inner database.Catalog

	mu      sync.RWMutex
	tables  []string
	fks     map[string][]ForeignKey
	columns map[string][]database.ColumnInfo
}

// NewCachedCatalog wraps inner.
func NewCachedCatalog(inner database.Catalog) *CachedCatalog {
	return &CachedCatalog{
		inner:   inner,
		fks:     make(map[string][]ForeignKey),
		columns: make(map[string][]database.ColumnInfo),
	}
}

func (c *CachedCatalog) ListTables(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	tables := c.tables
	c.mu.RUnlock()
	if tables != nil {
		return tables, nil
	}

	tables, err := c.inner.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	if tables == nil {
		tables = []string{}
	}
	c.mu.Lock()
	c.tables = tables
	c.mu.Unlock()
	return tables, nil
}

func (c *CachedCatalog) ForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	c.mu.RLock()
	fks, ok := c.fks[table]
	c.mu.RUnlock()
	if ok {
		return fks, nil
	}

	fks, err := c.inner.ForeignKeys(ctx, table)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.fks[table] = fks
	c.mu.Unlock()
	return fks, nil
}

func (c *CachedCatalog) Columns(ctx context.Context, table string) ([]database.ColumnInfo, error) {
	c.mu.RLock()
	cols, ok := c.columns[table]
	c.mu.RUnlock()
	if ok {
		return cols, nil
	}

	cols, err := c.inner.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.columns[table] = cols
	c.mu.Unlock()
	return cols, nil
}

var _ database.Catalog = (*CachedCatalog)(nil)
