package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/fkguard/internal/database"
	"github.com/koustreak/fkguard/internal/errs"
)

type stubCatalog struct {
	tables  []string
	fks     map[string][]database.ForeignKey
	columns map[string][]database.ColumnInfo
	broken  map[string]bool
}

func (s *stubCatalog) ListTables(context.Context) ([]string, error) { return s.tables, nil }

func (s *stubCatalog) ForeignKeys(_ context.Context, table string) ([]database.ForeignKey, error) {
	if s.broken[table] {
		return nil, errors.New("boom")
	}
	return s.fks[table], nil
}

func (s *stubCatalog) Columns(_ context.Context, table string) ([]database.ColumnInfo, error) {
	return s.columns[table], nil
}

func shop() *stubCatalog {
	orderCustomer := database.ForeignKey{LocalTable: "orders", LocalColumn: "customer_id", ForeignTable: "customers", ForeignColumn: "id"}
	managed := database.ForeignKey{LocalTable: "customers", LocalColumn: "referrer_id", ForeignTable: "customers", ForeignColumn: "id"}
	return &stubCatalog{
		tables: []string{"customers", "orders", "audit"},
		fks: map[string][]database.ForeignKey{
			"customers": {managed},
			"orders":    {orderCustomer},
		},
		columns: map[string][]database.ColumnInfo{
			"customers": {{Name: "id", IsPrimaryKey: true}, {Name: "referrer_id"}},
			"orders":    {{Name: "id", IsPrimaryKey: true}, {Name: "customer_id"}},
			"audit":     {{Name: "line"}},
		},
	}
}

func TestInspect(t *testing.T) {
	info, err := Inspect(context.Background(), shop())
	require.NoError(t, err)
	require.Len(t, info.Tables, 3)

	customers, ok := info.Table("customers")
	require.True(t, ok)
	assert.Equal(t, "id", customers.PrimaryKey)
	require.Len(t, customers.ReferencedBy, 2)
	assert.Equal(t, "referrer_id", customers.ReferencedBy[0].LocalColumn, "self reference comes first in table order")
	assert.Equal(t, "orders", customers.ReferencedBy[1].LocalTable)

	orders, ok := info.Table("orders")
	require.True(t, ok)
	want := TableInfo{
		Name:       "orders",
		PrimaryKey: "id",
		Columns:    []database.ColumnInfo{{Name: "id", IsPrimaryKey: true}, {Name: "customer_id"}},
		ForeignKeys: []database.ForeignKey{
			{LocalTable: "orders", LocalColumn: "customer_id", ForeignTable: "customers", ForeignColumn: "id"},
		},
		ReferencedBy: []database.ForeignKey{},
	}
	if diff := cmp.Diff(want, *orders); diff != "" {
		t.Errorf("orders snapshot mismatch (-want +got):\n%s", diff)
	}

	audit, ok := info.Table("audit")
	require.True(t, ok)
	assert.Empty(t, audit.PrimaryKey)
	assert.NotNil(t, audit.ForeignKeys)
	assert.NotNil(t, audit.ReferencedBy)

	_, ok = info.Table("ghosts")
	assert.False(t, ok)
	assert.Len(t, info.ForeignKeys(), 2)
}

func TestInspect_PropagatesCatalogErrors(t *testing.T) {
	cat := shop()
	cat.broken = map[string]bool{"orders": true}

	_, err := Inspect(context.Background(), cat)
	assert.Error(t, err)
}

func TestInspectTable(t *testing.T) {
	cat := shop()
	cat.broken = map[string]bool{"audit": true}

	ti, err := InspectTable(context.Background(), cat, "customers")
	require.NoError(t, err)
	assert.Equal(t, "id", ti.PrimaryKey)
	assert.Len(t, ti.ForeignKeys, 1)
	assert.Len(t, ti.ReferencedBy, 2, "unreadable tables are skipped")

	_, err = InspectTable(context.Background(), cat, "ghosts")
	assert.True(t, errs.IsNotFound(err))
}
