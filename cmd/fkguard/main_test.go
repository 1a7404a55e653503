package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/fkguard/internal/database"
	"github.com/koustreak/fkguard/internal/database/sqlite"
	"github.com/koustreak/fkguard/internal/errs"
)

var shop = []string{
	`CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT)`,
	`CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER REFERENCES customers(id))`,
	`INSERT INTO customers (id, name) VALUES (1, 'ada')`,
	`INSERT INTO orders (id, customer_id) VALUES (10, 1)`,
}

// seed creates a shared in-memory database and keeps one connection open
// for the life of the test so the commands see the same data.
func seed(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := sqlite.New(ctx, database.DefaultConfig(dsn))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	for _, stmt := range shop {
		_, err := db.Exec(ctx, stmt)
		require.NoError(t, err)
	}
	return dsn
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, dsn string, args ...string) (string, error) {
	t.Helper()
	for _, name := range []string{"exec", "diagnose", "fks", "schema"} {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		require.NoError(t, c.Flags().Set("json", "false"))
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--driver", "sqlite", "--dsn", dsn, "--log-level", "disabled"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExec_Success(t *testing.T) {
	dsn := seed(t)

	out, err := run(t, dsn, "exec", "INSERT INTO orders (id, customer_id) VALUES (?, ?)", "11", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 row(s) affected")
}

func TestExec_ForeignKeyFailure(t *testing.T) {
	dsn := seed(t)

	out, err := run(t, dsn, "exec", "INSERT INTO orders (id, customer_id) VALUES (?, ?)", "12", "99")
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "INSERT INTO orders (id, customer_id) VALUES (12, 99)")
	assert.Contains(t, out, "FK error (orders.customer_id -> customers.id): no row with id = 99 in customers")
}

func TestExec_WithoutArgsReportsKeyList(t *testing.T) {
	dsn := seed(t)

	out, err := run(t, dsn, "exec", "INSERT INTO orders (id, customer_id) VALUES (12, 99)")
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "foreign_key_list=[orders.customer_id -> customers.id]")
}

func TestExec_JSON(t *testing.T) {
	dsn := seed(t)

	out, err := run(t, dsn, "exec", "--json", "DELETE FROM customers WHERE id = ?", "1")
	assert.ErrorIs(t, err, errReported)

	var body struct {
		Table      string `json:"table"`
		Violations []struct {
			Kind  string `json:"kind"`
			Value string `json:"value"`
		} `json:"violations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body), out)
	assert.Equal(t, "customers", body.Table)
	require.Len(t, body.Violations, 1)
	assert.Equal(t, "dependent_row", body.Violations[0].Kind)
	assert.Equal(t, "1", body.Violations[0].Value)
}

func TestDiagnose(t *testing.T) {
	dsn := seed(t)

	out, err := run(t, dsn, "diagnose", "UPDATE orders SET customer_id = ? WHERE id = ?", "5", "10")
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, out, "no row with id = 5 in customers")

	out, err = run(t, dsn, "diagnose", "INSERT INTO orders (id, customer_id) VALUES (?, ?)", "13", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "FK error")
}

func TestFKs(t *testing.T) {
	dsn := seed(t)

	out, err := run(t, dsn, "fks", "customers")
	require.NoError(t, err)
	assert.Contains(t, out, "primary key:  id")
	assert.Contains(t, out, "orders.customer_id -> customers.id")

	_, err = run(t, dsn, "fks", "ghosts")
	assert.True(t, errs.IsNotFound(err))
}

func TestSchema(t *testing.T) {
	dsn := seed(t)

	out, err := run(t, dsn, "schema", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "orders"`)
}

func TestInvalidDriver(t *testing.T) {
	_, err := run(t, "file:x", "--driver", "oracle", "fks", "t")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestReports_ArchiveDisabled(t *testing.T) {
	dsn := seed(t)

	_, err := run(t, dsn, "reports", "list")
	assert.True(t, errs.IsInvalidInput(err))
}
