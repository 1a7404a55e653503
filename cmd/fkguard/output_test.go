package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/koustreak/fkguard/internal/database"
	"github.com/koustreak/fkguard/internal/fkcheck"
	"github.com/koustreak/fkguard/internal/schema"
	"github.com/koustreak/fkguard/internal/statement"
)

var orderCustomer = fkcheck.ForeignKey{
	LocalTable: "orders", LocalColumn: "customer_id",
	ForeignTable: "customers", ForeignColumn: "id",
}

func TestPrinter_Failure(t *testing.T) {
	var buf bytes.Buffer
	newPrinter(&buf).failure(&fkcheck.Error{
		Statement: "INSERT INTO orders (customer_id) VALUES (9)",
		Cause:     errors.New("FOREIGN KEY constraint failed"),
		Diagnosis: &fkcheck.Diagnosis{
			Kind:       statement.KindInsert,
			Violations: []fkcheck.Violation{{Kind: fkcheck.MissingReference, Table: "orders", ForeignKey: orderCustomer, Value: "9"}},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "INSERT INTO orders (customer_id) VALUES (9)")
	assert.Contains(t, out, "FOREIGN KEY constraint failed")
	assert.Contains(t, out, "no row with id = 9 in customers")
}

func TestPrinter_DiagnosisClean(t *testing.T) {
	var buf bytes.Buffer
	newPrinter(&buf).diagnosis(&fkcheck.Diagnosis{Statement: "DELETE FROM tags", Kind: statement.KindDelete})
	assert.Contains(t, buf.String(), "no foreign-key problems found")
}

func TestPrinter_Table(t *testing.T) {
	var buf bytes.Buffer
	newPrinter(&buf).table(&schema.TableInfo{
		Name:         "customers",
		PrimaryKey:   "id",
		ReferencedBy: []database.ForeignKey{orderCustomer},
	})

	out := buf.String()
	assert.Contains(t, out, "primary key:  id")
	assert.Contains(t, out, "referenced by:")
	assert.Contains(t, out, "orders.customer_id -> customers.id")
}

func TestPrinter_Result(t *testing.T) {
	var buf bytes.Buffer
	newPrinter(&buf).result(database.Result{RowsAffected: 3, LastInsertID: 17})
	assert.Contains(t, buf.String(), "3 row(s) affected")
	assert.Contains(t, buf.String(), "last insert id 17")
}
