package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/fkguard/internal/database"
	"github.com/koustreak/fkguard/internal/database/sqlite"
	"github.com/koustreak/fkguard/internal/errs"
	"github.com/koustreak/fkguard/internal/fkcheck"
	"github.com/koustreak/fkguard/internal/reportstore"
	"github.com/koustreak/fkguard/internal/schema"
	"github.com/koustreak/fkguard/internal/statement"
)

const shopDDL = `
CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE orders (
	id          INTEGER PRIMARY KEY,
	customer_id INTEGER REFERENCES customers(id)
);
INSERT INTO customers (id, name) VALUES (1, 'ada');
INSERT INTO orders (id, customer_id) VALUES (10, 1)`

type fixture struct {
	handler http.Handler
	store   *reportstore.Memory
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := sqlite.New(ctx, database.DefaultConfig(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	for _, stmt := range strings.Split(shopDDL, ";") {
		_, err := db.Exec(ctx, stmt)
		require.NoError(t, err)
	}

	store := reportstore.NewMemory()
	guard := fkcheck.NewGuard(db, fkcheck.WithArchiver(reportstore.NewArchiver(store)))
	srv := New(db, guard, nil, WithReportStore(store), WithQueryTimeout(5*time.Second))
	return fixture{handler: srv.Router(), store: store}
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestExec_Success(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/exec",
		`{"sql":"INSERT INTO orders (id, customer_id) VALUES (?, ?)","args":[11,1]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[execResponse](t, rec)
	assert.Equal(t, int64(1), resp.RowsAffected)
	assert.Equal(t, int64(11), resp.LastInsertID)
}

func TestExec_ConstraintConflict(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/exec",
		`{"sql":"INSERT INTO orders (id, customer_id) VALUES (?, ?)","args":[12,99]}`)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	resp := decodeBody[conflictResponse](t, rec)
	assert.Equal(t, "insert", resp.Diagnosis.Kind)
	require.Len(t, resp.Diagnosis.Violations, 1)
	assert.Equal(t, "99", resp.Diagnosis.Violations[0].Value)
	assert.Contains(t, resp.Error, "no row with id = 99 in customers")

	keys, err := f.store.List(context.Background(), "reports/", 0)
	require.NoError(t, err)
	assert.Len(t, keys, 1, "the failure is archived")

	rec = f.do(t, http.MethodGet, "/v1/"+keys[0], "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody[reportstore.Report](t, rec)
	assert.Equal(t, "orders", report.Table)
}

func TestExec_DeleteConflict(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/exec", `{"sql":"DELETE FROM customers WHERE id = ?","args":[1]}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	resp := decodeBody[conflictResponse](t, rec)
	require.Len(t, resp.Diagnosis.Violations, 1)
	assert.Equal(t, fkcheck.DependentRow, resp.Diagnosis.Violations[0].Kind)
}

func TestExec_BadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"sql":`, http.StatusBadRequest},
		{"empty sql", `{"sql":"  "}`, http.StatusBadRequest},
		{"object argument", `{"sql":"SELECT ?","args":[{"a":1}]}`, http.StatusBadRequest},
		{"unknown table", `{"sql":"INSERT INTO ghosts (id) VALUES (1)"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/exec", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestExec_RejectsNonJSON(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/exec", strings.NewReader("sql=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestDiagnose_DoesNotExecute(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/diagnose",
		`{"sql":"UPDATE orders SET customer_id = ? WHERE id = ?","args":[42,10]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[diagnosisResponse](t, rec)
	assert.Equal(t, "UPDATE orders SET customer_id = 42 WHERE id = 10", resp.Statement)
	assert.Equal(t, "orders", resp.Table)
	require.Len(t, resp.Violations, 1)

	// The row is untouched, so deleting customer 1 still conflicts.
	rec = f.do(t, http.MethodPost, "/v1/exec", `{"sql":"DELETE FROM customers WHERE id = ?","args":[1]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestForeignKeys(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/tables/customers/foreign-keys", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[schema.TableInfo](t, rec)
	assert.Equal(t, "id", resp.PrimaryKey)
	assert.Empty(t, resp.ForeignKeys)
	require.Len(t, resp.ReferencedBy, 1)
	assert.Equal(t, "orders", resp.ReferencedBy[0].LocalTable)

	rec = f.do(t, http.MethodGet, "/v1/tables/ghosts/foreign-keys", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSchema(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/schema", "")
	require.Equal(t, http.StatusOK, rec.Code)

	info := decodeBody[schema.SchemaInfo](t, rec)
	orders, ok := info.Table("orders")
	require.True(t, ok)
	require.Len(t, orders.ForeignKeys, 1)
	assert.Equal(t, "customers", orders.ForeignKeys[0].ForeignTable)
}

func TestReport_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/reports/2024/01/01/missing.json", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"not_found"`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind errs.ErrKind
		want int
	}{
		{errs.ErrKindInvalidInput, http.StatusBadRequest},
		{errs.ErrKindNotFound, http.StatusNotFound},
		{errs.ErrKindTimeout, http.StatusGatewayTimeout},
		{errs.ErrKindConnectionFailed, http.StatusServiceUnavailable},
		{errs.ErrKindPermissionDenied, http.StatusForbidden},
		{errs.ErrKindConstraintViolation, http.StatusConflict},
		{errs.ErrKindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(errs.New(tt.kind, "x")), tt.kind.String())
	}
}

func TestNormalizeArg(t *testing.T) {
	v, err := normalizeArg(json.Number("42"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = normalizeArg(json.Number("2.5"))
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	v, err = normalizeArg(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = normalizeArg([]any{1})
	assert.Error(t, err)
}

func TestToResponse_EmptyViolationsEncodeAsArray(t *testing.T) {
	resp := toResponse(&fkcheck.Diagnosis{Statement: "DELETE FROM t", Kind: statement.KindDelete})

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"violations":[]`)
}
