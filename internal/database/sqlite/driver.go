// Package sqlite provides a SQLite implementation of database.DB backed by
// mattn/go-sqlite3. Foreign key enforcement is switched on for every
// connection; SQLite leaves it off by default.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/koustreak/fkguard/internal/database"
	"github.com/koustreak/fkguard/internal/errs"
	"github.com/mattn/go-sqlite3"
)

// Driver is a SQLite implementation of database.DB backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db *sql.DB
}

// New opens a SQLite database using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	db, err := sql.Open("sqlite3", withForeignKeys(cfg.DSN))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := &Driver{db: db}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

// withForeignKeys appends the go-sqlite3 DSN flag that runs
// PRAGMA foreign_keys = ON on each new connection.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

// --- database.DB implementation ---

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() {
	_ = d.db.Close()
}

func (d *Driver) Dialect() database.Dialect {
	return database.DialectSQLite
}

func (d *Driver) Exec(ctx context.Context, query string, args ...any) (database.Result, error) {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return database.Result{}, mapError(err, "exec failed")
	}
	affected, _ := res.RowsAffected()
	lastID, _ := res.LastInsertId()
	return database.Result{RowsAffected: affected, LastInsertID: lastID}, nil
}

func (d *Driver) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	return &sqliteRows{rows: rows}, nil
}

// --- database.Catalog implementation ---

func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, mapError(err, "failed to list tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err, "failed to scan table name")
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating tables")
	}
	return tables, nil
}

// ForeignKeys reads PRAGMA foreign_key_list through its table-valued form
// so the table name can be bound instead of spliced into the statement.
func (d *Driver) ForeignKeys(ctx context.Context, table string) ([]database.ForeignKey, error) {
	const q = `SELECT "table", "from", "to" FROM pragma_foreign_key_list(?)`

	rows, err := d.db.QueryContext(ctx, q, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch foreign keys")
	}

	var fks []database.ForeignKey
	for rows.Next() {
		var to sql.NullString
		fk := database.ForeignKey{LocalTable: table}
		if err := rows.Scan(&fk.ForeignTable, &fk.LocalColumn, &to); err != nil {
			_ = rows.Close()
			return nil, mapError(err, "failed to scan foreign key")
		}
		fk.ForeignColumn = to.String
		fks = append(fks, fk)
	}
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return nil, mapError(err, "error iterating foreign keys")
	}

	// REFERENCES parent without a column list targets the parent's primary key.
	for i := range fks {
		if fks[i].ForeignColumn != "" {
			continue
		}
		pk, err := d.primaryKey(ctx, fks[i].ForeignTable)
		if err != nil {
			return nil, err
		}
		fks[i].ForeignColumn = pk
	}
	return fks, nil
}

func (d *Driver) Columns(ctx context.Context, table string) ([]database.ColumnInfo, error) {
	const q = `SELECT name, pk FROM pragma_table_info(?) ORDER BY cid`

	rows, err := d.db.QueryContext(ctx, q, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch columns")
	}
	defer rows.Close()

	var cols []database.ColumnInfo
	for rows.Next() {
		var c database.ColumnInfo
		var pk int
		if err := rows.Scan(&c.Name, &pk); err != nil {
			return nil, mapError(err, "failed to scan column info")
		}
		c.IsPrimaryKey = pk > 0
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating columns")
	}
	return cols, nil
}

func (d *Driver) primaryKey(ctx context.Context, table string) (string, error) {
	cols, err := d.Columns(ctx, table)
	if err != nil {
		return "", err
	}
	for _, c := range cols {
		if c.IsPrimaryKey {
			return c.Name, nil
		}
	}
	return "", errs.New(errs.ErrKindNotFound, fmt.Sprintf("table %q has no primary key", table))
}

// --- sql.DB type wrappers ---

type sqliteRows struct {
	rows *sql.Rows
}

func (r *sqliteRows) Next() bool                 { return r.rows.Next() }
func (r *sqliteRows) Scan(dest ...any) error     { return r.rows.Scan(dest...) }
func (r *sqliteRows) Columns() ([]string, error) { return r.rows.Columns() }
func (r *sqliteRows) Close()                     { _ = r.rows.Close() }
func (r *sqliteRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return mapError(err, "row iteration failed")
	}
	return nil
}

// --- error mapping ---

// mapError translates go-sqlite3 errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return errs.Wrap(classifySQLiteCode(sqliteErr.Code), msg, err)
	}

	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// classifySQLiteCode maps primary SQLite result codes to ErrKind.
func classifySQLiteCode(code sqlite3.ErrNo) errs.ErrKind {
	switch code {
	case sqlite3.ErrConstraint:
		return errs.ErrKindConstraintViolation
	case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrInterrupt:
		return errs.ErrKindTimeout
	case sqlite3.ErrCantOpen, sqlite3.ErrNotADB:
		return errs.ErrKindConnectionFailed
	case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
		return errs.ErrKindPermissionDenied
	default:
		return errs.ErrKindQueryFailed
	}
}
