package fkcheck

import (
	"context"

	"github.com/koustreak/fkguard/internal/database"
	"github.com/koustreak/fkguard/internal/errs"
	"github.com/koustreak/fkguard/internal/logger"
	"github.com/koustreak/fkguard/internal/statement"
)

// Error is returned by a Guard when the engine rejected a statement with a
// constraint violation. It always wraps the engine's error.
type Error struct {
	// Statement is the failed SQL with its arguments substituted.
	Statement string
	Diagnosis *Diagnosis
	Cause     error

	bare bool
}

// Error renders the statement, then the diagnosis on the next line. The
// diagnosis line is omitted when nothing was found and the table has no
// foreign keys.
func (e *Error) Error() string {
	if e.bare {
		msg := "sql=" + e.Statement
		if e.Diagnosis != nil && len(e.Diagnosis.ForeignKeys) > 0 {
			msg += ", foreignKeyList=[" + joinKeys(e.Diagnosis.ForeignKeys) + "]"
		}
		return msg
	}

	msg := e.Statement
	if detail := e.Diagnosis.Message(); detail != "" {
		msg += "\n" + detail
	}
	return msg
}

// Unwrap returns the engine's error, so errs.IsConstraintViolation and
// errors.As keep working on the result.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Archiver receives each diagnosed failure.
type Archiver interface {
	Archive(ctx context.Context, d *Diagnosis, cause error) (string, error)
}

// Guard runs statements on a database.DB and turns constraint failures into
// *Error values that say which foreign key broke and why.
type Guard struct {
	db       database.DB
	dg       *Diagnoser
	cat      database.Catalog
	archiver Archiver
	log      *logger.Logger
}

// NewGuard wraps db. Schema metadata is read once per table and cached for
// the life of the Guard unless WithCatalog supplies another catalog.
func NewGuard(db database.DB, opts ...Option) *Guard {
	o := buildOptions(opts)

	cat := o.catalog
	if cat == nil {
		cat = NewCachedCatalog(db)
	}

	return &Guard{
		db:       db,
		dg:       NewDiagnoser(db, cat, opts...),
		cat:      cat,
		archiver: o.archiver,
		log:      o.log,
	}
}

// Diagnoser returns the Guard's diagnoser, for diagnosing a statement
// without running it.
func (g *Guard) Diagnoser() *Diagnoser { return g.dg }

// Catalog returns the catalog the Guard reads schema from.
func (g *Guard) Catalog() database.Catalog { return g.cat }

// Exec runs a statement that returns no rows.
func (g *Guard) Exec(ctx context.Context, sql string, args ...any) (database.Result, error) {
	return Check(ctx, g, sql, args, func(ctx context.Context) (database.Result, error) {
		return g.db.Exec(ctx, sql, args...)
	})
}

// Query runs a statement that returns rows, such as INSERT ... RETURNING.
// Some engines only execute the statement once rows are read, so a
// constraint failure may also surface from the returned Rows' Err.
func (g *Guard) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	rows, err := Check(ctx, g, sql, args, func(ctx context.Context) (database.Rows, error) {
		return g.db.Query(ctx, sql, args...)
	})
	if err != nil {
		return rows, err
	}
	return &guardedRows{Rows: rows, ctx: ctx, guard: g, sql: sql, args: args}, nil
}

// guardedRows diagnoses a constraint failure reported during iteration.
// The diagnosis runs once; later Err calls return the same *Error.
type guardedRows struct {
	database.Rows

	ctx   context.Context
	guard *Guard
	sql   string
	args  []any

	explained *Error
}

func (r *guardedRows) Err() error {
	if r.explained != nil {
		return r.explained
	}
	err := r.Rows.Err()
	if err == nil || !errs.IsConstraintViolation(err) {
		return err
	}
	r.Rows.Close()
	r.explained = r.guard.explain(r.ctx, r.sql, r.args, err)
	return r.explained
}

// Insert writes one row built from values, columns in sorted order.
func (g *Guard) Insert(ctx context.Context, table string, values map[string]any) (database.Result, error) {
	sql, args, err := database.BuildInsert(g.db.Dialect(), table, values)
	if err != nil {
		return database.Result{}, err
	}
	return g.Exec(ctx, sql, args...)
}

// ExecRaw runs a statement with no bound arguments. A constraint failure
// is reported as the statement and the table's foreign key list; no probes
// are run.
func (g *Guard) ExecRaw(ctx context.Context, sql string) (database.Result, error) {
	res, err := g.db.Exec(ctx, sql)
	if err == nil || !errs.IsConstraintViolation(err) {
		return res, err
	}

	d := &Diagnosis{Statement: sql, Kind: statement.Classify(sql), Violations: []Violation{}}
	if table, ok := statement.TableName(sql); ok {
		d.Table = table
		if fks, ferr := g.cat.ForeignKeys(ctx, table); ferr == nil {
			d.ForeignKeys = fks
		}
	}
	return res, &Error{Statement: sql, Diagnosis: d, Cause: err, bare: true}
}

// Check runs fn and, when it fails with a constraint violation, diagnoses
// sql and args and returns an *Error wrapping fn's error. fn's result is
// returned unchanged either way. Any other error passes through as is.
func Check[R any](ctx context.Context, g *Guard, sql string, args []any, fn func(context.Context) (R, error)) (R, error) {
	res, err := fn(ctx)
	if err == nil || !errs.IsConstraintViolation(err) {
		return res, err
	}
	return res, g.explain(ctx, sql, args, err)
}

func (g *Guard) explain(ctx context.Context, sql string, args []any, cause error) *Error {
	d := g.dg.Diagnose(ctx, sql, args)

	if g.archiver != nil {
		key, err := g.archiver.Archive(ctx, d, cause)
		if err != nil {
			g.log.WarnWith("failed to archive diagnosis", err, map[string]any{"table": d.Table})
		} else {
			g.log.InfoWith("diagnosis archived", map[string]any{"table": d.Table, "key": key})
		}
	}

	return &Error{Statement: d.Statement, Diagnosis: d, Cause: cause}
}
