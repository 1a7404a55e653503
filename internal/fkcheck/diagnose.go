package fkcheck

import (
	"context"
	"database/sql/driver"

	"github.com/koustreak/fkguard/internal/database"
	"github.com/koustreak/fkguard/internal/logger"
	"github.com/koustreak/fkguard/internal/statement"
)

// Option configures a Diagnoser or a Guard.
type Option func(*options)

type options struct {
	log      *logger.Logger
	dialect  *database.Dialect
	catalog  database.Catalog
	archiver Archiver
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithDialect sets the placeholder style of probe queries. Without it the
// querier's own Dialect() is used when it has one, SQLite otherwise.
func WithDialect(d database.Dialect) Option {
	return func(o *options) { o.dialect = &d }
}

// WithCatalog replaces the catalog a Guard introspects. By default a Guard
// caches the catalog of the database it wraps.
func WithCatalog(c database.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithArchiver stores every diagnosed failure through a. Archive
// errors are logged and never change the error returned to the caller.
func WithArchiver(a Archiver) Option {
	return func(o *options) { o.archiver = a }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	return o
}

// Diagnoser explains why an INSERT, UPDATE or DELETE broke a foreign key.
// It only reads: every probe is a parameterized SELECT run on db.
type Diagnoser struct {
	db      database.Querier
	cat     database.Catalog
	dialect database.Dialect
	log     *logger.Logger
}

// NewDiagnoser returns a Diagnoser that probes db and reads schema from cat.
func NewDiagnoser(db database.Querier, cat database.Catalog, opts ...Option) *Diagnoser {
	o := buildOptions(opts)

	dialect := database.DialectSQLite
	if d, ok := db.(interface{ Dialect() database.Dialect }); ok {
		dialect = d.Dialect()
	}
	if o.dialect != nil {
		dialect = *o.dialect
	}

	return &Diagnoser{db: db, cat: cat, dialect: dialect, log: o.log}
}

// Diagnose inspects the database state a failed statement ran against and
// reports which foreign keys it broke. It never fails: a step that cannot
// be completed is logged at debug level and left out of the result.
//
// Run it after the failure, against the same state. Calling it twice on
// unchanged data returns the same violations in the same order.
func (dg *Diagnoser) Diagnose(ctx context.Context, sql string, args []any) *Diagnosis {
	kind := statement.Classify(sql)
	d := &Diagnosis{
		Statement:  statement.Render(sql, args),
		Kind:       kind,
		Violations: []Violation{},
	}

	table, ok := statement.TableName(sql)
	if !ok {
		dg.skip("table name", nil, map[string]any{"kind": kind.String()})
		return d
	}
	d.Table = table

	switch kind {
	case statement.KindInsert, statement.KindUpdate:
		dg.diagnoseWrite(ctx, d, sql, args)
	case statement.KindDelete:
		dg.diagnoseDelete(ctx, d, sql, args)
	}

	dg.log.With().
		Str("table", table).
		Str("kind", kind.String()).
		Int("violations", len(d.Violations)).
		Logger().
		Info("foreign key failure diagnosed")
	return d
}

// diagnoseWrite checks every foreign key of the written table: a value
// bound to its local column must exist in the referenced column.
func (dg *Diagnoser) diagnoseWrite(ctx context.Context, d *Diagnosis, sql string, args []any) {
	fks, err := dg.cat.ForeignKeys(ctx, d.Table)
	if err != nil {
		dg.skip("foreign keys", err, map[string]any{"table": d.Table})
		return
	}
	d.ForeignKeys = fks

	for _, fk := range fks {
		v, ok := statement.ValueFor(fk.LocalColumn, sql, args)
		if !ok || isNull(v) {
			continue
		}

		found, err := dg.exists(ctx, fk.ForeignTable, fk.ForeignColumn, v)
		if err != nil {
			dg.skip("reference probe", err, map[string]any{"foreign_key": fk.String()})
			continue
		}
		if !found {
			d.Violations = append(d.Violations, Violation{
				Kind:       MissingReference,
				Table:      d.Table,
				ForeignKey: fk,
				Value:      statement.Display(v),
			})
		}
	}
}

// diagnoseDelete selects the rows the DELETE targets and, for each, looks
// for rows in other tables (or the same one) that still reference it.
func (dg *Diagnoser) diagnoseDelete(ctx context.Context, d *Diagnosis, sql string, args []any) {
	refs, err := ReferencesTo(ctx, dg.cat, d.Table)
	if err != nil {
		dg.skip("referencing keys", err, map[string]any{"table": d.Table})
		return
	}
	d.ForeignKeys = refs
	if len(refs) == 0 {
		return
	}

	pk, ok, err := PrimaryKeyOf(ctx, dg.cat, d.Table)
	if err != nil || !ok {
		dg.skip("primary key", err, map[string]any{"table": d.Table})
		return
	}

	rows, ok := dg.deletedRows(ctx, d.Table, sql, args)
	if !ok {
		return
	}

	for _, row := range rows {
		var pkValue *string
		if s, ok := database.Text(row[pk]); ok {
			pkValue = &s
		}

		for i := range refs {
			fk := &refs[i]
			v, present := row[fk.ForeignColumn]
			if !present || isNull(v) {
				continue
			}
			v = probeValue(v)

			found, err := dg.exists(ctx, fk.LocalTable, fk.LocalColumn, v)
			if err != nil {
				dg.skip("dependent probe", err, map[string]any{"foreign_key": fk.String()})
				continue
			}
			if !found {
				continue
			}

			ref := FailedDeleteReference{
				ForeignKey:       fk,
				PrimaryKeyColumn: pk,
				PrimaryKeyValue:  pkValue,
				ConflictingValue: statement.Display(v),
			}
			d.Violations = append(d.Violations, ref.Violation(d.Table))
		}
	}
}

// deletedRows selects the rows of table matched by the DELETE's WHERE
// clause, its placeholders bound to the statement's own arguments. A
// DELETE without WHERE targets every row.
func (dg *Diagnoser) deletedRows(ctx context.Context, table, sql string, args []any) ([]map[string]any, bool) {
	b := database.Select(table, dg.dialect)

	if w, ok := statement.DeleteWhere(sql); ok {
		clause, bound, ok := w.Bind(dg.dialect, args)
		if !ok {
			dg.skip("where arguments", nil, map[string]any{"table": table, "args": len(args)})
			return nil, false
		}
		b.WhereRaw(clause, bound...)
	}

	query, qargs, err := b.Build()
	if err != nil {
		dg.skip("row selection", err, map[string]any{"table": table})
		return nil, false
	}
	rows, err := dg.db.Query(ctx, query, qargs...)
	if err != nil {
		dg.skip("row selection", err, map[string]any{"table": table})
		return nil, false
	}
	result, err := database.ScanRows(rows)
	if err != nil {
		dg.skip("row selection", err, map[string]any{"table": table})
		return nil, false
	}
	return result, true
}

// exists reports whether table has a row whose column equals value.
// The rows are drained and closed before returning so a single-connection
// pool is free for the next probe.
func (dg *Diagnoser) exists(ctx context.Context, table, column string, value any) (bool, error) {
	query, args, err := database.Select(table, dg.dialect).
		Columns("1").
		Where(column, "=", value).
		Limit(1).
		Build()
	if err != nil {
		return false, err
	}

	rows, err := dg.db.Query(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return database.Exists(rows)
}

func (dg *Diagnoser) skip(step string, err error, fields map[string]any) {
	fields["step"] = step
	dg.log.DebugWith("diagnosis step skipped", err, fields)
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	if valuer, ok := v.(driver.Valuer); ok {
		val, err := valuer.Value()
		return err == nil && val == nil
	}
	return false
}

// probeValue turns a scanned text column back into a string so it compares
// equal to TEXT columns; engines treat a []byte parameter as a blob.
func probeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
