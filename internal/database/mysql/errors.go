package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/koustreak/fkguard/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDuplicateEntry     = 1062
	errNoReferencedRowOld = 1216
	errRowIsReferencedOld = 1217
	errRowIsReferenced    = 1451
	errNoReferencedRow    = 1452
	errBadNull            = 1048
	errCheckViolated      = 3819

	errDBAccessDenied    = 1044
	errAccessDenied      = 1045
	errTableAccessDenied = 1142
	errColAccessDenied   = 1143
	errTooManyConns      = 1040
	errUnknownDatabase   = 1049
	errTooManyUserConns  = 1203
	errConnRefused       = 2003
	errLockWaitTimeout   = 1205
	errQueryTimeout      = 3024
)

// mapError translates go-sql-driver/mysql errors into *errs.Error.
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

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyMySQLCode maps MySQL error numbers to ErrKind.
func classifyMySQLCode(code uint16) errs.ErrKind {
	switch code {
	case errRowIsReferenced, errNoReferencedRow, errRowIsReferencedOld, errNoReferencedRowOld,
		errDuplicateEntry, errBadNull, errCheckViolated:
		return errs.ErrKindConstraintViolation
	case errDBAccessDenied, errAccessDenied, errTableAccessDenied, errColAccessDenied:
		return errs.ErrKindPermissionDenied
	case errTooManyConns, errUnknownDatabase, errTooManyUserConns, errConnRefused:
		return errs.ErrKindConnectionFailed
	case errLockWaitTimeout, errQueryTimeout:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
