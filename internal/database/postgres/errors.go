package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/fkguard/internal/errs"
)

// PostgreSQL SQLSTATE codes and classes handled specially.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassIntegrity     = "23" // integrity_constraint_violation, incl. 23503 foreign_key_violation
	pgClassConnection    = "08"
	pgClassAuthorization = "28"

	pgErrInsufficientPrivilege = "42501"
	pgErrQueryCanceled         = "57014" // statement_timeout
)

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifySQLState(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Connection-level errors (TLS, network, auth handshake)
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifySQLState maps a SQLSTATE to ErrKind.
func classifySQLState(code string) errs.ErrKind {
	if len(code) < 2 {
		return errs.ErrKindQueryFailed
	}
	switch class := code[:2]; {
	case class == pgClassIntegrity:
		return errs.ErrKindConstraintViolation
	case class == pgClassConnection:
		return errs.ErrKindConnectionFailed
	case class == pgClassAuthorization || code == pgErrInsufficientPrivilege:
		return errs.ErrKindPermissionDenied
	case code == pgErrQueryCanceled:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
