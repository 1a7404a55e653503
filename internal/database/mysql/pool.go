package mysql

import (
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/koustreak/fkguard/internal/database"
	"github.com/koustreak/fkguard/internal/errs"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
)

// buildPool configures and returns a *sql.DB with pool settings.
// The DSN is parsed up front so a malformed one fails before any dial.
func buildPool(cfg *database.Config) (*sql.DB, error) {
	dsnCfg, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid mysql DSN", err)
	}
	if cfg.ConnectTimeout > 0 && dsnCfg.Timeout == 0 {
		dsnCfg.Timeout = cfg.ConnectTimeout
	}

	connector, err := mysql.NewConnector(dsnCfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid mysql DSN", err)
	}
	db := sql.OpenDB(connector)

	maxOpen := int(cfg.MaxConns)
	if maxOpen == 0 {
		maxOpen = defaultMaxOpenConns
	}
	maxIdle := int(cfg.MinConns)
	if maxIdle == 0 {
		maxIdle = min(defaultMaxIdleConns, maxOpen)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(durationOr(cfg.MaxConnLifetime, defaultConnMaxLifetime))
	db.SetConnMaxIdleTime(durationOr(cfg.MaxConnIdleTime, defaultConnMaxIdleTime))

	return db, nil
}

func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
