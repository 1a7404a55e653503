package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/koustreak/fkguard/internal/config"
	"github.com/koustreak/fkguard/internal/database"
	"github.com/koustreak/fkguard/internal/database/mysql"
	"github.com/koustreak/fkguard/internal/database/postgres"
	"github.com/koustreak/fkguard/internal/database/sqlite"
	"github.com/koustreak/fkguard/internal/errs"
	"github.com/koustreak/fkguard/internal/fkcheck"
	"github.com/koustreak/fkguard/internal/logger"
	"github.com/koustreak/fkguard/internal/reportstore"
	"github.com/koustreak/fkguard/internal/reportstore/minio"
)

// errReported marks a failure whose details were already printed.
var errReported = errors.New("failure reported")

var (
	cfgPath string
	cfg     *config.Config
	log     *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fkguard",
	Short: "Run SQL through a guard that explains foreign-key failures",
	Long: `fkguard executes INSERT, UPDATE and DELETE statements and, when the
database rejects one with a constraint error, reports exactly which
foreign key was broken and by which value.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgPath, "config", "c", "", "path to the YAML config file")
	flags.String("driver", "", "database driver: sqlite, postgres or mysql (overrides config)")
	flags.String("dsn", "", "database DSN (overrides config)")
	flags.String("log-level", "", "log level (overrides config)")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("driver"); v != "" {
		c.Database.Driver = v
	}
	if v, _ := flags.GetString("dsn"); v != "" {
		c.Database.DSN = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		c.Log.Level = v
	}
	if err := c.Validate(); err != nil {
		return err
	}

	cfg = c
	log = logger.New(c.LoggerConfig())
	logger.SetGlobal(log)
	return nil
}

// session is one open database plus the guard and archive built on it.
type session struct {
	db    database.DB
	guard *fkcheck.Guard
	store reportstore.Store
}

func openSession(ctx context.Context) (*session, error) {
	db, err := openDB(ctx, cfg.DatabaseConfig())
	if err != nil {
		return nil, err
	}

	store, err := openArchive(ctx, cfg.Archive)
	if err != nil {
		db.Close()
		return nil, err
	}

	opts := []fkcheck.Option{fkcheck.WithLogger(log)}
	if store != nil {
		opts = append(opts, fkcheck.WithArchiver(reportstore.NewArchiver(store)))
	}

	return &session{db: db, guard: fkcheck.NewGuard(db, opts...), store: store}, nil
}

func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.WarnWith("closing report store", err, nil)
		}
	}
	s.db.Close()
}

func openDB(ctx context.Context, dbCfg *database.Config) (database.DB, error) {
	switch dbCfg.Driver {
	case database.DriverSQLite:
		return sqlite.New(ctx, dbCfg)
	case database.DriverPostgres:
		return postgres.New(ctx, dbCfg)
	case database.DriverMySQL:
		return mysql.New(ctx, dbCfg)
	default:
		return nil, errs.New(errs.ErrKindInvalidInput, "unsupported driver "+string(dbCfg.Driver))
	}
}

// openArchive returns a nil Store when archiving is disabled.
func openArchive(ctx context.Context, a config.Archive) (reportstore.Store, error) {
	if !a.Enabled {
		return nil, nil
	}
	return minio.New(ctx, &reportstore.Config{
		Endpoint:  a.Endpoint,
		AccessKey: a.AccessKey,
		SecretKey: a.SecretKey,
		UseSSL:    a.UseSSL,
		Bucket:    a.Bucket,
	})
}

// queryContext bounds one CLI command by the configured query timeout.
func queryContext(parent context.Context) (context.Context, context.CancelFunc) {
	if cfg.Database.QueryTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, cfg.Database.QueryTimeout)
}
