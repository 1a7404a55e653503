// Package config loads fkguard's YAML configuration and applies
// environment overrides on top of it.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/fkguard/internal/database"
	"github.com/koustreak/fkguard/internal/errs"
	"github.com/koustreak/fkguard/internal/logger"
)

// Environment variables that override the file.
const (
	EnvDBDriver   = "FKGUARD_DB_DRIVER"
	EnvDBDSN      = "FKGUARD_DB_DSN"
	EnvLogLevel   = "FKGUARD_LOG_LEVEL"
	EnvServerAddr = "FKGUARD_SERVER_ADDR"
)

type Config struct {
	Database Database `yaml:"database"`
	Log      Log      `yaml:"log"`
	Server   Server   `yaml:"server"`
	Archive  Archive  `yaml:"archive"`
}

type Database struct {
	Driver       string        `yaml:"driver"`
	DSN          string        `yaml:"dsn"`
	MaxConns     int32         `yaml:"max_conns"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

// Archive configures the MinIO bucket diagnosis reports are written to.
type Archive struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Default returns a configuration for a local SQLite file.
func Default() *Config {
	return &Config{
		Database: Database{
			Driver:       string(database.DriverSQLite),
			DSN:          "file:fkguard.db",
			MaxConns:     1,
			QueryTimeout: 30 * time.Second,
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
		Server: Server{
			Addr: ":8080",
		},
		Archive: Archive{
			Endpoint: "localhost:9000",
			Bucket:   "fk-diagnostics",
		},
	}
}

// Load reads path over Default, then applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errs.Wrap(errs.ErrKindNotFound, fmt.Sprintf("config file %q", path), err)
			}
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("read config %q", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("parse config %q", path), err)
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDBDriver); ok {
		c.Database.Driver = v
	}
	if v, ok := lookup(EnvDBDSN); ok {
		c.Database.DSN = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvServerAddr); ok {
		c.Server.Addr = v
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if !database.Driver(c.Database.Driver).Valid() {
		return errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("database.driver: unsupported driver %q (want sqlite, postgres or mysql)", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errs.New(errs.ErrKindInvalidInput, "database.dsn: must not be empty")
	}
	if c.Database.MaxConns < 0 {
		return errs.New(errs.ErrKindInvalidInput, "database.max_conns: must not be negative")
	}
	if c.Log.Level != "" && !logger.ValidLevel(c.Log.Level) {
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("log.level: unknown level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("log.format: unknown format %q", c.Log.Format))
	}
	if c.Archive.Enabled && (c.Archive.Endpoint == "" || c.Archive.Bucket == "") {
		return errs.New(errs.ErrKindInvalidInput, "archive: endpoint and bucket are required when enabled")
	}
	return nil
}

// DatabaseConfig converts the database section into a connection config.
func (c *Config) DatabaseConfig() *database.Config {
	dbCfg := database.DefaultConfig(c.Database.DSN)
	dbCfg.Driver = database.Driver(c.Database.Driver)
	if dbCfg.Driver != database.DriverSQLite {
		dbCfg.MaxConns = 4
	}
	if c.Database.MaxConns > 0 {
		dbCfg.MaxConns = c.Database.MaxConns
		if dbCfg.MinConns > dbCfg.MaxConns {
			dbCfg.MinConns = dbCfg.MaxConns
		}
	}
	if c.Database.QueryTimeout > 0 {
		dbCfg.QueryTimeout = c.Database.QueryTimeout
	}
	return dbCfg
}

// LoggerConfig converts the log section into a logger config.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.DefaultConfig()
	if c.Log.Level != "" {
		lc.Level = c.Log.Level
	}
	if c.Log.Format != "" {
		lc.Format = c.Log.Format
	}
	return lc
}
