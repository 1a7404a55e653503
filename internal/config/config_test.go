package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/koustreak/fkguard/internal/database"
	"github.com/koustreak/fkguard/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fkguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  dsn: postgres://fk:fk@localhost:5432/shop
  max_conns: 8
  query_timeout: 5s
log:
  level: debug
  format: json
server:
  addr: ":9090"
archive:
  enabled: true
  endpoint: minio:9000
  access_key: ak
  secret_key: sk
  bucket: reports
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, int32(8), cfg.Database.MaxConns)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, "reports", cfg.Archive.Bucket)
	assert.False(t, cfg.Archive.UseSSL)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "log:\n  level: warn\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:fkguard.db", cfg.Database.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: sqlite\n  dsn: file:a.db\n")
	t.Setenv(EnvDBDriver, "MySQL")
	t.Setenv(EnvDBDSN, "fk:fk@tcp(localhost:3306)/shop")
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvServerAddr, "127.0.0.1:7000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "fk:fk@tcp(localhost:3306)/shop", cfg.Database.DSN)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errs.IsNotFound(err))

	_, err = Load(writeConfig(t, "database: [not, a, map"))
	assert.True(t, errs.IsInvalidInput(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, false},
		{"empty dsn", func(c *Config) { c.Database.DSN = "  " }, false},
		{"negative pool", func(c *Config) { c.Database.MaxConns = -1 }, false},
		{"bad level", func(c *Config) { c.Log.Level = "chatty" }, false},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, false},
		{"archive without bucket", func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Bucket = ""
		}, false},
		{"archive disabled without bucket", func(c *Config) { c.Archive.Bucket = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errs.IsInvalidInput(err), "got %v", err)
			}
		})
	}
}

func TestDatabaseConfig(t *testing.T) {
	cfg := Default()
	dbCfg := cfg.DatabaseConfig()
	assert.Equal(t, database.DriverSQLite, dbCfg.Driver)
	assert.Equal(t, int32(1), dbCfg.MaxConns)

	cfg.Database.Driver = "postgres"
	cfg.Database.MaxConns = 0
	cfg.Database.QueryTimeout = 2 * time.Second
	dbCfg = cfg.DatabaseConfig()
	assert.Equal(t, int32(4), dbCfg.MaxConns)
	assert.Equal(t, 2*time.Second, dbCfg.QueryTimeout)
}

func TestApplyEnv_UnsetLeavesFile(t *testing.T) {
	cfg := Default()
	cfg.applyEnv(func(string) (string, bool) { return "", false })
	assert.Equal(t, Default(), cfg)
}
