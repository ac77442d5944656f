package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env
	for _, k := range []string{"DB_DRIVER", "LEDGER_BACKEND", "DEFAULT_TZ", "TICK_INTERVAL", "WORKERS", "REDIS_ADDR"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "sql", cfg.LedgerBackend)
	assert.Equal(t, "America/New_York", cfg.DefaultTZ)
	assert.Equal(t, "08:00", cfg.DefaultTriggerTime)
	assert.Equal(t, time.Minute, cfg.TickInterval)
	assert.Equal(t, 15*time.Minute, cfg.ReconcileInterval)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, []string{"localhost:6379"}, cfg.RedisAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LEDGER_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "r1:6379,r2:6379")
	t.Setenv("TICK_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"r1:6379", "r2:6379"}, cfg.RedisAddr)
	assert.Equal(t, 30*time.Second, cfg.TickInterval)
}

func TestValidate(t *testing.T) {
	base := Config{DBDriver: "sqlite", LedgerBackend: "sql", TickInterval: time.Minute, ReconcileInterval: time.Minute}
	require.NoError(t, base.Validate())

	pg := base
	pg.DBDriver = "postgres"
	assert.Error(t, pg.Validate())
	pg.DatabaseDSN = "postgres://localhost/dailyping"
	assert.NoError(t, pg.Validate())

	bad := base
	bad.LedgerBackend = "etcd"
	assert.Error(t, bad.Validate())

	bad = base
	bad.DBDriver = "mysql"
	assert.Error(t, bad.Validate())

	bad = base
	bad.TickInterval = 0
	assert.Error(t, bad.Validate())
}
