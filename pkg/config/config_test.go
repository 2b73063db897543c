package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "memory")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Ledger.Driver)
	assert.Equal(t, 10*time.Second, cfg.Inventory.DuplicateWindow)
	assert.Equal(t, 15, cfg.JWT.ProposalMinutes)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_LeeVariablesDeEntorno(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/k.db")
	t.Setenv("DUPLICATE_WINDOW_SECONDS", "30")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("DB_FORCE_IPV4", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Ledger.Driver)
	assert.Equal(t, "/tmp/k.db", cfg.Ledger.SQLitePath)
	assert.Equal(t, 30*time.Second, cfg.Inventory.DuplicateWindow)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 4, cfg.DB.MaxConns)
	assert.True(t, cfg.DB.ForceIPv4)
}

func TestValidate(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "mongo")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("LEDGER_DRIVER", "memory")
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	_, err = Load()
	assert.Error(t, err, "production exige secreto")
}

func TestDSN_EscapaContraseña(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "kardex", Password: "p@ss:w/rd", DBName: "epp", SSLMode: "disable"}
	assert.Equal(t, "postgres://kardex:p%40ss%3Aw%2Frd@db:5432/epp?sslmode=disable", c.DSN())
	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
