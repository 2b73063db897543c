package ledger_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/epp-kardex/internal/infrastructure/ledger"
	"github.com/jhoicas/epp-kardex/pkg/config"
)

func TestOpen_MemoriaConCatalogoDemo(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		App:    config.AppConfig{Env: "development"},
		Ledger: config.LedgerConfig{Driver: config.DriverMemory},
	}
	l, err := ledger.Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Pinger.Ping(ctx))
	p, err := l.Catalog.GetProject(ctx, "OBRA-01")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.IsActive)
}

func TestOpen_MemoriaEnProduccionSinCatalogo(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		App:    config.AppConfig{Env: "production"},
		Ledger: config.LedgerConfig{Driver: config.DriverMemory},
	}
	l, err := ledger.Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer l.Close()

	p, err := l.Catalog.GetProject(ctx, "OBRA-01")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		Ledger: config.LedgerConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "kardex.db"),
			Migrate:    true,
		},
	}
	l, err := ledger.Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Pinger.Ping(ctx))
	p, err := l.Catalog.GetProject(ctx, "NO-EXISTE")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestOpen_DriverDesconocido(t *testing.T) {
	_, err := ledger.Open(context.Background(), &config.Config{Ledger: config.LedgerConfig{Driver: "mongo"}}, zerolog.Nop())
	assert.Error(t, err)
}
