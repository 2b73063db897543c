package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/epp-kardex/internal/application/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
)

func seedInput(f *fixture, rows ...inventory.SeedRow) inventory.SeedInput {
	return inventory.SeedInput{
		ProjectCode:  "OBRA-01",
		LocationCode: "ALM-01",
		Reference:    "INV-INICIAL-2026",
		Actor:        "importador",
		Rows:         rows,
	}
}

func TestSeed_IdempotentePorReferencia(t *testing.T) {
	f := newFixture(t)
	in := seedInput(f,
		inventory.SeedRow{ItemName: f.guantes.Name, Quantity: 20},
		inventory.SeedRow{ItemName: f.botas.Name, Size: "42", Quantity: 6},
		inventory.SeedRow{ItemName: f.botas.Name, Size: "43", Quantity: 0},
	)

	res, err := f.seed.Seed(f.ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.False(t, res.Skipped)

	res, err = f.seed.Seed(f.ctx, in)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, res.Inserted)

	assert.Equal(t, int64(20), f.balance(t, f.key(f.guantes, "")))
	assert.Equal(t, int64(6), f.balance(t, f.key(f.botas, "42")))

	list, err := f.kardex.History(f.ctx, inventory.HistoryQuery{Kinds: []entity.MovementKind{entity.KindAdjust}})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	rec, err := f.agg.Reconcile(f.ctx, f.key(f.botas, "42"))
	require.NoError(t, err)
	assert.True(t, rec.InSync)
}

func TestSeed_FilasInvalidas(t *testing.T) {
	f := newFixture(t)

	_, err := f.seed.Seed(f.ctx, seedInput(f, inventory.SeedRow{ItemName: f.guantes.Name, Quantity: -1}))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.seed.Seed(f.ctx, seedInput(f,
		inventory.SeedRow{ItemName: f.guantes.Name, Quantity: 3},
		inventory.SeedRow{ItemName: f.botas.Name, Quantity: 3},
	))
	assert.ErrorIs(t, err, domain.ErrSizeRequired)
	assert.Zero(t, f.balance(t, f.key(f.guantes, "")), "una fila inválida aborta toda la carga")

	_, err = f.seed.Seed(f.ctx, seedInput(f, inventory.SeedRow{ItemName: "Casco", Quantity: 1}))
	assert.ErrorIs(t, err, domain.ErrConstraint)

	noRef := seedInput(f, inventory.SeedRow{ItemName: f.guantes.Name, Quantity: 1})
	noRef.Reference = "  "
	_, err = f.seed.Seed(f.ctx, noRef)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
