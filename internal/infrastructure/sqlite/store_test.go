package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/epp-kardex/internal/domain"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	dominv "github.com/jhoicas/epp-kardex/internal/domain/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
)

var t0 = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

type env struct {
	ctx   context.Context
	store *Store
	base  entity.Movement
	emp   int64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, ":memory:", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cat := s.Catalog()
	p := &entity.Project{Code: "OBRA-01", Name: "Obra", IsActive: true}
	require.NoError(t, cat.AddProject(ctx, p))
	l := &entity.Location{Code: "ALM-01", Name: "Almacén", ProjectID: &p.ID, IsActive: true}
	require.NoError(t, cat.AddLocation(ctx, l))
	it := &entity.Item{Name: "Casco", Unit: "unidad", IsActive: true}
	require.NoError(t, cat.AddItem(ctx, it))
	e := &entity.Employee{DNI: "1", FullName: "Juan", IsActive: true}
	require.NoError(t, cat.AddEmployee(ctx, e))

	return &env{
		ctx:   ctx,
		store: s,
		emp:   e.ID,
		base:  entity.Movement{Kind: entity.KindIN, ProjectID: p.ID, LocationID: l.ID, ItemID: it.ID, Quantity: 10, Timestamp: t0},
	}
}

func (e *env) mov(mod func(m *entity.Movement)) *entity.Movement {
	m := e.base.Clone()
	if mod != nil {
		mod(m)
	}
	return m
}

func TestAppend_RoundTripYOrden(t *testing.T) {
	e := newEnv(t)
	repo := e.store.Movements()

	late := e.mov(func(m *entity.Movement) {
		m.Kind, m.Quantity, m.EmployeeID = entity.KindOUT, -3, &e.emp
		m.Timestamp = t0.Add(time.Hour + 1500*time.Nanosecond)
		m.Reason, m.Notes = entity.ReasonWear, "reposición por desgaste"
	})
	_, err := repo.Append(e.ctx, late)
	require.NoError(t, err)
	_, err = repo.Append(e.ctx, e.mov(nil))
	require.NoError(t, err)

	got, err := repo.QueryByKey(e.ctx, e.base.Key(), entity.TimeRange{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, entity.KindIN, got[0].Kind, "ordenado por timestamp, no por ID")
	assert.Equal(t, t0.Add(time.Hour+time.Microsecond), got[1].Timestamp)
	require.NotNil(t, got[1].EmployeeID)
	assert.Equal(t, e.emp, *got[1].EmployeeID)
	assert.Equal(t, entity.ReasonWear, got[1].Reason)

	sum, err := repo.SumByKey(e.ctx, e.base.Key(), t0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), sum)
	sum, err = repo.SumByKey(e.ctx, e.base.Key(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(7), sum)

	kardex := dominv.Replay(got, entity.TimeRange{From: t0.Add(time.Minute)})
	require.Len(t, kardex, 1)
	assert.Equal(t, int64(7), kardex[0].RunningBalance)
}

func TestAppend_Restricciones(t *testing.T) {
	e := newEnv(t)
	repo := e.store.Movements()

	_, err := repo.Append(e.ctx, e.mov(func(m *entity.Movement) { m.ItemID = 999 }))
	assert.ErrorIs(t, err, domain.ErrConstraint)

	_, err = e.store.DB().Exec(`UPDATE employees SET is_active = 0 WHERE id = ?`, e.emp)
	require.NoError(t, err)
	_, err = repo.Append(e.ctx, e.mov(func(m *entity.Movement) { m.Kind, m.Quantity, m.EmployeeID = entity.KindReturn, 1, &e.emp }))
	assert.ErrorIs(t, err, domain.ErrConstraint)

	_, err = repo.Append(e.ctx, e.mov(func(m *entity.Movement) { m.ProposalID = "p-1" }))
	require.NoError(t, err)
	_, err = repo.Append(e.ctx, e.mov(func(m *entity.Movement) { m.ProposalID = "p-1" }))
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = e.store.DB().Exec(`DELETE FROM movements`)
	assert.Error(t, err, "el kardex es append-only")
}

func TestRun_RollbackYSaldoCacheado(t *testing.T) {
	e := newEnv(t)
	key := e.base.Key()
	_, err := e.store.Movements().Append(e.ctx, e.mov(nil))
	require.NoError(t, err)

	err = e.store.Run(e.ctx, func(movRepo repository.MovementRepository, stockRepo repository.StockRepository) error {
		s, err := stockRepo.GetForUpdate(e.ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(10), s.Quantity, "se inicializa con la suma del kardex")
		_, err = movRepo.Append(e.ctx, e.mov(func(m *entity.Movement) { m.Quantity = 5 }))
		require.NoError(t, err)
		s.Quantity += 5
		require.NoError(t, stockRepo.Upsert(e.ctx, s))
		return domain.ErrConflict
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	cached, err := e.store.Stocks().Get(e.ctx, key)
	require.NoError(t, err)
	assert.Nil(t, cached)
	sum, err := e.store.Movements().SumByKey(e.ctx, key, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(10), sum)
}

func TestFindRecentMatchYList(t *testing.T) {
	e := newEnv(t)
	repo := e.store.Movements()
	for i, ref := range []string{"GR-1", "GR-2", "OTRA"} {
		i, ref := i, ref
		_, err := repo.Append(e.ctx, e.mov(func(m *entity.Movement) {
			m.Timestamp = t0.Add(time.Duration(i) * time.Second)
			m.Reference = ref
		}))
		require.NoError(t, err)
	}

	match, err := repo.FindRecentMatch(e.ctx, dominv.ProbeFor(e.mov(nil), t0.Add(5*time.Second), 10*time.Second))
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "OTRA", match.Reference)

	none, err := repo.FindRecentMatch(e.ctx, dominv.ProbeFor(e.mov(nil), t0.Add(time.Minute), 10*time.Second))
	require.NoError(t, err)
	assert.Nil(t, none)

	list, err := repo.List(e.ctx, entity.MovementFilter{Text: "gr-", Kinds: []entity.MovementKind{entity.KindIN}})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "GR-2", list[0].Reference)

	exists, err := repo.ExistsReference(e.ctx, "GR-1", e.base.ProjectID, e.base.LocationID)
	require.NoError(t, err)
	assert.True(t, exists)

	rows, err := repo.SummaryByProject(e.ctx, e.base.ProjectID, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Casco", rows[0].ItemName)
	assert.Equal(t, int64(30), rows[0].Quantity)

	cat := e.store.Catalog()
	require.NoError(t, cat.AddItem(e.ctx, &entity.Item{Name: "Arnés", Unit: "unidad", IsActive: true}))
	require.NoError(t, cat.AddItem(e.ctx, &entity.Item{Name: "Careta", Unit: "unidad", IsActive: false}))
	rows, err = repo.SummaryByProject(e.ctx, e.base.ProjectID, true)
	require.NoError(t, err)
	require.Len(t, rows, 2, "EPP activo sin movimientos en cero; el inactivo no")
	assert.Equal(t, "Arnés", rows[0].ItemName)
	assert.Zero(t, rows[0].Quantity)
	assert.Equal(t, "Casco", rows[1].ItemName)
}

func TestCancelProposal(t *testing.T) {
	e := newEnv(t)
	repo := e.store.Movements()

	cancelled, err := repo.ProposalCancelled(e.ctx, "p-1")
	require.NoError(t, err)
	assert.False(t, cancelled)

	until := time.Now().Add(time.Hour)
	require.NoError(t, e.store.Run(e.ctx, func(movRepo repository.MovementRepository, _ repository.StockRepository) error {
		return movRepo.CancelProposal(e.ctx, "p-1", until)
	}))
	require.NoError(t, repo.CancelProposal(e.ctx, "p-1", until), "repetir no falla")

	cancelled, err = repo.ProposalCancelled(e.ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, cancelled)

	// Las vencidas se purgan en la siguiente cancelación.
	require.NoError(t, repo.CancelProposal(e.ctx, "p-viejo", time.Now().Add(-time.Minute)))
	require.NoError(t, repo.CancelProposal(e.ctx, "p-2", until))
	old, err := repo.ProposalCancelled(e.ctx, "p-viejo")
	require.NoError(t, err)
	assert.False(t, old)
}
