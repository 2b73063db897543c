package memory

import (
	"context"
	"errors"
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

func seeded(t *testing.T) (*Store, *entity.Movement) {
	t.Helper()
	s := NewStore().WithClock(func() time.Time { return t0 })
	p := s.AddProject(entity.Project{Code: "p1", IsActive: true})
	l := s.AddLocation(entity.Location{Code: "l1", ProjectID: &p.ID, IsActive: true})
	it := s.AddItem(entity.Item{Name: "Casco", IsActive: true})
	return s, &entity.Movement{Kind: entity.KindIN, ProjectID: p.ID, LocationID: l.ID, ItemID: it.ID, Quantity: 5}
}

func TestRun_RollbackNoDejaRastro(t *testing.T) {
	s, m := seeded(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Run(ctx, func(movRepo repository.MovementRepository, stockRepo repository.StockRepository) error {
		_, err := movRepo.Append(ctx, m.Clone())
		require.NoError(t, err)
		st, err := stockRepo.GetForUpdate(ctx, m.Key())
		require.NoError(t, err)
		assert.Equal(t, int64(5), st.Quantity, "la tx ve sus propias escrituras")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	sum, err := s.Movements().SumByKey(ctx, m.Key(), time.Time{})
	require.NoError(t, err)
	assert.Zero(t, sum)
	cached, err := s.Stocks().Get(ctx, m.Key())
	require.NoError(t, err)
	assert.Nil(t, cached)

	id, err := s.Movements().Append(ctx, m.Clone())
	require.NoError(t, err)
	assert.Equal(t, int64(2), id, "los IDs no se reutilizan")
}

func TestAppend_TimestampYReferencias(t *testing.T) {
	s, m := seeded(t)
	ctx := context.Background()

	withNanos := m.Clone()
	withNanos.Timestamp = t0.Add(1500 * time.Nanosecond).In(time.FixedZone("PET", -5*3600))
	_, err := s.Movements().Append(ctx, withNanos)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Microsecond), withNanos.Timestamp)

	empty := m.Clone()
	_, err = s.Movements().Append(ctx, empty)
	require.NoError(t, err)
	assert.Equal(t, t0, empty.Timestamp)

	s.AddItem(entity.Item{ID: m.ItemID, Name: "Casco", IsActive: false})
	_, err = s.Movements().Append(ctx, m.Clone())
	var ce *domain.ConstraintError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "item", ce.Entity)
}

func TestAppend_PropuestaUnica(t *testing.T) {
	s, m := seeded(t)
	ctx := context.Background()
	m.ProposalID = "p-1"
	_, err := s.Movements().Append(ctx, m.Clone())
	require.NoError(t, err)
	_, err = s.Movements().Append(ctx, m.Clone())
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestFindRecentMatch_DevuelveElMasReciente(t *testing.T) {
	s, m := seeded(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		c := m.Clone()
		c.Timestamp = t0.Add(time.Duration(i) * time.Second)
		_, err := s.Movements().Append(ctx, c)
		require.NoError(t, err)
	}
	got, err := s.Movements().FindRecentMatch(ctx, probe(m, t0.Add(5*time.Second)))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, t0.Add(2*time.Second), got.Timestamp)

	got, err = s.Movements().FindRecentMatch(ctx, probe(m, t0.Add(time.Minute)))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func probe(m *entity.Movement, at time.Time) dominv.DuplicateProbe {
	return dominv.ProbeFor(m, at, 10*time.Second)
}

func TestCancelProposal_SoloAlConfirmarLaTx(t *testing.T) {
	s, _ := seeded(t)
	ctx := context.Background()
	until := t0.Add(time.Hour)

	err := s.Run(ctx, func(movRepo repository.MovementRepository, _ repository.StockRepository) error {
		require.NoError(t, movRepo.CancelProposal(ctx, "p-1", until))
		cancelled, err := movRepo.ProposalCancelled(ctx, "p-1")
		require.NoError(t, err)
		assert.True(t, cancelled, "la tx ve su propia cancelación")
		return errors.New("rollback")
	})
	require.Error(t, err)
	cancelled, err := s.Movements().ProposalCancelled(ctx, "p-1")
	require.NoError(t, err)
	assert.False(t, cancelled)

	require.NoError(t, s.Movements().CancelProposal(ctx, "p-1", until))
	cancelled, err = s.Movements().ProposalCancelled(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, cancelled)
}
