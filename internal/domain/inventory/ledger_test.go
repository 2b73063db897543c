package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/epp-kardex/internal/domain/entity"
)

var t0 = time.Date(2026, 1, 15, 13, 0, 0, 0, time.UTC)

func mov(id int64, at time.Time, qty int64) *entity.Movement {
	return &entity.Movement{ID: id, Timestamp: at, Kind: entity.KindAdjust, ProjectID: 1, ItemID: 2, Quantity: qty}
}

func TestSortMovements_DesempatePorID(t *testing.T) {
	movs := []*entity.Movement{mov(3, t0, 1), mov(1, t0.Add(time.Second), 1), mov(2, t0, 1)}
	SortMovements(movs)
	assert.Equal(t, []int64{2, 3, 1}, []int64{movs[0].ID, movs[1].ID, movs[2].ID})
}

func TestBalance_AsOf(t *testing.T) {
	movs := []*entity.Movement{mov(1, t0, 10), mov(2, t0.Add(time.Hour), -3), mov(3, t0.Add(2*time.Hour), -2)}
	assert.Equal(t, int64(5), Balance(movs, time.Time{}))
	assert.Equal(t, int64(7), Balance(movs, t0.Add(time.Hour)), "asOf es inclusivo")
	assert.Equal(t, int64(0), Balance(movs, t0.Add(-time.Minute)))
	assert.Equal(t, int64(0), Balance(nil, time.Time{}))
}

func TestReplay_SembradoDesdeCero(t *testing.T) {
	movs := []*entity.Movement{
		mov(4, t0.Add(3*time.Hour), 5),
		mov(1, t0, 10),
		mov(2, t0.Add(time.Hour), -3),
		mov(3, t0.Add(2*time.Hour), -2),
	}
	all := Replay(movs, entity.TimeRange{})
	require.Len(t, all, 4)
	assert.Equal(t, []int64{10, 7, 5, 10}, []int64{all[0].RunningBalance, all[1].RunningBalance, all[2].RunningBalance, all[3].RunningBalance})
	assert.Equal(t, Balance(movs, time.Time{}), all[len(all)-1].RunningBalance)

	window := Replay(movs, entity.TimeRange{From: t0.Add(90 * time.Minute), To: t0.Add(150 * time.Minute)})
	require.Len(t, window, 1)
	assert.Equal(t, int64(3), window[0].Movement.ID)
	assert.Equal(t, int64(5), window[0].RunningBalance, "el saldo incluye la historia previa al rango")

	// Replay no altera la entrada.
	assert.Equal(t, int64(4), movs[0].ID)
}

func TestDuplicateProbe_Matches(t *testing.T) {
	emp := int64(9)
	other := int64(10)
	prev := &entity.Movement{ID: 1, Timestamp: t0, Kind: entity.KindOUT, ProjectID: 1, ItemID: 2, Quantity: -1, EmployeeID: &emp}
	proposed := &entity.Movement{Kind: entity.KindOUT, ProjectID: 1, ItemID: 2, Quantity: -1, EmployeeID: &emp}

	assert.True(t, ProbeFor(proposed, t0.Add(5*time.Second), 10*time.Second).Matches(prev))
	assert.False(t, ProbeFor(proposed, t0.Add(15*time.Second), 10*time.Second).Matches(prev))

	otherEmp := proposed.Clone()
	otherEmp.EmployeeID = &other
	assert.False(t, ProbeFor(otherEmp, t0.Add(time.Second), 10*time.Second).Matches(prev))

	otherSize := proposed.Clone()
	otherSize.Size = "L"
	assert.False(t, ProbeFor(otherSize, t0.Add(time.Second), 10*time.Second).Matches(prev))

	otherQty := proposed.Clone()
	otherQty.Quantity = -2
	assert.False(t, ProbeFor(otherQty, t0.Add(time.Second), 10*time.Second).Matches(prev))
}
