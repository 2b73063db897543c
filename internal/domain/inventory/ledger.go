package inventory

import (
	"sort"
	"time"

	"github.com/jhoicas/epp-kardex/internal/domain/entity"
)

// SortMovements ordena por (timestamp, id) ascendente, el orden total de replay.
func SortMovements(movs []*entity.Movement) {
	sort.SliceStable(movs, func(i, j int) bool { return movs[i].Before(movs[j]) })
}

// Balance suma con signo las cantidades con timestamp <= asOf (asOf cero = sin límite).
func Balance(movs []*entity.Movement, asOf time.Time) int64 {
	var total int64
	for _, m := range movs {
		if !asOf.IsZero() && m.Timestamp.After(asOf) {
			continue
		}
		total += m.Quantity
	}
	return total
}

// Replay recorre el historial completo desde saldo cero y devuelve solo las entradas dentro de r.
// El saldo acumulado de la primera entrada ya incluye todo lo anterior al rango.
func Replay(movs []*entity.Movement, r entity.TimeRange) []entity.KardexEntry {
	sorted := make([]*entity.Movement, len(movs))
	copy(sorted, movs)
	SortMovements(sorted)

	out := make([]entity.KardexEntry, 0, len(sorted))
	var running int64
	for _, m := range sorted {
		if !r.To.IsZero() && m.Timestamp.After(r.To) {
			break
		}
		running += m.Quantity
		if !r.Contains(m.Timestamp) {
			continue
		}
		out = append(out, entity.KardexEntry{Movement: m, RunningBalance: running})
	}
	return out
}

// DuplicateProbe campos que deben coincidir para considerar un movimiento como posible duplicado.
type DuplicateProbe struct {
	Kind       entity.MovementKind
	Key        entity.StockKey
	EmployeeID *int64
	Quantity   int64
	Since      time.Time
	Until      time.Time
}

// ProbeFor arma la sonda de duplicados para un movimiento propuesto en el instante at.
func ProbeFor(m *entity.Movement, at time.Time, window time.Duration) DuplicateProbe {
	return DuplicateProbe{
		Kind:       m.Kind,
		Key:        m.Key(),
		EmployeeID: m.EmployeeID,
		Quantity:   m.Quantity,
		Since:      at.Add(-window),
		Until:      at,
	}
}

// Matches indica si un movimiento ya confirmado coincide con la sonda.
// El trabajador solo se compara cuando la sonda lo trae.
func (p DuplicateProbe) Matches(m *entity.Movement) bool {
	if m.Kind != p.Kind || m.Key() != p.Key || m.Quantity != p.Quantity {
		return false
	}
	if p.EmployeeID != nil {
		if m.EmployeeID == nil || *m.EmployeeID != *p.EmployeeID {
			return false
		}
	}
	return !m.Timestamp.Before(p.Since) && !m.Timestamp.After(p.Until)
}
