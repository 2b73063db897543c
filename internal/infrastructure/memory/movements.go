package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/epp-kardex/internal/domain"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	dominv "github.com/jhoicas/epp-kardex/internal/domain/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
)

var (
	_ repository.MovementRepository = (*view)(nil)
	_ repository.StockRepository    = (*view)(nil)
)

// tx escrituras pendientes de una transacción en curso.
type tx struct {
	pending  []*entity.Movement
	balances  map[entity.StockKey]entity.Stock
	refs      map[string]bool
	cancelled map[string]time.Time
}

// view lee el estado confirmado más lo pendiente de tx. Sin tx, las escrituras abren su propia transacción.
type view struct {
	s  *Store
	tx *tx
}

func (v *view) snapshot() []*entity.Movement {
	v.s.mu.RLock()
	out := make([]*entity.Movement, 0, len(v.s.movements))
	out = append(out, v.s.movements...)
	v.s.mu.RUnlock()
	if v.tx != nil {
		out = append(out, v.tx.pending...)
	}
	return out
}

// Append valida referencias y agrega el movimiento a la transacción.
func (v *view) Append(ctx context.Context, m *entity.Movement) (int64, error) {
	if v.tx == nil {
		var id int64
		err := v.s.Run(ctx, func(movRepo repository.MovementRepository, _ repository.StockRepository) error {
			var err error
			id, err = movRepo.Append(ctx, m)
			return err
		})
		return id, err
	}
	if m.Quantity == 0 {
		return 0, fmt.Errorf("append movement: %w", domain.ErrInvalidQuantity)
	}
	if err := v.checkRefs(m); err != nil {
		return 0, err
	}
	if m.ProposalID != "" {
		for _, o := range v.snapshot() {
			if o.ProposalID == m.ProposalID && o.Kind == m.Kind {
				return 0, fmt.Errorf("append movement: propuesta %s ya confirmada: %w", m.ProposalID, domain.ErrConflict)
			}
		}
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = v.s.now()
	}
	m.Timestamp = m.Timestamp.UTC().Truncate(time.Microsecond)
	m.ID = v.s.nextID.Add(1)
	v.tx.pending = append(v.tx.pending, m.Clone())
	return m.ID, nil
}

func (v *view) checkRefs(m *entity.Movement) error {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	key := fmt.Sprint
	if p, ok := v.s.projects[m.ProjectID]; !ok || !p.IsActive {
		return domain.NewConstraintError("project", key(m.ProjectID), "no existe o inactivo")
	}
	if l, ok := v.s.locations[m.LocationID]; !ok || !l.IsActive || !l.BelongsTo(m.ProjectID) {
		return domain.NewConstraintError("location", key(m.LocationID), "no existe, inactiva o de otro proyecto")
	}
	if it, ok := v.s.items[m.ItemID]; !ok || !it.IsActive {
		return domain.NewConstraintError("item", key(m.ItemID), "no existe o inactivo")
	}
	if m.EmployeeID != nil {
		if e, ok := v.s.employees[*m.EmployeeID]; !ok || !e.IsActive {
			return domain.NewConstraintError("employee", key(*m.EmployeeID), "no existe o inactivo")
		}
	}
	return nil
}

func (v *view) QueryByKey(_ context.Context, key entity.StockKey, r entity.TimeRange) ([]*entity.Movement, error) {
	var out []*entity.Movement
	for _, m := range v.snapshot() {
		if m.Key() == key && r.Contains(m.Timestamp) {
			out = append(out, m.Clone())
		}
	}
	dominv.SortMovements(out)
	return out, nil
}

// SumByKey con asOf en cero suma todo el historial.
func (v *view) SumByKey(_ context.Context, key entity.StockKey, asOf time.Time) (int64, error) {
	return v.sum(key, asOf), nil
}

func (v *view) sum(key entity.StockKey, asOf time.Time) int64 {
	var total int64
	for _, m := range v.snapshot() {
		if m.Key() != key || (!asOf.IsZero() && m.Timestamp.After(asOf)) {
			continue
		}
		total += m.Quantity
	}
	return total
}

func (v *view) FindRecentMatch(_ context.Context, probe dominv.DuplicateProbe) (*entity.Movement, error) {
	var best *entity.Movement
	for _, m := range v.snapshot() {
		if probe.Matches(m) && (best == nil || best.Before(m)) {
			best = m
		}
	}
	if best == nil {
		return nil, nil
	}
	return best.Clone(), nil
}

func (v *view) FindByProposalID(_ context.Context, proposalID string) ([]*entity.Movement, error) {
	var out []*entity.Movement
	for _, m := range v.snapshot() {
		if m.ProposalID == proposalID {
			out = append(out, m.Clone())
		}
	}
	dominv.SortMovements(out)
	return out, nil
}

func (v *view) ExistsReference(_ context.Context, reference string, projectID, locationID int64) (bool, error) {
	for _, m := range v.snapshot() {
		if m.Reference == reference && m.ProjectID == projectID && m.LocationID == locationID {
			return true, nil
		}
	}
	return false, nil
}

// LockReference no necesita hacer nada: Run ya serializa las escrituras.
func (v *view) LockReference(_ context.Context, reference string) error {
	if v.tx != nil {
		v.tx.refs[reference] = true
	}
	return nil
}

func (v *view) List(_ context.Context, f entity.MovementFilter) ([]*entity.Movement, error) {
	text := strings.ToLower(f.Text)
	var out []*entity.Movement
	for _, m := range v.snapshot() {
		if matchesFilter(m, f, text) {
			out = append(out, m.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[j].Before(out[i]) })
	if f.Offset >= len(out) {
		return []*entity.Movement{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matchesFilter(m *entity.Movement, f entity.MovementFilter, text string) bool {
	if !f.Range.Contains(m.Timestamp) {
		return false
	}
	if f.ProjectID != nil && m.ProjectID != *f.ProjectID {
		return false
	}
	if f.ItemID != nil && m.ItemID != *f.ItemID {
		return false
	}
	if f.LocationID != nil && m.LocationID != *f.LocationID {
		return false
	}
	if f.EmployeeID != nil && (m.EmployeeID == nil || *m.EmployeeID != *f.EmployeeID) {
		return false
	}
	if len(f.Kinds) > 0 {
		found := false
		for _, k := range f.Kinds {
			if k == m.Kind {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	switch f.SizeMode {
	case entity.SizeNone:
		if m.Size != "" {
			return false
		}
	case entity.SizeSpecific:
		if m.Size != f.Size {
			return false
		}
	}
	if f.Reason != "" && m.Reason != f.Reason {
		return false
	}
	if text != "" &&
		!strings.Contains(strings.ToLower(m.Reference), text) &&
		!strings.Contains(strings.ToLower(m.Notes), text) {
		return false
	}
	return true
}

func (v *view) SummaryByProject(_ context.Context, projectID int64, includeUnmoved bool) ([]entity.StockRow, error) {
	totals := make(map[entity.StockKey]int64)
	moved := make(map[int64]bool)
	for _, m := range v.snapshot() {
		if m.ProjectID == projectID {
			totals[m.Key()] += m.Quantity
			moved[m.ItemID] = true
		}
	}
	v.s.mu.RLock()
	rows := make([]entity.StockRow, 0, len(totals))
	for k, q := range totals {
		row := entity.StockRow{ItemID: k.ItemID, Size: k.Size, Quantity: q}
		if it, ok := v.s.items[k.ItemID]; ok {
			row.ItemName = it.Name
		}
		rows = append(rows, row)
	}
	if includeUnmoved {
		for id, it := range v.s.items {
			if it.IsActive && !moved[id] {
				rows = append(rows, entity.StockRow{ItemID: id, ItemName: it.Name})
			}
		}
	}
	v.s.mu.RUnlock()
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ItemName != rows[j].ItemName {
			return rows[i].ItemName < rows[j].ItemName
		}
		return rows[i].Size < rows[j].Size
	})
	return rows, nil
}

// CancelProposal sin tx abre una propia.
func (v *view) CancelProposal(ctx context.Context, proposalID string, expiresAt time.Time) error {
	if v.tx == nil {
		return v.s.Run(ctx, func(movRepo repository.MovementRepository, _ repository.StockRepository) error {
			return movRepo.CancelProposal(ctx, proposalID, expiresAt)
		})
	}
	v.tx.cancelled[proposalID] = expiresAt.UTC()
	return nil
}

func (v *view) ProposalCancelled(_ context.Context, proposalID string) (bool, error) {
	if v.tx != nil {
		if _, ok := v.tx.cancelled[proposalID]; ok {
			return true, nil
		}
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	_, ok := v.s.cancelled[proposalID]
	return ok, nil
}

// Get devuelve el saldo cacheado o nil si la clave nunca se bloqueó.
func (v *view) Get(_ context.Context, key entity.StockKey) (*entity.Stock, error) {
	if v.tx != nil {
		if b, ok := v.tx.balances[key]; ok {
			return &b, nil
		}
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	if b, ok := v.s.balances[key]; ok {
		return &b, nil
	}
	return nil, nil
}

// GetForUpdate dentro de Run la clave ya está protegida por el lock de escritura.
func (v *view) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.Stock, error) {
	b, err := v.Get(ctx, key)
	if err != nil || b != nil {
		return b, err
	}
	b = &entity.Stock{Key: key, Quantity: v.sum(key, time.Time{}), UpdatedAt: v.s.now()}
	if v.tx != nil {
		v.tx.balances[key] = *b
	}
	return b, nil
}

func (v *view) Upsert(ctx context.Context, stock *entity.Stock) error {
	if v.tx == nil {
		return v.s.Run(ctx, func(_ repository.MovementRepository, stockRepo repository.StockRepository) error {
			return stockRepo.Upsert(ctx, stock)
		})
	}
	b := *stock
	b.UpdatedAt = b.UpdatedAt.UTC().Truncate(time.Microsecond)
	v.tx.balances[b.Key] = b
	return nil
}
