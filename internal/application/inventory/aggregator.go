package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/epp-kardex/internal/domain"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
	"github.com/jhoicas/epp-kardex/pkg/textnorm"
)

// StockAggregator deriva saldos del kardex. Nunca lee el saldo cacheado para responder: el kardex manda.
type StockAggregator struct {
	movRepo   repository.MovementRepository
	stockRepo repository.StockRepository
	catalog   repository.CatalogRepository
	now       Clock
}

// NewStockAggregator construye el agregador.
func NewStockAggregator(
	movRepo repository.MovementRepository,
	stockRepo repository.StockRepository,
	catalog repository.CatalogRepository,
) *StockAggregator {
	return &StockAggregator{movRepo: movRepo, stockRepo: stockRepo, catalog: catalog, now: systemClock}
}

// WithClock reemplaza el reloj (tests).
func (a *StockAggregator) WithClock(c Clock) *StockAggregator {
	a.now = c
	return a
}

// Balance suma con signo los movimientos de la clave con timestamp <= asOf.
// asOf en cero significa "ahora". Una clave sin movimientos devuelve 0.
func (a *StockAggregator) Balance(ctx context.Context, key entity.StockKey, asOf time.Time) (int64, error) {
	if asOf.IsZero() {
		asOf = a.now()
	}
	total, err := a.movRepo.SumByKey(ctx, key, asOf.UTC())
	if err != nil {
		return 0, fmt.Errorf("balance %s: %w", key, err)
	}
	return total, nil
}

// Available saldo disponible para una salida: el menor entre el saldo a la fecha y el total del kardex.
// Las entradas con fecha futura todavía no están en bodega; las salidas futuras ya están comprometidas.
func (a *StockAggregator) Available(ctx context.Context, key entity.StockKey) (int64, error) {
	onHand, err := a.Balance(ctx, key, time.Time{})
	if err != nil {
		return 0, err
	}
	total, err := a.movRepo.SumByKey(ctx, key, time.Time{})
	if err != nil {
		return 0, fmt.Errorf("available %s: %w", key, err)
	}
	return min(onHand, total), nil
}

// BalanceByCodes resuelve proyecto y EPP por código/nombre y devuelve el saldo.
func (a *StockAggregator) BalanceByCodes(ctx context.Context, projectCode, itemName, size string, asOf time.Time) (int64, error) {
	key, err := resolveKey(ctx, a.catalog, projectCode, itemName, size)
	if err != nil {
		return 0, err
	}
	return a.Balance(ctx, key, asOf)
}

// Summary saldo actual por (EPP, talla) del proyecto. includeZero=false oculta filas en cero;
// includeZero=true además lista en cero los EPP activos sin movimientos en el proyecto.
func (a *StockAggregator) Summary(ctx context.Context, projectCode string, includeZero bool) ([]entity.StockRow, error) {
	project, err := activeProject(ctx, a.catalog, projectCode)
	if err != nil {
		return nil, err
	}
	rows, err := a.movRepo.SummaryByProject(ctx, project.ID, includeZero)
	if err != nil {
		return nil, fmt.Errorf("resumen de stock: %w", err)
	}
	if includeZero {
		return rows, nil
	}
	out := make([]entity.StockRow, 0, len(rows))
	for _, r := range rows {
		if r.Quantity != 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

// Reconciliation resultado de comparar el saldo cacheado con el replay completo.
type Reconciliation struct {
	Key      entity.StockKey
	Replayed int64
	Cached   int64
	InSync   bool
}

// Reconcile compara el saldo cacheado de la clave con la suma completa del kardex.
func (a *StockAggregator) Reconcile(ctx context.Context, key entity.StockKey) (*Reconciliation, error) {
	replayed, err := a.movRepo.SumByKey(ctx, key, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", key, err)
	}
	cached, err := a.stockRepo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", key, err)
	}
	var c int64
	if cached != nil {
		c = cached.Quantity
	}
	return &Reconciliation{Key: key, Replayed: replayed, Cached: c, InSync: c == replayed}, nil
}

// ReconcileByCodes igual que Reconcile resolviendo proyecto y EPP por código/nombre.
func (a *StockAggregator) ReconcileByCodes(ctx context.Context, projectCode, itemName, size string) (*Reconciliation, error) {
	key, err := resolveKey(ctx, a.catalog, projectCode, itemName, size)
	if err != nil {
		return nil, err
	}
	return a.Reconcile(ctx, key)
}

func activeProject(ctx context.Context, catalog repository.CatalogRepository, code string) (*entity.Project, error) {
	code = textnorm.Code(code)
	p, err := catalog.GetProject(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if p == nil {
		return nil, domain.NewConstraintError("project", code, "no existe")
	}
	if !p.IsActive {
		return nil, domain.NewConstraintError("project", code, "inactivo")
	}
	return p, nil
}

func activeItem(ctx context.Context, catalog repository.CatalogRepository, name string) (*entity.Item, error) {
	name = textnorm.Name(name)
	it, err := catalog.GetItem(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if it == nil {
		return nil, domain.NewConstraintError("item", name, "no existe")
	}
	if !it.IsActive {
		return nil, domain.NewConstraintError("item", name, "inactivo")
	}
	return it, nil
}

func resolveKey(ctx context.Context, catalog repository.CatalogRepository, projectCode, itemName, size string) (entity.StockKey, error) {
	p, err := activeProject(ctx, catalog, projectCode)
	if err != nil {
		return entity.StockKey{}, err
	}
	it, err := activeItem(ctx, catalog, itemName)
	if err != nil {
		return entity.StockKey{}, err
	}
	return entity.StockKey{ProjectID: p.ID, ItemID: it.ID, Size: textnorm.Size(size)}, nil
}
