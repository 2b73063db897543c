package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/epp-kardex/internal/domain"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	dominv "github.com/jhoicas/epp-kardex/internal/domain/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
	"github.com/jhoicas/epp-kardex/pkg/textnorm"
)

// KardexProjector reproduce el kardex de una clave con saldo acumulado. Solo lectura.
type KardexProjector struct {
	movRepo repository.MovementRepository
	catalog repository.CatalogRepository
}

// NewKardexProjector construye el proyector.
func NewKardexProjector(movRepo repository.MovementRepository, catalog repository.CatalogRepository) *KardexProjector {
	return &KardexProjector{movRepo: movRepo, catalog: catalog}
}

// Project devuelve los movimientos de la clave dentro de r, en orden (timestamp, id), con el saldo
// acumulado. El saldo se siembra reproduciendo toda la historia desde cero, no desde el inicio del
// rango, así que es exacto aunque r empiece después del primer movimiento.
func (k *KardexProjector) Project(ctx context.Context, key entity.StockKey, r entity.TimeRange) ([]entity.KardexEntry, error) {
	history, err := k.movRepo.QueryByKey(ctx, key, entity.TimeRange{To: r.To})
	if err != nil {
		return nil, fmt.Errorf("kardex %s: %w", key, err)
	}
	return dominv.Replay(history, r), nil
}

// ProjectByCodes igual que Project resolviendo proyecto y EPP por código/nombre.
func (k *KardexProjector) ProjectByCodes(ctx context.Context, projectCode, itemName, size string, r entity.TimeRange) ([]entity.KardexEntry, error) {
	key, err := resolveKey(ctx, k.catalog, projectCode, itemName, size)
	if err != nil {
		return nil, err
	}
	return k.Project(ctx, key, r)
}

// HistoryQuery filtros del historial expresados con códigos del catálogo.
type HistoryQuery struct {
	Range        entity.TimeRange
	ProjectCode  string
	LocationCode string
	ItemName     string
	EmployeeID   *int64
	Kinds        []entity.MovementKind
	SizeMode     entity.SizeMode
	Size         string
	Reason       entity.Reason
	Text         string
	Limit        int
	Offset       int
}

// History lista movimientos para reportes, más recientes primero.
func (k *KardexProjector) History(ctx context.Context, q HistoryQuery) ([]*entity.Movement, error) {
	f := entity.MovementFilter{
		Range:      q.Range,
		Kinds:      q.Kinds,
		EmployeeID: q.EmployeeID,
		SizeMode:   q.SizeMode,
		Size:       textnorm.Size(q.Size),
		Text:       strings.TrimSpace(q.Text),
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	if f.SizeMode == "" {
		f.SizeMode = entity.SizeAny
	}
	if f.SizeMode == entity.SizeSpecific && f.Size == "" {
		return nil, fmt.Errorf("%w: talla específica vacía", domain.ErrInvalidInput)
	}
	reason, err := entity.ParseReason(string(q.Reason))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	f.Reason = reason
	for _, kind := range q.Kinds {
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: tipo %q", domain.ErrInvalidInput, kind)
		}
	}
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if q.ProjectCode != "" {
		p, err := k.catalog.GetProject(ctx, textnorm.Code(q.ProjectCode))
		if err != nil {
			return nil, fmt.Errorf("get project: %w", err)
		}
		if p == nil {
			return nil, domain.ErrNotFound
		}
		f.ProjectID = &p.ID
	}
	if q.LocationCode != "" {
		l, err := k.catalog.GetLocation(ctx, textnorm.Code(q.LocationCode))
		if err != nil {
			return nil, fmt.Errorf("get location: %w", err)
		}
		if l == nil {
			return nil, domain.ErrNotFound
		}
		f.LocationID = &l.ID
	}
	if q.ItemName != "" {
		it, err := k.catalog.GetItem(ctx, textnorm.Name(q.ItemName))
		if err != nil {
			return nil, fmt.Errorf("get item: %w", err)
		}
		if it == nil {
			return nil, domain.ErrNotFound
		}
		f.ItemID = &it.ID
	}
	list, err := k.movRepo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("historial: %w", err)
	}
	return list, nil
}
