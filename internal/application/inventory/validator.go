package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/epp-kardex/internal/domain"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	dominv "github.com/jhoicas/epp-kardex/internal/domain/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
	"github.com/jhoicas/epp-kardex/pkg/textnorm"
)

// ProposeInput datos que el llamador entrega para proponer un movimiento.
// Quantity es la magnitud (> 0) salvo en ADJUST, donde lleva signo.
// DestProjectCode/DestLocationCode solo aplican a TRANSFER_OUT y generan el TRANSFER_IN emparejado.
type ProposeInput struct {
	Kind          entity.MovementKind
	ProjectCode   string
	LocationCode  string
	ItemName      string
	Size          string
	Quantity      int64
	EmployeeID    *int64
	Reason        entity.Reason
	RequestNumber string
	Reference     string
	Notes         string
	Actor         string
	OccurredAt    time.Time

	DestProjectCode  string
	DestLocationCode string
}

// Draft movimiento resuelto contra el catálogo, aún sin confirmar.
type Draft struct {
	Movement    *entity.Movement
	Counterpart *entity.Movement
	Item        *entity.Item
}

// Validator aplica las reglas de negocio antes de aceptar un movimiento. Solo lee el kardex.
type Validator struct {
	catalog    repository.CatalogRepository
	aggregator *StockAggregator
}

// NewValidator construye el validador.
func NewValidator(catalog repository.CatalogRepository, aggregator *StockAggregator) *Validator {
	return &Validator{catalog: catalog, aggregator: aggregator}
}

// Resolve traduce códigos a IDs del catálogo y arma el borrador con la cantidad firmada.
// Referencias inexistentes o inactivas devuelven *domain.ConstraintError.
func (v *Validator) Resolve(ctx context.Context, in ProposeInput) (*Draft, error) {
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: tipo %q", domain.ErrInvalidInput, in.Kind)
	}
	qty, err := dominv.SignedQuantity(in.Kind, in.Quantity)
	if err != nil {
		return nil, err
	}
	reason, err := entity.ParseReason(string(in.Reason))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	project, err := activeProject(ctx, v.catalog, in.ProjectCode)
	if err != nil {
		return nil, err
	}
	location, err := v.projectLocation(ctx, project, in.LocationCode)
	if err != nil {
		return nil, err
	}
	item, err := activeItem(ctx, v.catalog, in.ItemName)
	if err != nil {
		return nil, err
	}
	if in.EmployeeID != nil {
		if err := v.activeEmployee(ctx, *in.EmployeeID); err != nil {
			return nil, err
		}
	}

	m := &entity.Movement{
		Kind:          in.Kind,
		ProjectID:     project.ID,
		LocationID:    location.ID,
		ItemID:        item.ID,
		Size:          textnorm.Size(in.Size),
		Quantity:      qty,
		EmployeeID:    in.EmployeeID,
		Reason:        reason,
		RequestNumber: strings.TrimSpace(in.RequestNumber),
		Reference:     strings.TrimSpace(in.Reference),
		Notes:         strings.TrimSpace(in.Notes),
		Actor:         strings.TrimSpace(in.Actor),
	}
	if !in.OccurredAt.IsZero() {
		m.Timestamp = in.OccurredAt.UTC()
	}
	d := &Draft{Movement: m, Item: item}

	if in.DestProjectCode == "" {
		if in.DestLocationCode != "" {
			return nil, fmt.Errorf("%w: ubicación destino sin proyecto destino", domain.ErrInvalidInput)
		}
		return d, nil
	}
	if in.Kind != entity.KindTransferOut {
		return nil, fmt.Errorf("%w: solo TRANSFER_OUT admite destino", domain.ErrInvalidInput)
	}
	dest, err := activeProject(ctx, v.catalog, in.DestProjectCode)
	if err != nil {
		return nil, err
	}
	if dest.ID == project.ID {
		return nil, fmt.Errorf("%w: origen y destino son el mismo proyecto", domain.ErrInvalidInput)
	}
	destLoc, err := v.projectLocation(ctx, dest, in.DestLocationCode)
	if err != nil {
		return nil, err
	}
	cp := m.Clone()
	cp.Kind = entity.KindTransferIn
	cp.ProjectID = dest.ID
	cp.LocationID = destLoc.ID
	cp.Quantity = -m.Quantity
	d.Counterpart = cp
	return d, nil
}

// Validate revisa, en orden: cantidad, talla, trabajador y stock suficiente para salidas.
// No tiene efectos: se llama al proponer y puede repetirse. Devuelve el saldo disponible leído.
func (v *Validator) Validate(ctx context.Context, d *Draft) (int64, error) {
	m := d.Movement
	if err := dominv.CheckQuantity(m.Kind, m.Quantity); err != nil {
		return 0, err
	}
	if err := dominv.CheckSize(d.Item, m.Size); err != nil {
		return 0, err
	}
	if err := dominv.CheckEmployee(m.Kind, m.EmployeeID); err != nil {
		return 0, err
	}
	available, err := v.aggregator.Available(ctx, m.Key())
	if err != nil {
		return 0, err
	}
	if err := dominv.CheckStock(available, m.Quantity); err != nil {
		return available, err
	}
	return available, nil
}

func (v *Validator) projectLocation(ctx context.Context, project *entity.Project, code string) (*entity.Location, error) {
	code = textnorm.Code(code)
	loc, err := v.catalog.GetLocation(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	switch {
	case loc == nil:
		return nil, domain.NewConstraintError("location", code, "no existe")
	case !loc.IsActive:
		return nil, domain.NewConstraintError("location", code, "inactiva")
	case !loc.BelongsTo(project.ID):
		return nil, domain.NewConstraintError("location", code, "no pertenece al proyecto "+project.Code)
	}
	return loc, nil
}

func (v *Validator) activeEmployee(ctx context.Context, id int64) error {
	e, err := v.catalog.GetEmployee(ctx, id)
	if err != nil {
		return fmt.Errorf("get employee: %w", err)
	}
	key := fmt.Sprint(id)
	if e == nil {
		return domain.NewConstraintError("employee", key, "no existe")
	}
	if !e.IsActive {
		return domain.NewConstraintError("employee", key, "inactivo")
	}
	return nil
}
