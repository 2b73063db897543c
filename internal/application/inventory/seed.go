package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/epp-kardex/internal/domain"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	dominv "github.com/jhoicas/epp-kardex/internal/domain/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
	"github.com/jhoicas/epp-kardex/pkg/textnorm"
)

// SeedRow fila de stock inicial (EPP, talla, cantidad >= 0).
type SeedRow struct {
	ItemName string
	Size     string
	Quantity int64
}

// SeedInput carga de stock inicial desde un importador externo.
type SeedInput struct {
	ProjectCode  string
	LocationCode string
	Reference    string
	OccurredAt   time.Time
	Actor        string
	Notes        string
	Rows         []SeedRow
}

// SeedResult resultado de la carga. Skipped indica que la referencia ya existía (no-op).
type SeedResult struct {
	Reference string
	Inserted  int
	Skipped   bool
}

// SeedUseCase registra ajustes positivos en lote con la misma disciplina de append que el flujo
// interactivo. Es idempotente por referencia: repetir una carga no duplica stock.
type SeedUseCase struct {
	txRunner  TxRunner
	catalog   repository.CatalogRepository
	validator *Validator
	log       zerolog.Logger
	now       Clock
}

// NewSeedUseCase construye el caso de uso.
func NewSeedUseCase(txRunner TxRunner, catalog repository.CatalogRepository, validator *Validator, log zerolog.Logger) *SeedUseCase {
	return &SeedUseCase{txRunner: txRunner, catalog: catalog, validator: validator, log: log, now: systemClock}
}

// WithClock reemplaza el reloj (tests).
func (uc *SeedUseCase) WithClock(c Clock) *SeedUseCase {
	uc.now = c
	return uc
}

// Seed valida todas las filas y las agrega como ADJUST en una sola transacción.
// Filas con cantidad cero se omiten.
func (uc *SeedUseCase) Seed(ctx context.Context, in SeedInput) (*SeedResult, error) {
	ref := strings.TrimSpace(in.Reference)
	if ref == "" {
		return nil, fmt.Errorf("%w: la carga requiere referencia", domain.ErrInvalidInput)
	}
	at := in.OccurredAt.UTC()
	if in.OccurredAt.IsZero() {
		at = uc.now()
	}
	notes := strings.TrimSpace(in.Notes)
	if notes == "" {
		notes = "Carga inicial de stock"
	}

	var movs []*entity.Movement
	for i, row := range in.Rows {
		if row.Quantity == 0 {
			continue
		}
		if row.Quantity < 0 {
			return nil, fmt.Errorf("fila %d: %w", i+1, domain.ErrInvalidQuantity)
		}
		d, err := uc.validator.Resolve(ctx, ProposeInput{
			Kind:         entity.KindAdjust,
			ProjectCode:  in.ProjectCode,
			LocationCode: in.LocationCode,
			ItemName:     row.ItemName,
			Size:         row.Size,
			Quantity:     row.Quantity,
			Reference:    ref,
			Notes:        notes,
			Actor:        in.Actor,
			OccurredAt:   at,
		})
		if err != nil {
			return nil, fmt.Errorf("fila %d: %w", i+1, err)
		}
		if err := dominv.CheckSize(d.Item, d.Movement.Size); err != nil {
			return nil, fmt.Errorf("fila %d (%s): %w", i+1, textnorm.Name(row.ItemName), err)
		}
		movs = append(movs, d.Movement)
	}
	res := &SeedResult{Reference: ref}
	if len(movs) == 0 {
		return res, nil
	}
	projectID, locationID := movs[0].ProjectID, movs[0].LocationID

	err := uc.txRunner.Run(ctx, func(movRepo repository.MovementRepository, stockRepo repository.StockRepository) error {
		res.Inserted, res.Skipped = 0, false
		if err := movRepo.LockReference(ctx, ref); err != nil {
			return err
		}
		exists, err := movRepo.ExistsReference(ctx, ref, projectID, locationID)
		if err != nil {
			return fmt.Errorf("verificar referencia: %w", err)
		}
		if exists {
			res.Skipped = true
			return nil
		}
		stocks, err := lockKeys(ctx, stockRepo, movs...)
		if err != nil {
			return err
		}
		for _, m := range movs {
			if _, err := appendWithStock(ctx, movRepo, stockRepo, stocks, m.Clone()); err != nil {
				return err
			}
			res.Inserted++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ev := uc.log.Info()
	if res.Skipped {
		ev = uc.log.Warn()
	}
	ev.Str("reference", ref).
		Int("inserted", res.Inserted).
		Bool("skipped", res.Skipped).
		Msg("carga de stock inicial")
	return res, nil
}
