package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/epp-kardex/internal/application/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
	"github.com/jhoicas/epp-kardex/internal/infrastructure/memory"
	"github.com/jhoicas/epp-kardex/internal/infrastructure/postgres"
	"github.com/jhoicas/epp-kardex/internal/infrastructure/sqlite"
	"github.com/jhoicas/epp-kardex/pkg/config"
)

// Pinger verifica que el almacén responda.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ledger agrupa lo que cada driver entrega a los casos de uso.
type Ledger struct {
	TxRunner  inventory.TxRunner
	Movements repository.MovementRepository
	Stocks    repository.StockRepository
	Catalog   repository.CatalogRepository
	Pinger    Pinger
	Close     func()
}

// Open abre el driver configurado en LEDGER_DRIVER. El llamador debe invocar Close.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Ledger, error) {
	switch cfg.Ledger.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		if cfg.Ledger.Migrate {
			if err := postgres.Migrate(ctx, pool, log); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &Ledger{
			TxRunner:  postgres.NewTxRunner(pool),
			Movements: postgres.NewMovementRepository(pool),
			Stocks:    postgres.NewStockRepository(pool),
			Catalog:   postgres.NewCatalogRepository(pool),
			Pinger:    pool,
			Close:     pool.Close,
		}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.Ledger.SQLitePath, cfg.Ledger.Migrate)
		if err != nil {
			return nil, err
		}
		return &Ledger{
			TxRunner:  store,
			Movements: store.Movements(),
			Stocks:    store.Stocks(),
			Catalog:   store.Catalog(),
			Pinger:    store,
			Close: func() {
				if err := store.Close(); err != nil {
					log.Error().Err(err).Msg("cerrar sqlite")
				}
			},
		}, nil

	case config.DriverMemory:
		store := memory.NewStore()
		if cfg.App.Env == "development" {
			seedDemoCatalog(store)
			log.Warn().Msg("kardex en memoria con catálogo de demostración: nada persiste")
		}
		return &Ledger{
			TxRunner:  store,
			Movements: store.Movements(),
			Stocks:    store.Stocks(),
			Catalog:   store,
			Pinger:    store,
			Close:     func() {},
		}, nil
	}
	return nil, fmt.Errorf("driver de kardex no soportado: %q", cfg.Ledger.Driver)
}

// seedDemoCatalog carga un catálogo mínimo para probar el API en local sin base de datos.
func seedDemoCatalog(store *memory.Store) {
	obra := store.AddProject(entity.Project{Code: "OBRA-01", Name: "Obra principal", IsActive: true})
	store.AddLocation(entity.Location{Code: "ALM-01", Name: "Almacén obra principal", ProjectID: &obra.ID, IsActive: true})
	store.AddLocation(entity.Location{Code: "SEG", Name: "Zona de segregación", IsSegregation: true, IsActive: true})
	store.AddItem(entity.Item{Name: "Guantes de nitrilo", Category: "Manos", Unit: "par", IsActive: true})
	store.AddItem(entity.Item{Name: "Botas de seguridad", Category: "Pies", Unit: "par", RequiresSize: true, IsActive: true})
	store.AddItem(entity.Item{Name: "Casco", Category: "Cabeza", Unit: "und", MinStock: 5, IsActive: true})
	store.AddEmployee(entity.Employee{DNI: "00000001", FullName: "Trabajador de prueba", IsActive: true})
}
