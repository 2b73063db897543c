package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/epp-kardex/internal/application/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	"github.com/jhoicas/epp-kardex/internal/infrastructure/memory"
)

var base = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	ctx      context.Context
	clock    *fakeClock
	store    *memory.Store
	agg      *inventory.StockAggregator
	workflow *inventory.Workflow
	kardex   *inventory.KardexProjector
	seed     *inventory.SeedUseCase

	obra1, obra2 *entity.Project
	alm1, alm2   *entity.Location
	guantes      *entity.Item
	botas        *entity.Item
	juan, ana    *entity.Employee
	inactivo     *entity.Employee
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{t: base}
	store := memory.NewStore().WithClock(clock.Now)

	f := &fixture{ctx: context.Background(), clock: clock, store: store}
	f.obra1 = store.AddProject(entity.Project{Code: "OBRA-01", Name: "Obra Norte", IsActive: true})
	f.obra2 = store.AddProject(entity.Project{Code: "OBRA-02", Name: "Obra Sur", IsActive: true})
	f.alm1 = store.AddLocation(entity.Location{Code: "ALM-01", Name: "Almacén Norte", ProjectID: &f.obra1.ID, IsActive: true})
	f.alm2 = store.AddLocation(entity.Location{Code: "ALM-02", Name: "Almacén Sur", ProjectID: &f.obra2.ID, IsActive: true})
	store.AddLocation(entity.Location{Code: "SEG", Name: "Segregación", IsSegregation: true, IsActive: true})
	f.guantes = store.AddItem(entity.Item{Name: "Guantes de nitrilo", Unit: "par", IsActive: true})
	f.botas = store.AddItem(entity.Item{Name: "Botas de seguridad", Unit: "par", RequiresSize: true, IsActive: true})
	f.juan = store.AddEmployee(entity.Employee{DNI: "70000001", FullName: "Juan Pérez", IsActive: true})
	f.ana = store.AddEmployee(entity.Employee{DNI: "70000002", FullName: "Ana Quispe", IsActive: true})
	f.inactivo = store.AddEmployee(entity.Employee{DNI: "70000003", FullName: "Cesado", IsActive: false})

	movRepo, stockRepo := store.Movements(), store.Stocks()
	f.agg = inventory.NewStockAggregator(movRepo, stockRepo, store).WithClock(clock.Now)
	validator := inventory.NewValidator(store, f.agg)
	detector := inventory.NewDuplicateDetector(movRepo, inventory.DefaultDuplicateWindow)
	f.workflow = inventory.NewWorkflow(store, validator, detector, nil, zerolog.Nop()).WithClock(clock.Now)
	f.kardex = inventory.NewKardexProjector(movRepo, store)
	f.seed = inventory.NewSeedUseCase(store, store, validator, zerolog.Nop()).WithClock(clock.Now)
	return f
}

func (f *fixture) key(item *entity.Item, size string) entity.StockKey {
	return entity.StockKey{ProjectID: f.obra1.ID, ItemID: item.ID, Size: size}
}

func (f *fixture) balance(t *testing.T, key entity.StockKey) int64 {
	t.Helper()
	b, err := f.agg.Balance(f.ctx, key, time.Time{})
	require.NoError(t, err)
	return b
}

func (f *fixture) input(kind entity.MovementKind, item *entity.Item, size string, qty int64, emp *entity.Employee) inventory.ProposeInput {
	in := inventory.ProposeInput{
		Kind:         kind,
		ProjectCode:  "obra-01",
		LocationCode: "ALM-01",
		ItemName:     item.Name,
		Size:         size,
		Quantity:     qty,
		Actor:        "almacenero",
	}
	if emp != nil {
		id := emp.ID
		in.EmployeeID = &id
	}
	return in
}

// record propone y confirma; falla el test si algo no sale limpio.
func (f *fixture) record(t *testing.T, in inventory.ProposeInput) int64 {
	t.Helper()
	p, err := f.workflow.Propose(f.ctx, in)
	require.NoError(t, err)
	require.Equal(t, inventory.StateProposed, p.State)
	id, err := f.workflow.Confirm(f.ctx, p)
	require.NoError(t, err)
	return id
}
