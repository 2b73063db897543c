// Package memory implementa los puertos del kardex en memoria. Sirve para desarrollo local y tests;
// no persiste entre reinicios.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jhoicas/epp-kardex/internal/application/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
	"github.com/jhoicas/epp-kardex/pkg/textnorm"
)

var (
	_ inventory.TxRunner           = (*Store)(nil)
	_ repository.CatalogRepository = (*Store)(nil)
)

// Store guarda kardex, saldos cacheados y catálogo. Las escrituras pasan por Run, que las serializa
// y las publica de una sola vez al terminar sin error.
type Store struct {
	writeMu sync.Mutex // una transacción de escritura a la vez
	mu      sync.RWMutex

	movements []*entity.Movement
	balances  map[entity.StockKey]entity.Stock
	cancelled map[string]time.Time // propuesta -> vencimiento

	projects  map[int64]*entity.Project
	locations map[int64]*entity.Location
	items     map[int64]*entity.Item
	employees map[int64]*entity.Employee

	nextID    atomic.Int64
	catalogID atomic.Int64
	now       func() time.Time
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		balances:  make(map[entity.StockKey]entity.Stock),
		cancelled: make(map[string]time.Time),
		projects:  make(map[int64]*entity.Project),
		locations: make(map[int64]*entity.Location),
		items:     make(map[int64]*entity.Item),
		employees: make(map[int64]*entity.Employee),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock reemplaza el reloj usado para timestamps vacíos (tests).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Movements devuelve el repositorio de movimientos fuera de transacción. Append por esta vía
// se confirma de inmediato.
func (s *Store) Movements() repository.MovementRepository { return &view{s: s} }

// Stocks devuelve el repositorio de saldos fuera de transacción.
func (s *Store) Stocks() repository.StockRepository { return &view{s: s} }

// Ping siempre responde salvo que ctx esté cancelado.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Run ejecuta fn con repositorios atados a una transacción en memoria.
// Si fn devuelve error nada de lo escrito queda visible.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	stockRepo repository.StockRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	t := &tx{
		balances:  make(map[entity.StockKey]entity.Stock),
		refs:      make(map[string]bool),
		cancelled: make(map[string]time.Time),
	}
	v := &view{s: s, tx: t}
	if err := fn(v, v); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.commit(t)
	return nil
}

func (s *Store) commit(t *tx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movements = append(s.movements, t.pending...)
	for k, b := range t.balances {
		s.balances[k] = b
	}
	now := s.now()
	for id, exp := range s.cancelled {
		if exp.Before(now) {
			delete(s.cancelled, id)
		}
	}
	for id, exp := range t.cancelled {
		if exp.After(s.cancelled[id]) {
			s.cancelled[id] = exp
		}
	}
}

// AddProject registra o reemplaza un proyecto. ID 0 asigna uno nuevo.
func (s *Store) AddProject(p entity.Project) *entity.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.catalogID.Add(1)
	}
	p.Code = textnorm.Code(p.Code)
	s.projects[p.ID] = &p
	return &p
}

// AddLocation registra o reemplaza una ubicación.
func (s *Store) AddLocation(l entity.Location) *entity.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == 0 {
		l.ID = s.catalogID.Add(1)
	}
	l.Code = textnorm.Code(l.Code)
	s.locations[l.ID] = &l
	return &l
}

// AddItem registra o reemplaza un EPP.
func (s *Store) AddItem(it entity.Item) *entity.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it.ID == 0 {
		it.ID = s.catalogID.Add(1)
	}
	it.Name = textnorm.Name(it.Name)
	s.items[it.ID] = &it
	return &it
}

// AddEmployee registra o reemplaza un trabajador.
func (s *Store) AddEmployee(e entity.Employee) *entity.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.catalogID.Add(1)
	}
	s.employees[e.ID] = &e
	return &e
}

// GetProject busca un proyecto por código.
func (s *Store) GetProject(_ context.Context, code string) (*entity.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.projects {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

// GetProjectByID busca un proyecto por ID.
func (s *Store) GetProjectByID(_ context.Context, id int64) (*entity.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.projects[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

// GetLocation busca una ubicación por código.
func (s *Store) GetLocation(_ context.Context, code string) (*entity.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.locations {
		if l.Code == code {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

// GetItem busca un EPP por nombre.
func (s *Store) GetItem(_ context.Context, name string) (*entity.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.Name == name {
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

// GetItemByID busca un EPP por ID.
func (s *Store) GetItemByID(_ context.Context, id int64) (*entity.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if it, ok := s.items[id]; ok {
		cp := *it
		return &cp, nil
	}
	return nil, nil
}

// GetEmployee busca un trabajador por ID.
func (s *Store) GetEmployee(_ context.Context, id int64) (*entity.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.employees[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}
