package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// CatalogRepo lectura del catálogo; las altas las hace otro sistema (o AddX en desarrollo).
type CatalogRepo struct {
	q querier
}

func (r *CatalogRepo) GetProject(ctx context.Context, code string) (*entity.Project, error) {
	return r.project(ctx, `WHERE code = ?`, code)
}

func (r *CatalogRepo) GetProjectByID(ctx context.Context, id int64) (*entity.Project, error) {
	return r.project(ctx, `WHERE id = ?`, id)
}

func (r *CatalogRepo) project(ctx context.Context, where string, arg any) (*entity.Project, error) {
	var p entity.Project
	err := r.q.QueryRowContext(ctx, `SELECT id, code, name, is_active FROM projects `+where, arg).
		Scan(&p.ID, &p.Code, &p.Name, &p.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

func (r *CatalogRepo) GetLocation(ctx context.Context, code string) (*entity.Location, error) {
	var l entity.Location
	err := r.q.QueryRowContext(ctx,
		`SELECT id, code, name, project_id, is_segregation, is_active FROM locations WHERE code = ?`, code,
	).Scan(&l.ID, &l.Code, &l.Name, &l.ProjectID, &l.IsSegregation, &l.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &l, nil
}

func (r *CatalogRepo) GetItem(ctx context.Context, name string) (*entity.Item, error) {
	return r.item(ctx, `WHERE name = ?`, name)
}

func (r *CatalogRepo) GetItemByID(ctx context.Context, id int64) (*entity.Item, error) {
	return r.item(ctx, `WHERE id = ?`, id)
}

func (r *CatalogRepo) item(ctx context.Context, where string, arg any) (*entity.Item, error) {
	var it entity.Item
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, category, unit, requires_size, min_stock, is_active FROM items `+where, arg,
	).Scan(&it.ID, &it.Name, &it.Category, &it.Unit, &it.RequiresSize, &it.MinStock, &it.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &it, nil
}

func (r *CatalogRepo) GetEmployee(ctx context.Context, id int64) (*entity.Employee, error) {
	var e entity.Employee
	err := r.q.QueryRowContext(ctx, `SELECT id, dni, full_name, is_active FROM employees WHERE id = ?`, id).
		Scan(&e.ID, &e.DNI, &e.FullName, &e.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return &e, nil
}

// AddProject registra un proyecto (desarrollo y tests).
func (r *CatalogRepo) AddProject(ctx context.Context, p *entity.Project) error {
	return r.insert(ctx, "add project", &p.ID,
		`INSERT INTO projects (code, name, is_active) VALUES (?, ?, ?) RETURNING id`, p.Code, p.Name, p.IsActive)
}

// AddLocation registra una ubicación.
func (r *CatalogRepo) AddLocation(ctx context.Context, l *entity.Location) error {
	return r.insert(ctx, "add location", &l.ID,
		`INSERT INTO locations (code, name, project_id, is_segregation, is_active) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		l.Code, l.Name, l.ProjectID, l.IsSegregation, l.IsActive)
}

// AddItem registra un EPP.
func (r *CatalogRepo) AddItem(ctx context.Context, it *entity.Item) error {
	return r.insert(ctx, "add item", &it.ID,
		`INSERT INTO items (name, category, unit, requires_size, min_stock, is_active) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		it.Name, it.Category, it.Unit, it.RequiresSize, it.MinStock, it.IsActive)
}

// AddEmployee registra un trabajador.
func (r *CatalogRepo) AddEmployee(ctx context.Context, e *entity.Employee) error {
	return r.insert(ctx, "add employee", &e.ID,
		`INSERT INTO employees (dni, full_name, is_active) VALUES (?, ?, ?) RETURNING id`, e.DNI, e.FullName, e.IsActive)
}

func (r *CatalogRepo) insert(ctx context.Context, op string, id *int64, query string, args ...any) error {
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(id); err != nil {
		return mapWriteError(op, err)
	}
	return nil
}
