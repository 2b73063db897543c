package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// CatalogRepo lectura del catálogo. El alta y edición del catálogo la hace otro sistema.
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador.
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

func (r *CatalogRepo) GetProject(ctx context.Context, code string) (*entity.Project, error) {
	return r.project(ctx, `SELECT id, code, name, is_active FROM projects WHERE code = $1`, code)
}

func (r *CatalogRepo) GetProjectByID(ctx context.Context, id int64) (*entity.Project, error) {
	return r.project(ctx, `SELECT id, code, name, is_active FROM projects WHERE id = $1`, id)
}

func (r *CatalogRepo) project(ctx context.Context, query string, arg any) (*entity.Project, error) {
	var p entity.Project
	err := r.q.QueryRow(ctx, query, arg).Scan(&p.ID, &p.Code, &p.Name, &p.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

func (r *CatalogRepo) GetLocation(ctx context.Context, code string) (*entity.Location, error) {
	var l entity.Location
	err := r.q.QueryRow(ctx, `
		SELECT id, code, name, project_id, is_segregation, is_active FROM locations WHERE code = $1`, code,
	).Scan(&l.ID, &l.Code, &l.Name, &l.ProjectID, &l.IsSegregation, &l.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &l, nil
}

func (r *CatalogRepo) GetItem(ctx context.Context, name string) (*entity.Item, error) {
	return r.item(ctx, `WHERE name = $1`, name)
}

func (r *CatalogRepo) GetItemByID(ctx context.Context, id int64) (*entity.Item, error) {
	return r.item(ctx, `WHERE id = $1`, id)
}

func (r *CatalogRepo) item(ctx context.Context, where string, arg any) (*entity.Item, error) {
	var it entity.Item
	err := r.q.QueryRow(ctx, `
		SELECT id, name, category, unit, requires_size, min_stock, is_active FROM items `+where, arg,
	).Scan(&it.ID, &it.Name, &it.Category, &it.Unit, &it.RequiresSize, &it.MinStock, &it.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &it, nil
}

func (r *CatalogRepo) GetEmployee(ctx context.Context, id int64) (*entity.Employee, error) {
	var e entity.Employee
	err := r.q.QueryRow(ctx, `SELECT id, dni, full_name, is_active FROM employees WHERE id = $1`, id).
		Scan(&e.ID, &e.DNI, &e.FullName, &e.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return &e, nil
}
