package repository

import (
	"context"

	"github.com/jhoicas/epp-kardex/internal/domain/entity"
)

// CatalogRepository lectura del catálogo (proyectos, ubicaciones, EPP, personal).
// Devuelve (nil, nil) si el registro no existe; el llamador decide si es un error.
type CatalogRepository interface {
	GetProject(ctx context.Context, code string) (*entity.Project, error)
	GetProjectByID(ctx context.Context, id int64) (*entity.Project, error)
	GetLocation(ctx context.Context, code string) (*entity.Location, error)
	GetItem(ctx context.Context, name string) (*entity.Item, error)
	GetItemByID(ctx context.Context, id int64) (*entity.Item, error)
	GetEmployee(ctx context.Context, id int64) (*entity.Employee, error)
}
