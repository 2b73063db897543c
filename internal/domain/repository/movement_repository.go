package repository

import (
	"context"
	"time"

	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	"github.com/jhoicas/epp-kardex/internal/domain/inventory"
)

// MovementRepository puerto del kardex (log append-only). No hay Update ni Delete: las correcciones
// son movimientos nuevos.
type MovementRepository interface {
	// Append inserta el movimiento de forma atómica, asigna ID y completa Timestamp si viene vacío.
	// Devuelve *domain.ConstraintError si una referencia de catálogo no existe o está inactiva.
	Append(ctx context.Context, m *entity.Movement) (int64, error)
	// QueryByKey devuelve los movimientos de la clave dentro del rango, ordenados por (timestamp, id).
	QueryByKey(ctx context.Context, key entity.StockKey, r entity.TimeRange) ([]*entity.Movement, error)
	// SumByKey suma con signo las cantidades con timestamp <= asOf.
	SumByKey(ctx context.Context, key entity.StockKey, asOf time.Time) (int64, error)
	// FindRecentMatch devuelve el movimiento más reciente que coincide con la sonda, o nil.
	FindRecentMatch(ctx context.Context, probe inventory.DuplicateProbe) (*entity.Movement, error)
	// FindByProposalID devuelve los movimientos confirmados por una propuesta (0, 1 o 2 si es traslado).
	FindByProposalID(ctx context.Context, proposalID string) ([]*entity.Movement, error)
	// ExistsReference indica si ya hay movimientos con esa referencia en el proyecto/ubicación.
	ExistsReference(ctx context.Context, reference string, projectID, locationID int64) (bool, error)
	// LockReference serializa las cargas que comparten referencia (dentro de una transacción).
	LockReference(ctx context.Context, reference string) error
	// List historial filtrado para reportes, ordenado por (timestamp, id) descendente.
	List(ctx context.Context, f entity.MovementFilter) ([]*entity.Movement, error)
	// SummaryByProject saldo actual por (EPP, talla) del proyecto. Con includeUnmoved agrega los EPP
	// activos que nunca tuvieron movimientos en el proyecto, en cero y sin talla.
	SummaryByProject(ctx context.Context, projectID int64, includeUnmoved bool) ([]entity.StockRow, error)
	// CancelProposal marca la propuesta como cancelada hasta expiresAt. Repetirla no falla.
	CancelProposal(ctx context.Context, proposalID string, expiresAt time.Time) error
	// ProposalCancelled indica si la propuesta fue cancelada.
	ProposalCancelled(ctx context.Context, proposalID string) (bool, error)
}
