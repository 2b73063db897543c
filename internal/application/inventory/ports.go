package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad del append: si fn devuelve error no queda nada escrito.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		stockRepo repository.StockRepository,
	) error) error
}

// Metrics puerto de métricas del motor (Prometheus en producción).
type Metrics interface {
	ProposalEvaluated(kind entity.MovementKind, outcome string)
	ConfirmEvaluated(kind entity.MovementKind, outcome string)
}

// Resultados reportados a Metrics.
const (
	OutcomeAccepted     = "accepted"
	OutcomeRejected     = "rejected"
	OutcomeDuplicate    = "duplicate"
	OutcomeConfirmed    = "confirmed"
	OutcomeReplayed     = "replayed"
	OutcomeStockChanged = "stock_changed"
	OutcomeCancelled    = "cancelled"
	OutcomeError        = "error"
)

type noopMetrics struct{}

func (noopMetrics) ProposalEvaluated(entity.MovementKind, string) {}
func (noopMetrics) ConfirmEvaluated(entity.MovementKind, string)  {}

// Clock permite fijar la hora en tests.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }
