package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	dominv "github.com/jhoicas/epp-kardex/internal/domain/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
)

// DefaultDuplicateWindow ventana por defecto para detectar doble envío.
const DefaultDuplicateWindow = 10 * time.Second

// DuplicateDetector busca en el kardex un movimiento casi idéntico confirmado poco antes.
// Es una red de seguridad, no una restricción de unicidad: el llamador puede forzar el registro.
type DuplicateDetector struct {
	movRepo repository.MovementRepository
	window  time.Duration
}

// NewDuplicateDetector construye el detector; window <= 0 usa DefaultDuplicateWindow.
func NewDuplicateDetector(movRepo repository.MovementRepository, window time.Duration) *DuplicateDetector {
	if window <= 0 {
		window = DefaultDuplicateWindow
	}
	return &DuplicateDetector{movRepo: movRepo, window: window}
}

// Window devuelve la ventana configurada.
func (d *DuplicateDetector) Window() time.Duration { return d.window }

// FindRecentMatch devuelve el movimiento con igual tipo, proyecto, EPP, talla, trabajador (si hay) y
// cantidad cuyo timestamp cae en [at-window, at], o nil si no hay.
func (d *DuplicateDetector) FindRecentMatch(ctx context.Context, m *entity.Movement, at time.Time) (*entity.Movement, error) {
	return findRecentMatch(ctx, d.movRepo, dominv.ProbeFor(m, at, d.window))
}

func findRecentMatch(ctx context.Context, movRepo repository.MovementRepository, probe dominv.DuplicateProbe) (*entity.Movement, error) {
	match, err := movRepo.FindRecentMatch(ctx, probe)
	if err != nil {
		return nil, fmt.Errorf("buscar duplicado: %w", err)
	}
	return match, nil
}
