package repository

import (
	"context"

	"github.com/jhoicas/epp-kardex/internal/domain/entity"
)

// StockRepository define el puerto para el saldo cacheado por clave (proyecto, EPP, talla).
// Usado dentro de transacciones para garantizar consistencia con el kardex.
type StockRepository interface {
	// Get devuelve nil si la clave no tiene saldo cacheado.
	Get(ctx context.Context, key entity.StockKey) (*entity.Stock, error)
	// GetForUpdate bloquea la clave hasta el fin de la transacción. Si la fila no existe la
	// inicializa con la suma del kardex.
	GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.Stock, error)
	Upsert(ctx context.Context, stock *entity.Stock) error
}
