package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo saldo cacheado por clave sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene el saldo cacheado de la clave, o nil si nunca se inicializó.
func (r *StockRepo) Get(ctx context.Context, key entity.StockKey) (*entity.Stock, error) {
	query := `
		SELECT quantity, updated_at FROM stock_balances
		WHERE project_id = $1 AND item_id = $2 AND size = $3`
	s := entity.Stock{Key: key}
	err := r.q.QueryRow(ctx, query, key.ProjectID, key.ItemID, key.Size).Scan(&s.Quantity, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return &s, nil
}

// Upsert inserta o actualiza el saldo de la clave.
func (r *StockRepo) Upsert(ctx context.Context, stock *entity.Stock) error {
	query := `
		INSERT INTO stock_balances (project_id, item_id, size, quantity, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (project_id, item_id, size)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`
	k := stock.Key
	if _, err := r.q.Exec(ctx, query, k.ProjectID, k.ItemID, k.Size, stock.Quantity); err != nil {
		return mapWriteError("upsert stock", err)
	}
	return nil
}

// GetForUpdate obtiene el saldo y bloquea la fila (SELECT FOR UPDATE). Si la clave no tiene fila,
// primero la crea con la suma del kardex; ON CONFLICT evita la carrera entre dos inicializaciones.
func (r *StockRepo) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.Stock, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_balances (project_id, item_id, size, quantity, updated_at)
		SELECT $1, $2, $3, COALESCE(SUM(quantity), 0), now()
		FROM movements WHERE project_id = $1 AND item_id = $2 AND size = $3
		ON CONFLICT (project_id, item_id, size) DO NOTHING`,
		key.ProjectID, key.ItemID, key.Size)
	if err != nil {
		return nil, mapWriteError("init stock", err)
	}
	query := `
		SELECT quantity, updated_at FROM stock_balances
		WHERE project_id = $1 AND item_id = $2 AND size = $3
		FOR UPDATE`
	s := entity.Stock{Key: key}
	if err := r.q.QueryRow(ctx, query, key.ProjectID, key.ItemID, key.Size).Scan(&s.Quantity, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	return &s, nil
}
