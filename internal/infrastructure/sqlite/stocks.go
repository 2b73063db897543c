package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo saldo cacheado por clave.
type StockRepo struct {
	q querier
}

func (r *StockRepo) Get(ctx context.Context, key entity.StockKey) (*entity.Stock, error) {
	s := entity.Stock{Key: key}
	var at int64
	err := r.q.QueryRowContext(ctx,
		`SELECT quantity, updated_at FROM stock_balances WHERE project_id = ? AND item_id = ? AND size = ?`,
		key.ProjectID, key.ItemID, key.Size,
	).Scan(&s.Quantity, &at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	s.UpdatedAt = fromMicros(at)
	return &s, nil
}

// GetForUpdate inicializa la fila desde el kardex si falta. El bloqueo real es el escritor único de Store.Run.
func (r *StockRepo) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.Stock, error) {
	_, err := r.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO stock_balances (project_id, item_id, size, quantity, updated_at)
		SELECT ?1, ?2, ?3, COALESCE(SUM(quantity), 0), ?4
		FROM movements WHERE project_id = ?1 AND item_id = ?2 AND size = ?3`,
		key.ProjectID, key.ItemID, key.Size, micros(time.Now()))
	if err != nil {
		return nil, mapWriteError("init stock", err)
	}
	s, err := r.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("get stock for update: fila %s no inicializada", key)
	}
	return s, nil
}

func (r *StockRepo) Upsert(ctx context.Context, stock *entity.Stock) error {
	k := stock.Key
	at := stock.UpdatedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO stock_balances (project_id, item_id, size, quantity, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (project_id, item_id, size)
		DO UPDATE SET quantity = excluded.quantity, updated_at = excluded.updated_at`,
		k.ProjectID, k.ItemID, k.Size, stock.Quantity, micros(at))
	if err != nil {
		return mapWriteError("upsert stock", err)
	}
	return nil
}
