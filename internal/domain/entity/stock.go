package entity

import (
	"fmt"
	"time"
)

// StockKey identifica un saldo: proyecto + EPP + talla ("" = sin talla).
type StockKey struct {
	ProjectID int64
	ItemID    int64
	Size      string
}

func (k StockKey) String() string {
	return fmt.Sprintf("%d:%d:%s", k.ProjectID, k.ItemID, k.Size)
}

// Less orden estable de claves; se usa para bloquear varias claves sin interbloqueos.
func (k StockKey) Less(o StockKey) bool {
	if k.ProjectID != o.ProjectID {
		return k.ProjectID < o.ProjectID
	}
	if k.ItemID != o.ItemID {
		return k.ItemID < o.ItemID
	}
	return k.Size < o.Size
}

// Stock saldo cacheado por clave. Derivado del kardex; el kardex manda.
type Stock struct {
	Key       StockKey
	Quantity  int64
	UpdatedAt time.Time
}

// StockRow fila del resumen de stock de un proyecto.
type StockRow struct {
	ItemID   int64
	ItemName string
	Size     string
	Quantity int64
}

// TimeRange rango cerrado [From, To]; un extremo en cero no limita.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains indica si t cae dentro del rango.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// KardexEntry movimiento con el saldo acumulado tras aplicarlo.
type KardexEntry struct {
	Movement       *Movement
	RunningBalance int64
}
