package inventory

import (
	"github.com/jhoicas/epp-kardex/internal/domain"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
)

// SignedQuantity devuelve la cantidad con el signo que se guarda en el kardex.
// Para ADJUST la cantidad ya viene con signo; para el resto se recibe la magnitud (> 0).
func SignedQuantity(kind entity.MovementKind, qty int64) (int64, error) {
	if qty == 0 {
		return 0, domain.ErrInvalidQuantity
	}
	if kind == entity.KindAdjust {
		return qty, nil
	}
	if qty < 0 {
		return 0, domain.ErrInvalidQuantity
	}
	if kind.IsOutbound() {
		return -qty, nil
	}
	return qty, nil
}

// CheckQuantity verifica una cantidad ya firmada: nunca cero y con el signo que corresponde al tipo.
// ADJUST admite ambos signos.
func CheckQuantity(kind entity.MovementKind, signedQty int64) error {
	switch {
	case signedQty == 0:
		return domain.ErrInvalidQuantity
	case kind == entity.KindAdjust:
		return nil
	case kind.IsOutbound() && signedQty > 0:
		return domain.ErrInvalidQuantity
	case !kind.IsOutbound() && signedQty < 0:
		return domain.ErrInvalidQuantity
	}
	return nil
}

// CheckSize verifica que la presencia de talla coincida con el catálogo.
func CheckSize(item *entity.Item, size string) error {
	if item.RequiresSize && size == "" {
		return domain.ErrSizeRequired
	}
	if !item.RequiresSize && size != "" {
		return domain.ErrSizeNotApplicable
	}
	return nil
}

// CheckEmployee: OUT exige trabajador; IN, ADJUST y traslados no lo admiten. RETURN lo acepta opcional.
func CheckEmployee(kind entity.MovementKind, employeeID *int64) error {
	switch kind {
	case entity.KindOUT:
		if employeeID == nil {
			return domain.ErrEmployeeRequired
		}
	case entity.KindIN, entity.KindAdjust, entity.KindTransferIn, entity.KindTransferOut:
		if employeeID != nil {
			return domain.ErrEmployeeNotApplicable
		}
	}
	return nil
}

// CheckStock verifica que una salida no deje el saldo negativo.
func CheckStock(available, signedQty int64) error {
	if signedQty >= 0 {
		return nil
	}
	if available < -signedQty {
		return &domain.InsufficientStockError{Available: available, Requested: -signedQty}
	}
	return nil
}
