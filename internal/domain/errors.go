package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Referencias de catálogo inexistentes o inactivas.
	ErrConstraint = errors.New("referencia inválida o inactiva")

	// Reglas de validación de movimientos.
	ErrValidation            = errors.New("movimiento inválido")
	ErrInvalidQuantity       = fmt.Errorf("%w: la cantidad debe ser distinta de cero", ErrValidation)
	ErrSizeRequired          = fmt.Errorf("%w: el EPP requiere talla", ErrValidation)
	ErrSizeNotApplicable     = fmt.Errorf("%w: el EPP no admite talla", ErrValidation)
	ErrEmployeeRequired      = fmt.Errorf("%w: la entrega requiere trabajador", ErrValidation)
	ErrEmployeeNotApplicable = fmt.Errorf("%w: el movimiento no admite trabajador", ErrValidation)
	ErrInsufficientStock     = fmt.Errorf("%w: stock insuficiente", ErrValidation)

	ErrDuplicateDetected = errors.New("posible duplicado detectado")
	ErrStockChanged      = errors.New("el stock cambió mientras se confirmaba")
	ErrInvalidState      = errors.New("transición de estado inválida")
)

// ConstraintError referencia de catálogo faltante o inactiva (proyecto, ubicación, EPP, trabajador).
type ConstraintError struct {
	Entity string // project, location, item, employee
	Key    string
	Reason string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Entity, e.Key, e.Reason)
}

func (e *ConstraintError) Unwrap() error { return ErrConstraint }

// NewConstraintError construye un ConstraintError.
func NewConstraintError(entity, key, reason string) *ConstraintError {
	return &ConstraintError{Entity: entity, Key: key, Reason: reason}
}

// InsufficientStockError salida mayor que el saldo disponible al validar.
type InsufficientStockError struct {
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente: disponible %d, solicitado %d", e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// StockChangedError la revalidación al confirmar encontró menos stock que el solicitado.
// Es un conflicto reintentable: el llamador debe volver a proponer con datos frescos.
type StockChangedError struct {
	Available int64
	Requested int64
}

func (e *StockChangedError) Error() string {
	return fmt.Sprintf("el stock cambió: disponible %d, solicitado %d", e.Available, e.Requested)
}

func (e *StockChangedError) Unwrap() error { return ErrStockChanged }

// DuplicateDetectedError advertencia: existe un movimiento casi idéntico dentro de la ventana.
type DuplicateDetectedError struct {
	MatchID int64
}

func (e *DuplicateDetectedError) Error() string {
	return fmt.Sprintf("posible duplicado del movimiento %d", e.MatchID)
}

func (e *DuplicateDetectedError) Unwrap() error { return ErrDuplicateDetected }
