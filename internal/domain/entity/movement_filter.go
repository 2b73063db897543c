package entity

// SizeMode filtro de talla para el historial.
type SizeMode string

const (
	SizeAny      SizeMode = "any"
	SizeNone     SizeMode = "none"
	SizeSpecific SizeMode = "specific"
)

// MovementFilter filtros del historial de movimientos (solo lectura, para reportes).
type MovementFilter struct {
	Range      TimeRange
	ProjectID  *int64
	Kinds      []MovementKind
	ItemID     *int64
	EmployeeID *int64
	LocationID *int64
	SizeMode   SizeMode
	Size       string
	Reason     Reason
	Text       string // busca en reference y notes
	Limit      int
	Offset     int
}
