package entity

import (
	"fmt"
	"strings"
	"time"
)

// MovementKind tipo de movimiento del kardex.
type MovementKind string

// Tipos de movimiento de inventario.
const (
	KindIN          MovementKind = "IN"           // ingreso de stock
	KindOUT         MovementKind = "OUT"          // entrega a personal
	KindTransferIn  MovementKind = "TRANSFER_IN"  // traslado, entrada en destino
	KindTransferOut MovementKind = "TRANSFER_OUT" // traslado, salida de origen
	KindReturn      MovementKind = "RETURN"       // devolución
	KindAdjust      MovementKind = "ADJUST"       // ajuste (+/-)
)

// AllKinds en el orden en que se presentan en reportes.
var AllKinds = []MovementKind{KindIN, KindOUT, KindTransferIn, KindTransferOut, KindReturn, KindAdjust}

// ParseMovementKind normaliza y valida un tipo de movimiento.
func ParseMovementKind(s string) (MovementKind, error) {
	k := MovementKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("tipo de movimiento desconocido: %q", s)
	}
	return k, nil
}

// Valid indica si el tipo es uno de los conocidos.
func (k MovementKind) Valid() bool {
	for _, v := range AllKinds {
		if k == v {
			return true
		}
	}
	return false
}

// IsOutbound indica si el tipo siempre descuenta stock (se guarda con cantidad negativa).
func (k MovementKind) IsOutbound() bool {
	return k == KindOUT || k == KindTransferOut
}

// Reason motivo de la entrega o del ajuste.
type Reason string

// Motivos reconocidos.
const (
	ReasonInitialIssue Reason = "INITIAL_ISSUE" // entrega inicial
	ReasonRenewal      Reason = "RENEWAL"       // renovación
	ReasonWear         Reason = "WEAR"          // desgaste
	ReasonReplacement  Reason = "REPLACEMENT"   // reposición
	ReasonSizeChange   Reason = "SIZE_CHANGE"   // cambio de talla
	ReasonOther        Reason = "OTHER"
)

var reasons = []Reason{ReasonInitialIssue, ReasonRenewal, ReasonWear, ReasonReplacement, ReasonSizeChange, ReasonOther}

// ParseReason normaliza un motivo; vacío significa "sin motivo".
func ParseReason(s string) (Reason, error) {
	r := Reason(strings.ToUpper(strings.TrimSpace(s)))
	if r == "" {
		return "", nil
	}
	for _, v := range reasons {
		if r == v {
			return r, nil
		}
	}
	return "", fmt.Errorf("motivo desconocido: %q", s)
}

// Movement entrada inmutable del kardex. Quantity lleva signo: positivo entra, negativo sale.
// Size vacío significa "sin talla".
type Movement struct {
	ID            int64
	Timestamp     time.Time // UTC
	Kind          MovementKind
	ProjectID     int64
	LocationID    int64
	ItemID        int64
	Size          string
	Quantity      int64
	EmployeeID    *int64
	Reason        Reason
	RequestNumber string
	Reference     string
	Notes         string
	Actor         string

	// ProposalID identifica la propuesta que originó el movimiento (único, hace idempotente el confirm).
	ProposalID string
	// TransferGroup enlaza TRANSFER_OUT y TRANSFER_IN confirmados juntos.
	TransferGroup string
	// ForcedDuplicateOf guarda el movimiento que el usuario decidió ignorar como duplicado.
	ForcedDuplicateOf *int64
}

// Key devuelve la clave de saldo del movimiento.
func (m *Movement) Key() StockKey {
	return StockKey{ProjectID: m.ProjectID, ItemID: m.ItemID, Size: m.Size}
}

// IsOutbound indica si el movimiento descuenta stock.
func (m *Movement) IsOutbound() bool { return m.Quantity < 0 }

// Before implementa el orden total del kardex: (timestamp, id) ascendente.
func (m *Movement) Before(o *Movement) bool {
	if !m.Timestamp.Equal(o.Timestamp) {
		return m.Timestamp.Before(o.Timestamp)
	}
	return m.ID < o.ID
}

// Clone devuelve una copia profunda (los punteros no se comparten).
func (m *Movement) Clone() *Movement {
	c := *m
	if m.EmployeeID != nil {
		v := *m.EmployeeID
		c.EmployeeID = &v
	}
	if m.ForcedDuplicateOf != nil {
		v := *m.ForcedDuplicateOf
		c.ForcedDuplicateOf = &v
	}
	return &c
}
