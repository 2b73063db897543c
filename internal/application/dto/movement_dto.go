package dto

import "time"

// ProposeMovementRequest body para POST /api/movements/proposals.
// Quantity es la magnitud (> 0); solo ADJUST lleva signo.
type ProposeMovementRequest struct {
	Kind          string     `json:"kind"`
	Project       string     `json:"project"`
	Location      string     `json:"location"`
	Item          string     `json:"item"`
	Size          string     `json:"size,omitempty"`
	Quantity      int64      `json:"quantity"`
	EmployeeID    *int64     `json:"employee_id,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	RequestNumber string     `json:"request_number,omitempty"`
	Reference     string     `json:"reference,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	OccurredAt    *time.Time `json:"occurred_at,omitempty"`

	DestProject  string `json:"dest_project,omitempty"`
	DestLocation string `json:"dest_location,omitempty"`
}

// MovementResponse movimiento del kardex. Quantity lleva signo.
type MovementResponse struct {
	ID                int64     `json:"id,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	Kind              string    `json:"kind"`
	ProjectID         int64     `json:"project_id"`
	LocationID        int64     `json:"location_id"`
	ItemID            int64     `json:"item_id"`
	Size              string    `json:"size,omitempty"`
	Quantity          int64     `json:"quantity"`
	EmployeeID        *int64    `json:"employee_id,omitempty"`
	Reason            string    `json:"reason,omitempty"`
	RequestNumber     string    `json:"request_number,omitempty"`
	Reference         string    `json:"reference,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	Actor             string    `json:"actor,omitempty"`
	TransferGroup     string    `json:"transfer_group,omitempty"`
	ForcedDuplicateOf *int64    `json:"forced_duplicate_of,omitempty"`
}

// ProposalResponse propuesta lista para confirmar. Token se devuelve tal cual al confirmar o cancelar.
type ProposalResponse struct {
	Token       string            `json:"token"`
	ProposalID  string            `json:"proposal_id"`
	State       string            `json:"state"`
	Available   int64             `json:"available"`
	Movement    MovementResponse  `json:"movement"`
	Counterpart *MovementResponse `json:"counterpart,omitempty"`
	Duplicate   *MovementResponse `json:"duplicate,omitempty"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

// ConfirmProposalRequest body para POST /api/movements/proposals/confirm.
type ConfirmProposalRequest struct {
	Token          string `json:"token"`
	ForceDuplicate bool   `json:"force_duplicate"`
}

// ConfirmProposalResponse resultado de confirmar.
type ConfirmProposalResponse struct {
	ProposalID    string `json:"proposal_id"`
	MovementID    int64  `json:"movement_id"`
	CounterpartID int64  `json:"counterpart_id,omitempty"`
	State         string `json:"state"`
}

// CancelProposalRequest body para POST /api/movements/proposals/cancel.
type CancelProposalRequest struct {
	Token string `json:"token"`
}

// BalanceResponse saldo de una clave a una fecha.
type BalanceResponse struct {
	Project  string    `json:"project"`
	Item     string    `json:"item"`
	Size     string    `json:"size,omitempty"`
	AsOf     time.Time `json:"as_of"`
	Quantity int64     `json:"quantity"`
}

// StockRowResponse fila del resumen de stock.
type StockRowResponse struct {
	ItemID   int64  `json:"item_id"`
	Item     string `json:"item"`
	Size     string `json:"size,omitempty"`
	Quantity int64  `json:"quantity"`
}

// KardexEntryResponse movimiento con saldo acumulado.
type KardexEntryResponse struct {
	Movement       MovementResponse `json:"movement"`
	RunningBalance int64            `json:"running_balance"`
}

// ReconcileResponse comparación saldo cacheado vs. replay.
type ReconcileResponse struct {
	Replayed int64 `json:"replayed"`
	Cached   int64 `json:"cached"`
	InSync   bool  `json:"in_sync"`
}

// SeedRowRequest fila de carga inicial.
type SeedRowRequest struct {
	Item     string `json:"item"`
	Size     string `json:"size,omitempty"`
	Quantity int64  `json:"quantity"`
}

// SeedRequest body para POST /api/imports/adjustments.
type SeedRequest struct {
	Project    string           `json:"project"`
	Location   string           `json:"location"`
	Reference  string           `json:"reference"`
	OccurredAt *time.Time       `json:"occurred_at,omitempty"`
	Notes      string           `json:"notes,omitempty"`
	Rows       []SeedRowRequest `json:"rows"`
}

// SeedResponse resultado de la carga.
type SeedResponse struct {
	Reference string `json:"reference"`
	Inserted  int    `json:"inserted"`
	Skipped   bool   `json:"skipped"`
}
