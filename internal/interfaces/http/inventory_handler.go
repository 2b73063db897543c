package http

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/epp-kardex/internal/application/dto"
	"github.com/jhoicas/epp-kardex/internal/application/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	"github.com/jhoicas/epp-kardex/pkg/jwt"
)

// ProposalTokens parámetros de firma de los tokens de propuesta.
type ProposalTokens struct {
	Secret  string
	Issuer  string
	Minutes int
}

// InventoryHandler maneja propuestas, confirmaciones y consultas del kardex (protegido).
type InventoryHandler struct {
	workflow   *inventory.Workflow
	aggregator *inventory.StockAggregator
	kardex     *inventory.KardexProjector
	seed       *inventory.SeedUseCase
	tokens     ProposalTokens
	log        zerolog.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	workflow *inventory.Workflow,
	aggregator *inventory.StockAggregator,
	kardex *inventory.KardexProjector,
	seed *inventory.SeedUseCase,
	tokens ProposalTokens,
	log zerolog.Logger,
) *InventoryHandler {
	if tokens.Minutes <= 0 {
		tokens.Minutes = 15
	}
	return &InventoryHandler{
		workflow:   workflow,
		aggregator: aggregator,
		kardex:     kardex,
		seed:       seed,
		tokens:     tokens,
		log:        log,
	}
}

// Propose godoc
// @Summary      Proponer movimiento
// @Description  Valida el movimiento y devuelve un token de propuesta. No escribe en el kardex.
//
//	Si hay un movimiento casi idéntico reciente la propuesta vuelve con state DUPLICATE_FLAGGED.
//
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ProposeMovementRequest  true  "kind, project, location, item, size, quantity"
// @Success      201   {object}  dto.ProposalResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/movements/proposals [post]
func (h *InventoryHandler) Propose(c *fiber.Ctx) error {
	userID := GetUserID(c)
	var in dto.ProposeMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	kind, err := entity.ParseMovementKind(in.Kind)
	if err != nil {
		return badRequest(c, "INVALID_INPUT", err.Error())
	}
	pin := inventory.ProposeInput{
		Kind:             kind,
		ProjectCode:      in.Project,
		LocationCode:     in.Location,
		ItemName:         in.Item,
		Size:             in.Size,
		Quantity:         in.Quantity,
		EmployeeID:       in.EmployeeID,
		Reason:           entity.Reason(in.Reason),
		RequestNumber:    in.RequestNumber,
		Reference:        in.Reference,
		Notes:            in.Notes,
		Actor:            userID,
		DestProjectCode:  in.DestProject,
		DestLocationCode: in.DestLocation,
	}
	if in.OccurredAt != nil {
		pin.OccurredAt = *in.OccurredAt
	}
	p, err := h.workflow.Propose(c.UserContext(), pin)
	if err != nil {
		return writeError(c, h.log, err)
	}
	resp, err := h.proposalResponse(p, userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Confirm godoc
// @Summary      Confirmar propuesta
// @Description  Revalida el stock bajo bloqueo y agrega el movimiento. Confirmar dos veces el mismo
//
//	token devuelve el mismo movimiento. En 409 STOCK_CHANGED o DUPLICATE_DETECTED, details.token
//	trae la propuesta actualizada.
//
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ConfirmProposalRequest  true  "token, force_duplicate"
// @Success      201   {object}  dto.ConfirmProposalResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/movements/proposals/confirm [post]
func (h *InventoryHandler) Confirm(c *fiber.Ctx) error {
	userID := GetUserID(c)
	var in dto.ConfirmProposalRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	p, err := h.openProposal(in.Token, userID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if in.ForceDuplicate {
		if err := h.workflow.Override(p); err != nil {
			return writeError(c, h.log, err)
		}
	}
	id, err := h.workflow.Confirm(c.UserContext(), p)
	if err != nil {
		return h.confirmError(c, p, userID, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ConfirmProposalResponse{
		ProposalID:    p.ID,
		MovementID:    id,
		CounterpartID: p.CounterpartID,
		State:         string(p.State),
	})
}

// Cancel godoc
// @Summary      Cancelar propuesta
// @Description  Descarta la propuesta. El kardex no cambia y el token ya no se puede confirmar.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CancelProposalRequest  true  "token"
// @Success      200   {object}  map[string]string
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/movements/proposals/cancel [post]
func (h *InventoryHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelProposalRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	p, err := h.openProposal(in.Token, GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if err := h.workflow.Cancel(c.UserContext(), p); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"proposal_id": p.ID, "state": string(p.State)})
}

// Balance godoc
// @Summary      Saldo de una clave
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        project  query  string  true   "Código de proyecto"
// @Param        item     query  string  true   "Nombre del EPP"
// @Param        size     query  string  false  "Talla (vacío = sin talla)"
// @Param        as_of    query  string  false  "RFC3339, inclusivo. Vacío = ahora."
// @Success      200  {object}  dto.BalanceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/stock/balance [get]
func (h *InventoryHandler) Balance(c *fiber.Ctx) error {
	asOf, err := queryTime(c, "as_of")
	if err != nil {
		return badRequest(c, "INVALID_INPUT", err.Error())
	}
	qty, err := h.aggregator.BalanceByCodes(c.UserContext(), c.Query("project"), c.Query("item"), c.Query("size"), asOf)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	return c.JSON(dto.BalanceResponse{
		Project:  c.Query("project"),
		Item:     c.Query("item"),
		Size:     c.Query("size"),
		AsOf:     asOf,
		Quantity: qty,
	})
}

// Summary godoc
// @Summary      Stock actual del proyecto por EPP y talla
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        project       query  string  true   "Código de proyecto"
// @Param        include_zero  query  bool    false  "Incluir filas en cero"
// @Success      200  {array}   dto.StockRowResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/stock [get]
func (h *InventoryHandler) Summary(c *fiber.Ctx) error {
	rows, err := h.aggregator.Summary(c.UserContext(), c.Query("project"), c.QueryBool("include_zero", false))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.StockRowResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.StockRowResponse{ItemID: r.ItemID, Item: r.ItemName, Size: r.Size, Quantity: r.Quantity})
	}
	return c.JSON(out)
}

// Reconcile godoc
// @Summary      Comparar saldo cacheado con el kardex
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        project  query  string  true   "Código de proyecto"
// @Param        item     query  string  true   "Nombre del EPP"
// @Param        size     query  string  false  "Talla"
// @Success      200  {object}  dto.ReconcileResponse
// @Router       /api/stock/reconcile [get]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	r, err := h.aggregator.ReconcileByCodes(c.UserContext(), c.Query("project"), c.Query("item"), c.Query("size"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !r.InSync {
		h.log.Warn().
			Str("key", r.Key.String()).
			Int64("replayed", r.Replayed).
			Int64("cached", r.Cached).
			Msg("saldo cacheado desalineado del kardex")
	}
	return c.JSON(dto.ReconcileResponse{Replayed: r.Replayed, Cached: r.Cached, InSync: r.InSync})
}

// Kardex godoc
// @Summary      Kardex de una clave con saldo acumulado
// @Tags         kardex
// @Security     Bearer
// @Produce      json
// @Param        project  query  string  true   "Código de proyecto"
// @Param        item     query  string  true   "Nombre del EPP"
// @Param        size     query  string  false  "Talla"
// @Param        from     query  string  false  "RFC3339"
// @Param        to       query  string  false  "RFC3339"
// @Success      200  {array}   dto.KardexEntryResponse
// @Router       /api/kardex [get]
func (h *InventoryHandler) Kardex(c *fiber.Ctx) error {
	r, err := queryRange(c)
	if err != nil {
		return badRequest(c, "INVALID_INPUT", err.Error())
	}
	entries, err := h.kardex.ProjectByCodes(c.UserContext(), c.Query("project"), c.Query("item"), c.Query("size"), r)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.KardexEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.KardexEntryResponse{Movement: toMovementResponse(e.Movement), RunningBalance: e.RunningBalance})
	}
	return c.JSON(out)
}

// History godoc
// @Summary      Historial de movimientos
// @Description  Más recientes primero. kind acepta varios separados por coma.
// @Tags         kardex
// @Security     Bearer
// @Produce      json
// @Param        from         query  string  false  "RFC3339"
// @Param        to           query  string  false  "RFC3339"
// @Param        project      query  string  false  "Código de proyecto"
// @Param        location     query  string  false  "Código de ubicación"
// @Param        item         query  string  false  "Nombre del EPP"
// @Param        employee_id  query  int     false  "Trabajador"
// @Param        kind         query  string  false  "IN,OUT,..."
// @Param        size_mode    query  string  false  "any | none | specific"
// @Param        size         query  string  false  "Talla (con size_mode=specific)"
// @Param        reason       query  string  false  "Motivo"
// @Param        q            query  string  false  "Texto en referencia o notas"
// @Param        limit        query  int     false  "Máximo de filas"
// @Param        offset       query  int     false  "Desplazamiento"
// @Success      200  {array}   dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/movements [get]
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	r, err := queryRange(c)
	if err != nil {
		return badRequest(c, "INVALID_INPUT", err.Error())
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "INVALID_INPUT", "paginación inválida")
	}
	page.DefaultPage()
	q := inventory.HistoryQuery{
		Range:        r,
		ProjectCode:  c.Query("project"),
		LocationCode: c.Query("location"),
		ItemName:     c.Query("item"),
		SizeMode:     entity.SizeMode(strings.ToLower(c.Query("size_mode"))),
		Size:         c.Query("size"),
		Reason:       entity.Reason(c.Query("reason")),
		Text:         c.Query("q"),
		Limit:        page.Limit,
		Offset:       page.Offset,
	}
	if raw := c.Query("employee_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return badRequest(c, "INVALID_INPUT", "employee_id inválido")
		}
		q.EmployeeID = &id
	}
	if raw := c.Query("kind"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			k, err := entity.ParseMovementKind(part)
			if err != nil {
				return badRequest(c, "INVALID_INPUT", err.Error())
			}
			q.Kinds = append(q.Kinds, k)
		}
	}
	switch q.SizeMode {
	case "", entity.SizeAny, entity.SizeNone, entity.SizeSpecific:
	default:
		return badRequest(c, "INVALID_INPUT", "size_mode debe ser any, none o specific")
	}
	movs, err := h.kardex.History(c.UserContext(), q)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]dto.MovementResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, toMovementResponse(m))
	}
	return c.JSON(out)
}

// SeedAdjustments godoc
// @Summary      Carga inicial de stock (ajustes positivos)
// @Description  Idempotente por referencia: repetir la misma carga no agrega nada.
// @Tags         imports
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SeedRequest  true  "project, location, reference, rows"
// @Success      200   {object}  dto.SeedResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/imports/adjustments [post]
func (h *InventoryHandler) SeedAdjustments(c *fiber.Ctx) error {
	var in dto.SeedRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	sin := inventory.SeedInput{
		ProjectCode:  in.Project,
		LocationCode: in.Location,
		Reference:    in.Reference,
		Actor:        GetUserID(c),
		Notes:        in.Notes,
		Rows:         make([]inventory.SeedRow, 0, len(in.Rows)),
	}
	if in.OccurredAt != nil {
		sin.OccurredAt = *in.OccurredAt
	}
	for _, r := range in.Rows {
		sin.Rows = append(sin.Rows, inventory.SeedRow{ItemName: r.Item, Size: r.Size, Quantity: r.Quantity})
	}
	res, err := h.seed.Seed(c.UserContext(), sin)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SeedResponse{Reference: res.Reference, Inserted: res.Inserted, Skipped: res.Skipped})
}

// openProposal valida el token de propuesta y que pertenezca al usuario de la sesión.
func (h *InventoryHandler) openProposal(token, userID string) (*inventory.Proposal, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token de propuesta requerido", domain.ErrInvalidInput)
	}
	var p inventory.Proposal
	id, actor, err := jwt.ParseProposal(h.tokens.Secret, token, &p)
	if err != nil || id != p.ID {
		return nil, fmt.Errorf("%w: token de propuesta inválido o expirado", domain.ErrUnauthorized)
	}
	if actor != userID {
		return nil, fmt.Errorf("%w: la propuesta pertenece a otro usuario", domain.ErrForbidden)
	}
	return &p, nil
}

// confirmError responde los conflictos reintentables con la propuesta re-firmada en details.token.
func (h *InventoryHandler) confirmError(c *fiber.Ctx, p *inventory.Proposal, userID string, err error) error {
	var (
		stockChanged *domain.StockChangedError
		duplicate    *domain.DuplicateDetectedError
		resp         dto.ErrorResponse
	)
	switch {
	case errors.As(err, &stockChanged):
		resp = dto.ErrorResponse{
			Code:    "STOCK_CHANGED",
			Message: err.Error(),
			Details: map[string]any{"available": stockChanged.Available, "requested": stockChanged.Requested},
		}
	case errors.As(err, &duplicate):
		resp = dto.ErrorResponse{
			Code:    "DUPLICATE_DETECTED",
			Message: err.Error(),
			Details: map[string]any{"match_id": duplicate.MatchID},
		}
	default:
		return writeError(c, h.log, err)
	}
	token, signErr := jwt.SignProposal(h.tokens.Secret, h.tokens.Issuer, p.ID, userID, h.tokens.Minutes, p)
	if signErr != nil {
		return writeError(c, h.log, signErr)
	}
	resp.Details["token"] = token
	resp.Details["state"] = string(p.State)
	return c.Status(fiber.StatusConflict).JSON(resp)
}

func (h *InventoryHandler) proposalResponse(p *inventory.Proposal, userID string) (*dto.ProposalResponse, error) {
	token, err := jwt.SignProposal(h.tokens.Secret, h.tokens.Issuer, p.ID, userID, h.tokens.Minutes, p)
	if err != nil {
		return nil, err
	}
	resp := &dto.ProposalResponse{
		Token:      token,
		ProposalID: p.ID,
		State:      string(p.State),
		Available:  p.Available,
		Movement:   toMovementResponse(p.Movement),
		ExpiresAt:  p.ProposedAt.Add(time.Duration(h.tokens.Minutes) * time.Minute),
	}
	if p.Counterpart != nil {
		cp := toMovementResponse(p.Counterpart)
		resp.Counterpart = &cp
	}
	if p.Duplicate != nil {
		d := toMovementResponse(p.Duplicate)
		resp.Duplicate = &d
	}
	return resp, nil
}

func toMovementResponse(m *entity.Movement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:                m.ID,
		Timestamp:         m.Timestamp,
		Kind:              string(m.Kind),
		ProjectID:         m.ProjectID,
		LocationID:        m.LocationID,
		ItemID:            m.ItemID,
		Size:              m.Size,
		Quantity:          m.Quantity,
		EmployeeID:        m.EmployeeID,
		Reason:            string(m.Reason),
		RequestNumber:     m.RequestNumber,
		Reference:         m.Reference,
		Notes:             m.Notes,
		Actor:             m.Actor,
		TransferGroup:     m.TransferGroup,
		ForcedDuplicateOf: m.ForcedDuplicateOf,
	}
}

func queryTime(c *fiber.Ctx, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New(name + ": se espera RFC3339")
	}
	return t.UTC(), nil
}

func queryRange(c *fiber.Ctx) (entity.TimeRange, error) {
	from, err := queryTime(c, "from")
	if err != nil {
		return entity.TimeRange{}, err
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return entity.TimeRange{}, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return entity.TimeRange{}, errors.New("to es anterior a from")
	}
	return entity.TimeRange{From: from, To: to}, nil
}
