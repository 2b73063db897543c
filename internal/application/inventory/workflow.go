package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/epp-kardex/internal/domain"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	dominv "github.com/jhoicas/epp-kardex/internal/domain/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
)

// ProposalState estado de un movimiento en curso.
type ProposalState string

// Estados del flujo propuesta -> confirmación. Draft nunca se materializa: si la validación
// falla no hay Proposal.
const (
	StateDraft            ProposalState = "DRAFT"
	StateProposed         ProposalState = "PROPOSED"
	StateDuplicateFlagged ProposalState = "DUPLICATE_FLAGGED"
	StateConfirmed        ProposalState = "CONFIRMED"
	StateCancelled        ProposalState = "CANCELLED"
)

// Proposal handle del movimiento en curso. Lo guarda el llamador (sesión, token), nunca el motor.
type Proposal struct {
	ID             string
	State          ProposalState
	Movement       *entity.Movement
	Counterpart    *entity.Movement // TRANSFER_IN emparejado, si hay destino
	Available      int64            // saldo leído al proponer (o al fallar la revalidación)
	Duplicate      *entity.Movement // coincidencia reciente, si la hubo
	ForceDuplicate bool
	ProposedAt     time.Time

	MovementID    int64
	CounterpartID int64
}

// Workflow orquesta propuesta -> revalidación -> confirmación.
// Solo la confirmación escribe, y lo hace dentro de una unidad atómica que bloquea la clave.
type Workflow struct {
	txRunner  TxRunner
	validator *Validator
	detector  *DuplicateDetector
	metrics   Metrics
	log       zerolog.Logger
	now       Clock
}

// NewWorkflow construye el flujo. metrics puede ser nil.
func NewWorkflow(
	txRunner TxRunner,
	validator *Validator,
	detector *DuplicateDetector,
	metrics Metrics,
	log zerolog.Logger,
) *Workflow {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Workflow{
		txRunner:  txRunner,
		validator: validator,
		detector:  detector,
		metrics:   metrics,
		log:       log,
		now:       systemClock,
	}
}

// WithClock reemplaza el reloj (tests).
func (w *Workflow) WithClock(c Clock) *Workflow {
	w.now = c
	return w
}

// Propose valida el movimiento y busca duplicados recientes. Si la validación falla devuelve el
// error y ninguna propuesta (el movimiento sigue en borrador del lado del llamador).
// Un duplicado no es error: la propuesta vuelve en StateDuplicateFlagged.
func (w *Workflow) Propose(ctx context.Context, in ProposeInput) (*Proposal, error) {
	d, err := w.validator.Resolve(ctx, in)
	if err != nil {
		w.metrics.ProposalEvaluated(in.Kind, OutcomeRejected)
		return nil, err
	}
	available, err := w.validator.Validate(ctx, d)
	if err != nil {
		w.metrics.ProposalEvaluated(in.Kind, OutcomeRejected)
		return nil, err
	}

	now := w.now()
	p := &Proposal{
		ID:          uuid.NewString(),
		State:       StateProposed,
		Movement:    d.Movement,
		Counterpart: d.Counterpart,
		Available:   available,
		ProposedAt:  now,
	}
	at := now
	if !d.Movement.Timestamp.IsZero() {
		at = d.Movement.Timestamp
	}
	match, err := w.detector.FindRecentMatch(ctx, d.Movement, at)
	if err != nil {
		w.metrics.ProposalEvaluated(in.Kind, OutcomeError)
		return nil, err
	}
	if match != nil {
		p.State = StateDuplicateFlagged
		p.Duplicate = match
		w.metrics.ProposalEvaluated(in.Kind, OutcomeDuplicate)
		w.log.Warn().
			Str("proposal_id", p.ID).
			Int64("match_id", match.ID).
			Str("kind", string(in.Kind)).
			Msg("posible duplicado al proponer")
		return p, nil
	}
	w.metrics.ProposalEvaluated(in.Kind, OutcomeAccepted)
	return p, nil
}

// Override marca la propuesta para registrarse aunque parezca duplicada. Se puede pedir antes de
// que aparezca el duplicado; al confirmar, la coincidencia que haya queda en Movement.ForcedDuplicateOf.
func (w *Workflow) Override(p *Proposal) error {
	switch p.State {
	case StateDuplicateFlagged, StateProposed:
		p.ForceDuplicate = true
		p.State = StateProposed
		return nil
	}
	return fmt.Errorf("%w: forzar duplicado desde %s", domain.ErrInvalidState, p.State)
}

// cancelRetention cuánto se recuerda una cancelación. Supera la vida de cualquier token de propuesta.
const cancelRetention = 24 * time.Hour

// Cancel descarta la propuesta y lo registra, para que un handle viejo de la misma propuesta no pueda
// confirmarse después. No toca el kardex. Cancelar una propuesta ya confirmada es ErrInvalidState.
func (w *Workflow) Cancel(ctx context.Context, p *Proposal) error {
	if p == nil {
		return domain.ErrInvalidInput
	}
	switch p.State {
	case StateCancelled:
		return nil
	case StateProposed, StateDuplicateFlagged:
	default:
		return fmt.Errorf("%w: cancelar desde %s", domain.ErrInvalidState, p.State)
	}
	err := w.txRunner.Run(ctx, func(movRepo repository.MovementRepository, _ repository.StockRepository) error {
		if err := movRepo.LockReference(ctx, proposalLock(p.ID)); err != nil {
			return err
		}
		prior, err := movRepo.FindByProposalID(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("buscar propuesta confirmada: %w", err)
		}
		if len(prior) > 0 {
			return fmt.Errorf("%w: la propuesta ya fue confirmada", domain.ErrInvalidState)
		}
		return movRepo.CancelProposal(ctx, p.ID, w.now().Add(cancelRetention))
	})
	if err != nil {
		return err
	}
	p.State = StateCancelled
	if p.Movement != nil {
		w.metrics.ConfirmEvaluated(p.Movement.Kind, OutcomeCancelled)
	}
	w.log.Info().Str("proposal_id", p.ID).Msg("propuesta cancelada")
	return nil
}

func proposalLock(id string) string { return "proposal:" + id }

type confirmResult struct {
	movementID    int64
	counterpartID int64
	replayed      bool
	duplicate     *entity.Movement
}

// Confirm revalida el stock contra el saldo actual (no el visto al proponer), repite la búsqueda de
// duplicados y agrega el movimiento. Todo dentro de una transacción con la clave bloqueada.
// Confirmar dos veces la misma propuesta devuelve el mismo ID; una propuesta cancelada no se confirma.
//
// El saldo revalidado es el menor entre lo que hay a la fecha y el total del kardex, que incluye
// movimientos con fecha futura: una entrada futura no cubre una salida de hoy.
//
// Errores: *domain.StockChangedError (vuelve a StateProposed), *domain.DuplicateDetectedError
// (pasa a StateDuplicateFlagged), domain.ErrInvalidState si fue cancelada, o un error de
// almacenamiento (estado sin cambios).
func (w *Workflow) Confirm(ctx context.Context, p *Proposal) (int64, error) {
	if p == nil || p.Movement == nil {
		return 0, domain.ErrInvalidInput
	}
	switch p.State {
	case StateConfirmed:
		return p.MovementID, nil
	case StateProposed:
	case StateDuplicateFlagged:
		if !p.ForceDuplicate {
			return 0, &domain.DuplicateDetectedError{MatchID: matchID(p.Duplicate)}
		}
	default:
		return 0, fmt.Errorf("%w: confirmar desde %s", domain.ErrInvalidState, p.State)
	}

	m := p.Movement.Clone()
	m.ProposalID = p.ID
	if m.Timestamp.IsZero() {
		m.Timestamp = w.now()
	}
	var cp *entity.Movement
	if p.Counterpart != nil {
		cp = p.Counterpart.Clone()
		cp.ProposalID = p.ID
		cp.Timestamp = m.Timestamp
		group := uuid.NewString()
		m.TransferGroup = group
		cp.TransferGroup = group
	}

	var res confirmResult
	err := w.txRunner.Run(ctx, func(movRepo repository.MovementRepository, stockRepo repository.StockRepository) error {
		res = confirmResult{}
		m.ForcedDuplicateOf = nil
		if err := movRepo.LockReference(ctx, proposalLock(p.ID)); err != nil {
			return err
		}
		stocks, err := lockKeys(ctx, stockRepo, m, cp)
		if err != nil {
			return err
		}
		prior, err := movRepo.FindByProposalID(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("buscar propuesta confirmada: %w", err)
		}
		if len(prior) > 0 {
			res.replayed = true
			for _, pm := range prior {
				if pm.Kind == m.Kind {
					res.movementID = pm.ID
				} else {
					res.counterpartID = pm.ID
				}
			}
			return nil
		}
		cancelled, err := movRepo.ProposalCancelled(ctx, p.ID)
		if err != nil {
			return err
		}
		if cancelled {
			return fmt.Errorf("%w: la propuesta fue cancelada", domain.ErrInvalidState)
		}
		if m.IsOutbound() {
			onHand, err := movRepo.SumByKey(ctx, m.Key(), w.now())
			if err != nil {
				return err
			}
			available := min(onHand, stocks[m.Key()].Quantity)
			if available < -m.Quantity {
				return &domain.StockChangedError{Available: available, Requested: -m.Quantity}
			}
		}
		match, err := findRecentMatch(ctx, movRepo, dominv.ProbeFor(m, m.Timestamp, w.detector.Window()))
		if err != nil {
			return err
		}
		switch {
		case match != nil && !p.ForceDuplicate:
			res.duplicate = match
			return &domain.DuplicateDetectedError{MatchID: match.ID}
		case match != nil:
			id := match.ID
			m.ForcedDuplicateOf = &id
		case p.ForceDuplicate && p.Duplicate != nil:
			id := p.Duplicate.ID
			m.ForcedDuplicateOf = &id
		}
		if res.movementID, err = appendWithStock(ctx, movRepo, stockRepo, stocks, m); err != nil {
			return err
		}
		if cp != nil {
			if res.counterpartID, err = appendWithStock(ctx, movRepo, stockRepo, stocks, cp); err != nil {
				return err
			}
		}
		return nil
	})

	var stockChanged *domain.StockChangedError
	var duplicate *domain.DuplicateDetectedError
	switch {
	case err == nil:
		p.State = StateConfirmed
		p.MovementID = res.movementID
		p.CounterpartID = res.counterpartID
		outcome := OutcomeConfirmed
		if res.replayed {
			outcome = OutcomeReplayed
		}
		w.metrics.ConfirmEvaluated(m.Kind, outcome)
		w.log.Info().
			Str("proposal_id", p.ID).
			Int64("movement_id", res.movementID).
			Str("kind", string(m.Kind)).
			Int64("project_id", m.ProjectID).
			Int64("item_id", m.ItemID).
			Str("size", m.Size).
			Int64("quantity", m.Quantity).
			Bool("forced_duplicate", m.ForcedDuplicateOf != nil).
			Bool("replayed", res.replayed).
			Msg("movimiento confirmado")
		return res.movementID, nil
	case errors.As(err, &stockChanged):
		p.State = StateProposed
		p.Available = stockChanged.Available
		w.metrics.ConfirmEvaluated(m.Kind, OutcomeStockChanged)
		w.log.Warn().
			Str("proposal_id", p.ID).
			Int64("available", stockChanged.Available).
			Int64("requested", stockChanged.Requested).
			Msg("stock cambió antes de confirmar")
	case errors.As(err, &duplicate):
		p.State = StateDuplicateFlagged
		p.Duplicate = res.duplicate
		w.metrics.ConfirmEvaluated(m.Kind, OutcomeDuplicate)
		w.log.Warn().
			Str("proposal_id", p.ID).
			Int64("match_id", duplicate.MatchID).
			Msg("posible duplicado al confirmar")
	case errors.Is(err, domain.ErrConstraint), errors.Is(err, domain.ErrInvalidState):
		w.metrics.ConfirmEvaluated(m.Kind, OutcomeRejected)
	default:
		w.metrics.ConfirmEvaluated(m.Kind, OutcomeError)
		w.log.Error().Err(err).Str("proposal_id", p.ID).Msg("confirmar movimiento")
	}
	return 0, err
}

// lockKeys bloquea las claves involucradas en orden estable y devuelve su saldo cacheado.
func lockKeys(ctx context.Context, stockRepo repository.StockRepository, movs ...*entity.Movement) (map[entity.StockKey]*entity.Stock, error) {
	var keys []entity.StockKey
	seen := make(map[entity.StockKey]bool)
	for _, m := range movs {
		if m == nil || seen[m.Key()] {
			continue
		}
		seen[m.Key()] = true
		keys = append(keys, m.Key())
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	stocks := make(map[entity.StockKey]*entity.Stock, len(keys))
	for _, k := range keys {
		s, err := stockRepo.GetForUpdate(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("bloquear saldo %s: %w", k, err)
		}
		stocks[k] = s
	}
	return stocks, nil
}

// appendWithStock agrega el movimiento y actualiza el saldo cacheado en la misma transacción.
func appendWithStock(
	ctx context.Context,
	movRepo repository.MovementRepository,
	stockRepo repository.StockRepository,
	stocks map[entity.StockKey]*entity.Stock,
	m *entity.Movement,
) (int64, error) {
	id, err := movRepo.Append(ctx, m)
	if err != nil {
		return 0, err
	}
	s := stocks[m.Key()]
	s.Quantity += m.Quantity
	s.UpdatedAt = m.Timestamp
	if err := stockRepo.Upsert(ctx, s); err != nil {
		return 0, err
	}
	return id, nil
}

func matchID(m *entity.Movement) int64 {
	if m == nil {
		return 0
	}
	return m.ID
}
