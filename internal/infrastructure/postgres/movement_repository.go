package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/epp-kardex/internal/domain"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	"github.com/jhoicas/epp-kardex/internal/domain/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, occurred_at, kind, project_id, location_id, item_id, size, quantity, employee_id,
	reason, request_number, reference, notes, actor, proposal_id, transfer_group, forced_duplicate_of`

// MovementRepo kardex sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Append inserta solo si proyecto, ubicación, EPP y trabajador existen y están activos.
// La verificación y el insert son una sola sentencia, así que no hay ventana entre ambos.
func (r *MovementRepo) Append(ctx context.Context, m *entity.Movement) (int64, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	m.Timestamp = ts(m.Timestamp)
	query := `
		INSERT INTO movements (occurred_at, kind, project_id, location_id, item_id, size, quantity, employee_id,
			reason, request_number, reference, notes, actor, proposal_id, transfer_group, forced_duplicate_of)
		SELECT $1::timestamptz, $2::text, $3::bigint, $4::bigint, $5::bigint, $6::text, $7::bigint, $8::bigint,
			$9::text, $10::text, $11::text, $12::text, $13::text, $14::text, $15::text, $16::bigint
		WHERE EXISTS (SELECT 1 FROM projects WHERE id = $3 AND is_active)
		  AND EXISTS (SELECT 1 FROM locations WHERE id = $4 AND is_active
		              AND (project_id = $3 OR (project_id IS NULL AND is_segregation)))
		  AND EXISTS (SELECT 1 FROM items WHERE id = $5 AND is_active)
		  AND ($8::bigint IS NULL OR EXISTS (SELECT 1 FROM employees WHERE id = $8 AND is_active))
		RETURNING id`
	var id int64
	err := r.q.QueryRow(ctx, query,
		m.Timestamp, string(m.Kind), m.ProjectID, m.LocationID, m.ItemID, m.Size, m.Quantity, m.EmployeeID,
		string(m.Reason), m.RequestNumber, m.Reference, m.Notes, m.Actor,
		nullString(m.ProposalID), nullString(m.TransferGroup), m.ForcedDuplicateOf,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.NewConstraintError("movement", strconv.FormatInt(m.ItemID, 10),
				"proyecto, ubicación, EPP o trabajador inexistente o inactivo")
		}
		return 0, mapWriteError("append movement", err)
	}
	m.ID = id
	return id, nil
}

func (r *MovementRepo) QueryByKey(ctx context.Context, key entity.StockKey, tr entity.TimeRange) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements
		WHERE project_id = $1 AND item_id = $2 AND size = $3`
	args := []any{key.ProjectID, key.ItemID, key.Size}
	query, args = appendRange(query, args, tr)
	query += ` ORDER BY occurred_at, id`
	return r.list(ctx, "query by key", query, args...)
}

// SumByKey con asOf en cero suma todo el historial.
func (r *MovementRepo) SumByKey(ctx context.Context, key entity.StockKey, asOf time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(quantity), 0) FROM movements
		WHERE project_id = $1 AND item_id = $2 AND size = $3`
	args := []any{key.ProjectID, key.ItemID, key.Size}
	query, args = appendRange(query, args, entity.TimeRange{To: asOf})
	var total int64
	if err := r.q.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum by key: %w", err)
	}
	return total, nil
}

func (r *MovementRepo) FindRecentMatch(ctx context.Context, p inventory.DuplicateProbe) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements
		WHERE kind = $1 AND project_id = $2 AND item_id = $3 AND size = $4 AND quantity = $5
		  AND occurred_at >= $6 AND occurred_at <= $7`
	args := []any{string(p.Kind), p.Key.ProjectID, p.Key.ItemID, p.Key.Size, p.Quantity, ts(p.Since), ts(p.Until)}
	if p.EmployeeID != nil {
		query += ` AND employee_id = $8`
		args = append(args, *p.EmployeeID)
	}
	query += ` ORDER BY occurred_at DESC, id DESC LIMIT 1`
	list, err := r.list(ctx, "find recent match", query, args...)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (r *MovementRepo) FindByProposalID(ctx context.Context, proposalID string) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE proposal_id = $1 ORDER BY occurred_at, id`
	return r.list(ctx, "find by proposal", query, proposalID)
}

func (r *MovementRepo) ExistsReference(ctx context.Context, reference string, projectID, locationID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM movements WHERE reference = $1 AND project_id = $2 AND location_id = $3)`,
		reference, projectID, locationID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists reference: %w", err)
	}
	return exists, nil
}

// LockReference toma un advisory lock de transacción; se libera en Commit/Rollback.
func (r *MovementRepo) LockReference(ctx context.Context, reference string) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "ref:"+reference); err != nil {
		return fmt.Errorf("lock reference: %w", err)
	}
	return nil
}

// List historial filtrado, más recientes primero.
func (r *MovementRepo) List(ctx context.Context, f entity.MovementFilter) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE TRUE`
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(" AND "+cond, len(args))
	}
	query, args = appendRange(query, args, f.Range)
	if f.ProjectID != nil {
		add("project_id = $%d", *f.ProjectID)
	}
	if f.ItemID != nil {
		add("item_id = $%d", *f.ItemID)
	}
	if f.LocationID != nil {
		add("location_id = $%d", *f.LocationID)
	}
	if f.EmployeeID != nil {
		add("employee_id = $%d", *f.EmployeeID)
	}
	if len(f.Kinds) > 0 {
		kinds := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			kinds[i] = string(k)
		}
		add("kind = ANY($%d)", kinds)
	}
	switch f.SizeMode {
	case entity.SizeNone:
		query += ` AND size = ''`
	case entity.SizeSpecific:
		add("size = $%d", f.Size)
	}
	if f.Reason != "" {
		add("reason = $%d", string(f.Reason))
	}
	if f.Text != "" {
		args = append(args, "%"+f.Text+"%")
		query += fmt.Sprintf(" AND (reference ILIKE $%d OR notes ILIKE $%d)", len(args), len(args))
	}
	query += ` ORDER BY occurred_at DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return r.list(ctx, "list movements", query, args...)
}

func (r *MovementRepo) SummaryByProject(ctx context.Context, projectID int64, includeUnmoved bool) ([]entity.StockRow, error) {
	rows, err := r.q.Query(ctx, `
		SELECT i.id, i.name, COALESCE(m.size, ''), COALESCE(SUM(m.quantity), 0)
		FROM items i LEFT JOIN movements m ON m.item_id = i.id AND m.project_id = $1
		WHERE m.id IS NOT NULL OR ($2 AND i.is_active)
		GROUP BY i.id, i.name, m.size
		ORDER BY i.name, 3`, projectID, includeUnmoved)
	if err != nil {
		return nil, fmt.Errorf("summary by project: %w", err)
	}
	defer rows.Close()
	var list []entity.StockRow
	for rows.Next() {
		var s entity.StockRow
		if err := rows.Scan(&s.ItemID, &s.ItemName, &s.Size, &s.Quantity); err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// CancelProposal de paso borra las cancelaciones vencidas.
func (r *MovementRepo) CancelProposal(ctx context.Context, proposalID string, expiresAt time.Time) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM cancelled_proposals WHERE expires_at < now()`); err != nil {
		return fmt.Errorf("purge cancelled proposals: %w", err)
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO cancelled_proposals (proposal_id, expires_at) VALUES ($1, $2)
		ON CONFLICT (proposal_id) DO UPDATE SET expires_at = GREATEST(cancelled_proposals.expires_at, EXCLUDED.expires_at)`,
		proposalID, ts(expiresAt))
	if err != nil {
		return fmt.Errorf("cancel proposal: %w", err)
	}
	return nil
}

func (r *MovementRepo) ProposalCancelled(ctx context.Context, proposalID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cancelled_proposals WHERE proposal_id = $1)`, proposalID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("proposal cancelled: %w", err)
	}
	return exists, nil
}

func (r *MovementRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	var kind, reason string
	var proposalID, group *string
	err := row.Scan(&m.ID, &m.Timestamp, &kind, &m.ProjectID, &m.LocationID, &m.ItemID, &m.Size, &m.Quantity,
		&m.EmployeeID, &reason, &m.RequestNumber, &m.Reference, &m.Notes, &m.Actor,
		&proposalID, &group, &m.ForcedDuplicateOf)
	if err != nil {
		return nil, fmt.Errorf("scan movement: %w", err)
	}
	m.Timestamp = m.Timestamp.UTC()
	m.Kind = entity.MovementKind(kind)
	m.Reason = entity.Reason(reason)
	if proposalID != nil {
		m.ProposalID = *proposalID
	}
	if group != nil {
		m.TransferGroup = *group
	}
	return &m, nil
}

// appendRange agrega los límites de tiempo (inclusivos) a una consulta con placeholders posicionales.
func appendRange(query string, args []any, tr entity.TimeRange) (string, []any) {
	if !tr.From.IsZero() {
		args = append(args, ts(tr.From))
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	if !tr.To.IsZero() {
		args = append(args, ts(tr.To))
		query += fmt.Sprintf(" AND occurred_at <= $%d", len(args))
	}
	return query, args
}
