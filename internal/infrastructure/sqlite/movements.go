package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/epp-kardex/internal/domain"
	"github.com/jhoicas/epp-kardex/internal/domain/entity"
	"github.com/jhoicas/epp-kardex/internal/domain/inventory"
	"github.com/jhoicas/epp-kardex/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, occurred_at, kind, project_id, location_id, item_id, size, quantity, employee_id,
	reason, request_number, reference, notes, actor, proposal_id, transfer_group, forced_duplicate_of`

// MovementRepo kardex sobre SQLite.
type MovementRepo struct {
	q querier
}

// Append inserta solo si las referencias de catálogo existen y están activas.
func (r *MovementRepo) Append(ctx context.Context, m *entity.Movement) (int64, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	m.Timestamp = m.Timestamp.UTC().Truncate(time.Microsecond)
	query := `
		INSERT INTO movements (occurred_at, kind, project_id, location_id, item_id, size, quantity, employee_id,
			reason, request_number, reference, notes, actor, proposal_id, transfer_group, forced_duplicate_of)
		SELECT ?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10, ?11, ?12, ?13, ?14, ?15, ?16
		WHERE EXISTS (SELECT 1 FROM projects WHERE id = ?3 AND is_active = 1)
		  AND EXISTS (SELECT 1 FROM locations WHERE id = ?4 AND is_active = 1
		              AND (project_id = ?3 OR (project_id IS NULL AND is_segregation = 1)))
		  AND EXISTS (SELECT 1 FROM items WHERE id = ?5 AND is_active = 1)
		  AND (?8 IS NULL OR EXISTS (SELECT 1 FROM employees WHERE id = ?8 AND is_active = 1))
		RETURNING id`
	var id int64
	err := r.q.QueryRowContext(ctx, query,
		micros(m.Timestamp), string(m.Kind), m.ProjectID, m.LocationID, m.ItemID, m.Size, m.Quantity, m.EmployeeID,
		string(m.Reason), m.RequestNumber, m.Reference, m.Notes, m.Actor,
		nullString(m.ProposalID), nullString(m.TransferGroup), m.ForcedDuplicateOf,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.NewConstraintError("movement", strconv.FormatInt(m.ItemID, 10),
				"proyecto, ubicación, EPP o trabajador inexistente o inactivo")
		}
		return 0, mapWriteError("append movement", err)
	}
	m.ID = id
	return id, nil
}

func (r *MovementRepo) QueryByKey(ctx context.Context, key entity.StockKey, tr entity.TimeRange) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE project_id = ? AND item_id = ? AND size = ?`
	args := []any{key.ProjectID, key.ItemID, key.Size}
	query, args = appendRange(query, args, tr)
	return r.list(ctx, "query by key", query+` ORDER BY occurred_at, id`, args...)
}

// SumByKey con asOf en cero suma todo el historial.
func (r *MovementRepo) SumByKey(ctx context.Context, key entity.StockKey, asOf time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(quantity), 0) FROM movements WHERE project_id = ? AND item_id = ? AND size = ?`
	args := []any{key.ProjectID, key.ItemID, key.Size}
	query, args = appendRange(query, args, entity.TimeRange{To: asOf})
	var total int64
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum by key: %w", err)
	}
	return total, nil
}

func (r *MovementRepo) FindRecentMatch(ctx context.Context, p inventory.DuplicateProbe) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements
		WHERE kind = ? AND project_id = ? AND item_id = ? AND size = ? AND quantity = ?
		  AND occurred_at >= ? AND occurred_at <= ?`
	args := []any{string(p.Kind), p.Key.ProjectID, p.Key.ItemID, p.Key.Size, p.Quantity, micros(p.Since), micros(p.Until)}
	if p.EmployeeID != nil {
		query += ` AND employee_id = ?`
		args = append(args, *p.EmployeeID)
	}
	list, err := r.list(ctx, "find recent match", query+` ORDER BY occurred_at DESC, id DESC LIMIT 1`, args...)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (r *MovementRepo) FindByProposalID(ctx context.Context, proposalID string) ([]*entity.Movement, error) {
	return r.list(ctx, "find by proposal",
		`SELECT `+movementColumns+` FROM movements WHERE proposal_id = ? ORDER BY occurred_at, id`, proposalID)
}

func (r *MovementRepo) ExistsReference(ctx context.Context, reference string, projectID, locationID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM movements WHERE reference = ? AND project_id = ? AND location_id = ?)`,
		reference, projectID, locationID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists reference: %w", err)
	}
	return exists, nil
}

// LockReference no hace nada: Store.Run ya admite un solo escritor.
func (r *MovementRepo) LockReference(context.Context, string) error { return nil }

func (r *MovementRepo) List(ctx context.Context, f entity.MovementFilter) ([]*entity.Movement, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + movementColumns + ` FROM movements WHERE 1 = 1`)
	var args []any
	add := func(cond string, v ...any) {
		b.WriteString(" AND " + cond)
		args = append(args, v...)
	}
	if !f.Range.From.IsZero() {
		add("occurred_at >= ?", micros(f.Range.From))
	}
	if !f.Range.To.IsZero() {
		add("occurred_at <= ?", micros(f.Range.To))
	}
	if f.ProjectID != nil {
		add("project_id = ?", *f.ProjectID)
	}
	if f.ItemID != nil {
		add("item_id = ?", *f.ItemID)
	}
	if f.LocationID != nil {
		add("location_id = ?", *f.LocationID)
	}
	if f.EmployeeID != nil {
		add("employee_id = ?", *f.EmployeeID)
	}
	if len(f.Kinds) > 0 {
		marks := make([]string, len(f.Kinds))
		kinds := make([]any, len(f.Kinds))
		for i, k := range f.Kinds {
			marks[i], kinds[i] = "?", string(k)
		}
		add("kind IN ("+strings.Join(marks, ",")+")", kinds...)
	}
	switch f.SizeMode {
	case entity.SizeNone:
		add("size = ''")
	case entity.SizeSpecific:
		add("size = ?", f.Size)
	}
	if f.Reason != "" {
		add("reason = ?", string(f.Reason))
	}
	if f.Text != "" {
		like := "%" + f.Text + "%"
		add("(reference LIKE ? OR notes LIKE ?)", like, like)
	}
	b.WriteString(" ORDER BY occurred_at DESC, id DESC LIMIT ? OFFSET ?")
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, f.Offset)
	return r.list(ctx, "list movements", b.String(), args...)
}

func (r *MovementRepo) SummaryByProject(ctx context.Context, projectID int64, includeUnmoved bool) ([]entity.StockRow, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT i.id, i.name, COALESCE(m.size, ''), COALESCE(SUM(m.quantity), 0)
		FROM items i LEFT JOIN movements m ON m.item_id = i.id AND m.project_id = ?1
		WHERE m.id IS NOT NULL OR (?2 = 1 AND i.is_active = 1)
		GROUP BY i.id, i.name, m.size
		ORDER BY i.name, 3`, projectID, boolInt(includeUnmoved))
	if err != nil {
		return nil, fmt.Errorf("summary by project: %w", err)
	}
	defer func() { _ = rows.Close() }()
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
	if _, err := r.q.ExecContext(ctx, `DELETE FROM cancelled_proposals WHERE expires_at < ?`, micros(time.Now())); err != nil {
		return fmt.Errorf("purge cancelled proposals: %w", err)
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO cancelled_proposals (proposal_id, expires_at) VALUES (?1, ?2)
		ON CONFLICT (proposal_id) DO UPDATE SET expires_at = MAX(expires_at, excluded.expires_at)`,
		proposalID, micros(expiresAt))
	if err != nil {
		return fmt.Errorf("cancel proposal: %w", err)
	}
	return nil
}

func (r *MovementRepo) ProposalCancelled(ctx context.Context, proposalID string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cancelled_proposals WHERE proposal_id = ?)`, proposalID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("proposal cancelled: %w", err)
	}
	return exists, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *MovementRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()
	var list []*entity.Movement
	for rows.Next() {
		var m entity.Movement
		var at int64
		var kind, reason string
		var proposalID, group *string
		if err := rows.Scan(&m.ID, &at, &kind, &m.ProjectID, &m.LocationID, &m.ItemID, &m.Size, &m.Quantity,
			&m.EmployeeID, &reason, &m.RequestNumber, &m.Reference, &m.Notes, &m.Actor,
			&proposalID, &group, &m.ForcedDuplicateOf); err != nil {
			return nil, fmt.Errorf("%s: scan movement: %w", op, err)
		}
		m.Timestamp = fromMicros(at)
		m.Kind = entity.MovementKind(kind)
		m.Reason = entity.Reason(reason)
		if proposalID != nil {
			m.ProposalID = *proposalID
		}
		if group != nil {
			m.TransferGroup = *group
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

func appendRange(query string, args []any, tr entity.TimeRange) (string, []any) {
	if !tr.From.IsZero() {
		query += ` AND occurred_at >= ?`
		args = append(args, micros(tr.From))
	}
	if !tr.To.IsZero() {
		query += ` AND occurred_at <= ?`
		args = append(args, micros(tr.To))
	}
	return query, args
}
