package repo

import (
	"context"
	"database/sql"

	"ekanban/internal/domain"
)

const kanbanColumns = `id, kanban_chain_id, status_chain_id, status_current,
	leadtime_days, container_type, quantity, updated_at, is_active`

func scanKanban(scan func(dest ...any) error) (domain.Kanban, error) {
	var k domain.Kanban
	var active int
	err := scan(
		&k.ID, &k.KanbanChainID, &k.StatusChainID, &k.StatusCurrent,
		&k.LeadTimeDays, &k.ContainerType, &k.Quantity, &k.UpdatedAt, &active,
	)
	if err == sql.ErrNoRows {
		return k, ErrNotFound
	}
	k.IsActive = active != 0
	return k, err
}

func (r Repo) GetKanban(ctx context.Context, id int64) (domain.Kanban, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+kanbanColumns+` FROM kanbans WHERE id=?`, id)
	return scanKanban(row.Scan)
}

func (r Repo) ListKanbans(ctx context.Context, chainID int64, activeOnly bool) ([]domain.Kanban, error) {
	query := `SELECT ` + kanbanColumns + ` FROM kanbans`
	var (
		clauses []string
		args    []any
	)
	if chainID != 0 {
		clauses = append(clauses, `kanban_chain_id=?`)
		args = append(args, chainID)
	}
	if activeOnly {
		clauses = append(clauses, `is_active=1`)
	}
	for i, c := range clauses {
		if i == 0 {
			query += ` WHERE ` + c
		} else {
			query += ` AND ` + c
		}
	}
	query += ` ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Kanban
	for rows.Next() {
		k, err := scanKanban(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, k)
	}
	return res, rows.Err()
}

// InsertKanbans materializes count cards for a chain at the given status.
func (r Repo) InsertKanbans(ctx context.Context, tx *sql.Tx, kc domain.KanbanChain, statusID, count int64, now string) error {
	for i := int64(0); i < count; i++ {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kanbans(kanban_chain_id,status_chain_id,status_current,
				leadtime_days,container_type,quantity,updated_at,is_active)
			VALUES (?,?,?,?,?,?,?,1)`,
			kc.ID, kc.StatusChainID, statusID,
			kc.LeadTimeDays, kc.ContainerType, kc.Quantity, now); err != nil {
			return err
		}
	}
	return nil
}

// AdvanceKanbanStatus moves a card to nextStatus guarded by the previously
// read fromStatus. Zero rows affected means a concurrent transition won.
func (r Repo) AdvanceKanbanStatus(ctx context.Context, tx *sql.Tx, id, fromStatus, nextStatus int64, now string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE kanbans SET status_current=?, updated_at=?
		WHERE id=? AND status_current=? AND is_active=1`,
		nextStatus, now, id, fromStatus)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RetireKanban flags a card inactive; the row is kept for history.
func (r Repo) RetireKanban(ctx context.Context, tx *sql.Tx, id int64, now string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE kanbans SET is_active=0, updated_at=? WHERE id=? AND is_active=1`, now, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r Repo) ListKanbanHistory(ctx context.Context, kanbanID int64) ([]domain.KanbanHistory, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, kanban_id, previous_status, next_status, actor_role, COALESCE(actor_id,''), recorded_at
		FROM kanban_histories WHERE kanban_id=? ORDER BY id`, kanbanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.KanbanHistory
	for rows.Next() {
		var h domain.KanbanHistory
		var role int
		if err := rows.Scan(&h.ID, &h.KanbanID, &h.PreviousStatus, &h.NextStatus, &role, &h.ActorID, &h.RecordedAt); err != nil {
			return nil, err
		}
		h.ActorRole = domain.Role(role)
		res = append(res, h)
	}
	return res, rows.Err()
}

// HistoriesAfter returns history rows with id greater than cursor, oldest first.
func (r Repo) HistoriesAfter(ctx context.Context, limit int, cursor int64) ([]domain.KanbanHistory, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, kanban_id, previous_status, next_status, actor_role, COALESCE(actor_id,''), recorded_at
		FROM kanban_histories WHERE id > ? ORDER BY id LIMIT ?`, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.KanbanHistory
	for rows.Next() {
		var h domain.KanbanHistory
		var role int
		if err := rows.Scan(&h.ID, &h.KanbanID, &h.PreviousStatus, &h.NextStatus, &role, &h.ActorID, &h.RecordedAt); err != nil {
			return nil, err
		}
		h.ActorRole = domain.Role(role)
		res = append(res, h)
	}
	return res, rows.Err()
}

// LatestHistoryID returns the newest history row id, or 0 when empty.
func (r Repo) LatestHistoryID(ctx context.Context) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM kanban_histories`).Scan(&id)
	return id, err
}
