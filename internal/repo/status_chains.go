package repo

import (
	"context"
	"database/sql"

	"ekanban/internal/domain"
)

func (r Repo) InsertStatusChain(ctx context.Context, c domain.StatusChain) (domain.StatusChain, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO status_chains(name) VALUES (?)`, c.Name)
	if err != nil {
		return c, err
	}
	c.ID, err = res.LastInsertId()
	return c, err
}

func (r Repo) GetStatusChain(ctx context.Context, id int64) (domain.StatusChain, error) {
	var c domain.StatusChain
	err := r.DB.QueryRowContext(ctx,
		`SELECT status_chain_id,name FROM status_chains WHERE status_chain_id=?`, id).
		Scan(&c.ID, &c.Name)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) ListStatusChains(ctx context.Context) ([]domain.StatusChain, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status_chain_id,name FROM status_chains ORDER BY status_chain_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StatusChain
	for rows.Next() {
		var c domain.StatusChain
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) RenameStatusChain(ctx context.Context, id int64, name string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE status_chains SET name=? WHERE status_chain_id=?`, name, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteStatusChain(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM status_chains WHERE status_chain_id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListChainEntries returns the entries of a chain ordered by position ascending.
// This ordering drives card succession; callers must not re-sort.
func (r Repo) ListChainEntries(ctx context.Context, chainID int64) ([]domain.StatusChainEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT e.status_chain_id, e.status_id, e.position, e.actor_role, s.name, s.color
		FROM status_chain_entries e
		JOIN statuses s ON s.status_id = e.status_id
		WHERE e.status_chain_id = ?
		ORDER BY e.position ASC`, chainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StatusChainEntry
	for rows.Next() {
		var e domain.StatusChainEntry
		var role int
		if err := rows.Scan(&e.StatusChainID, &e.StatusID, &e.Position, &role, &e.StatusName, &e.StatusColor); err != nil {
			return nil, err
		}
		e.ActorRole = domain.Role(role)
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) InsertChainEntry(ctx context.Context, tx *sql.Tx, e domain.StatusChainEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO status_chain_entries(status_chain_id,status_id,position,actor_role) VALUES (?,?,?,?)`,
		e.StatusChainID, e.StatusID, e.Position, int(e.ActorRole))
	return err
}

func (r Repo) DeleteChainEntry(ctx context.Context, tx *sql.Tx, chainID, statusID int64) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM status_chain_entries WHERE status_chain_id=? AND status_id=?`, chainID, statusID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateChainEntryPosition(ctx context.Context, tx *sql.Tx, chainID, statusID, position int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE status_chain_entries SET position=? WHERE status_chain_id=? AND status_id=?`,
		position, chainID, statusID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteChainEntries(ctx context.Context, tx *sql.Tx, chainID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM status_chain_entries WHERE status_chain_id=?`, chainID)
	return err
}

// ChainEntryPositionTaken reports whether a position is already used in a chain.
func (r Repo) ChainEntryPositionTaken(ctx context.Context, chainID, position int64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		`SELECT 1 FROM status_chain_entries WHERE status_chain_id=? AND position=? LIMIT 1`,
		chainID, position).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountActiveKanbansAtStatus counts live cards of a chain sitting at a status.
func (r Repo) CountActiveKanbansAtStatus(ctx context.Context, statusChainID, statusID int64) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM kanbans WHERE status_chain_id=? AND status_current=? AND is_active=1`,
		statusChainID, statusID).Scan(&n)
	return n, err
}

// ActiveStatusesForStatusChain returns the distinct statuses live cards of a
// chain currently sit at.
func (r Repo) ActiveStatusesForStatusChain(ctx context.Context, statusChainID int64) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT DISTINCT status_current FROM kanbans WHERE status_chain_id=? AND is_active=1`, statusChainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, rows.Err()
}

// CountKanbanChainsForStatusChain counts agreements bound to a status chain.
func (r Repo) CountKanbanChainsForStatusChain(ctx context.Context, statusChainID int64) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM kanban_chains WHERE status_chain_id=?`, statusChainID).Scan(&n)
	return n, err
}
