package repo

import (
	"context"
	"database/sql"

	"ekanban/internal/domain"
)

const kanbanChainColumns = `
	kc.id, kc.customer_id, kc.supplier_id, kc.product_id, kc.status_chain_id,
	kc.leadtime_days, kc.quantity, kc.container_type, kc.active_kanbans,
	c.name, s.name, p.name`

const kanbanChainJoins = `
	FROM kanban_chains kc
	JOIN accounts c ON kc.customer_id = c.id
	JOIN accounts s ON kc.supplier_id = s.id
	JOIN products p ON kc.product_id = p.product_id`

func scanKanbanChain(scan func(dest ...any) error) (domain.KanbanChain, error) {
	var kc domain.KanbanChain
	err := scan(
		&kc.ID, &kc.CustomerID, &kc.SupplierID, &kc.ProductID, &kc.StatusChainID,
		&kc.LeadTimeDays, &kc.Quantity, &kc.ContainerType, &kc.ActiveKanbans,
		&kc.CustomerName, &kc.SupplierName, &kc.ProductName,
	)
	if err == sql.ErrNoRows {
		return kc, ErrNotFound
	}
	return kc, err
}

func (r Repo) InsertKanbanChain(ctx context.Context, tx *sql.Tx, kc domain.KanbanChain) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO kanban_chains(customer_id,supplier_id,product_id,status_chain_id,
			leadtime_days,quantity,container_type,active_kanbans)
		VALUES (?,?,?,?,?,?,?,?)`,
		kc.CustomerID, kc.SupplierID, kc.ProductID, kc.StatusChainID,
		kc.LeadTimeDays, kc.Quantity, kc.ContainerType, kc.ActiveKanbans)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetKanbanChain(ctx context.Context, id int64) (domain.KanbanChain, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+kanbanChainColumns+kanbanChainJoins+` WHERE kc.id=?`, id)
	return scanKanbanChain(row.Scan)
}

func (r Repo) ListKanbanChains(ctx context.Context) ([]domain.KanbanChain, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+kanbanChainColumns+kanbanChainJoins+` ORDER BY kc.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.KanbanChain
	for rows.Next() {
		kc, err := scanKanbanChain(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, kc)
	}
	return res, rows.Err()
}

// ListKanbanChainsForAccount returns chains where the account plays the given role.
func (r Repo) ListKanbanChainsForAccount(ctx context.Context, accountID int64, role domain.Role) ([]domain.KanbanChain, error) {
	column := "kc.supplier_id"
	if role == domain.RoleCustomer {
		column = "kc.customer_id"
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+kanbanChainColumns+kanbanChainJoins+` WHERE `+column+`=? ORDER BY p.name, kc.id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.KanbanChain
	for rows.Next() {
		kc, err := scanKanbanChain(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, kc)
	}
	return res, rows.Err()
}

// UpdateKanbanChainFields updates the mutable fields and mirrors them onto
// the chain's active cards in the same transaction.
func (r Repo) UpdateKanbanChainFields(ctx context.Context, tx *sql.Tx, id int64, leadTimeDays int64, quantity float64, containerType string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE kanban_chains SET leadtime_days=?, quantity=?, container_type=? WHERE id=?`,
		leadTimeDays, quantity, containerType, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE kanbans SET leadtime_days=?, quantity=?, container_type=? WHERE kanban_chain_id=? AND is_active=1`,
		leadTimeDays, quantity, containerType, id)
	return err
}

func (r Repo) SetActiveKanbans(ctx context.Context, tx *sql.Tx, id, count int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE kanban_chains SET active_kanbans=? WHERE id=?`, count, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteKanbanChain(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM kanban_histories WHERE kanban_id IN (SELECT id FROM kanbans WHERE kanban_chain_id=?)`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM kanbans WHERE kanban_chain_id=? AND is_active=0`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM kanban_chains WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActiveKanbans counts live cards bound to a chain. Used both for the
// shrink guard and for drift checks against the maintained counter.
func (r Repo) CountActiveKanbans(ctx context.Context, tx *sql.Tx, chainID int64) (int64, error) {
	var n int64
	query := `SELECT COUNT(*) FROM kanbans WHERE kanban_chain_id=? AND is_active=1`
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, chainID).Scan(&n)
	} else {
		err = r.DB.QueryRowContext(ctx, query, chainID).Scan(&n)
	}
	return n, err
}
