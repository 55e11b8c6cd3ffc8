package repo

import (
	"context"
	"database/sql"
	"errors"

	"ekanban/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// --- accounts ---

func (r Repo) InsertAccount(ctx context.Context, a domain.Account) (domain.Account, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO accounts(name,vat_number,address) VALUES (?,?,?)`,
		a.Name, nullable(a.VATNumber), nullable(a.Address))
	if err != nil {
		return a, err
	}
	a.ID, err = res.LastInsertId()
	return a, err
}

func (r Repo) GetAccount(ctx context.Context, id int64) (domain.Account, error) {
	var a domain.Account
	err := r.DB.QueryRowContext(ctx,
		`SELECT id,name,COALESCE(vat_number,''),COALESCE(address,'') FROM accounts WHERE id=?`, id).
		Scan(&a.ID, &a.Name, &a.VATNumber, &a.Address)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func (r Repo) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,name,COALESCE(vat_number,''),COALESCE(address,'') FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.VATNumber, &a.Address); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) UpdateAccount(ctx context.Context, a domain.Account) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE accounts SET name=?, vat_number=?, address=? WHERE id=?`,
		a.Name, nullable(a.VATNumber), nullable(a.Address), a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteAccount(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM accounts WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- products ---

func (r Repo) InsertProduct(ctx context.Context, p domain.Product) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO products(product_id,name) VALUES (?,?)`, p.ID, p.Name)
	return err
}

func (r Repo) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.DB.QueryRowContext(ctx, `SELECT product_id,name FROM products WHERE product_id=?`, id).
		Scan(&p.ID, &p.Name)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT product_id,name FROM products ORDER BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) UpdateProduct(ctx context.Context, p domain.Product) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE products SET name=? WHERE product_id=?`, p.Name, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteProduct(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM products WHERE product_id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- statuses ---

func (r Repo) InsertStatus(ctx context.Context, s domain.Status) (domain.Status, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO statuses(name,color) VALUES (?,?)`, s.Name, s.Color)
	if err != nil {
		return s, err
	}
	s.ID, err = res.LastInsertId()
	return s, err
}

func (r Repo) GetStatus(ctx context.Context, id int64) (domain.Status, error) {
	var s domain.Status
	err := r.DB.QueryRowContext(ctx, `SELECT status_id,name,color FROM statuses WHERE status_id=?`, id).
		Scan(&s.ID, &s.Name, &s.Color)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

func (r Repo) ListStatuses(ctx context.Context) ([]domain.Status, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status_id,name,color FROM statuses ORDER BY status_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Status
	for rows.Next() {
		var s domain.Status
		if err := rows.Scan(&s.ID, &s.Name, &s.Color); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) UpdateStatus(ctx context.Context, s domain.Status) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE statuses SET name=?, color=? WHERE status_id=?`, s.Name, s.Color, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteStatus(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM statuses WHERE status_id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountChainEntriesForStatus counts chain entries referencing a status, across all chains.
func (r Repo) CountChainEntriesForStatus(ctx context.Context, statusID int64) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM status_chain_entries WHERE status_id=?`, statusID).Scan(&n)
	return n, err
}

// CountKanbanChainsForAccount counts chains where the account is customer or supplier.
func (r Repo) CountKanbanChainsForAccount(ctx context.Context, accountID int64) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM kanban_chains WHERE customer_id=? OR supplier_id=?`, accountID, accountID).Scan(&n)
	return n, err
}

// CountKanbanChainsForProduct counts chains referencing a product.
func (r Repo) CountKanbanChainsForProduct(ctx context.Context, productID string) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM kanban_chains WHERE product_id=?`, productID).Scan(&n)
	return n, err
}

// --- helpers ---

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

