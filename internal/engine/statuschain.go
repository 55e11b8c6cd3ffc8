package engine

import (
	"context"
	"strings"

	"ekanban/internal/domain"
)

func (e Engine) CreateStatusChain(ctx context.Context, name string) (domain.StatusChain, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.StatusChain{}, validationf("name required")
	}
	return e.Repo.InsertStatusChain(ctx, domain.StatusChain{Name: name})
}

func (e Engine) RenameStatusChain(ctx context.Context, id int64, name string) (domain.StatusChain, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.StatusChain{}, validationf("name required")
	}
	if err := e.Repo.RenameStatusChain(ctx, id, name); err != nil {
		return domain.StatusChain{}, err
	}
	return e.Repo.GetStatusChain(ctx, id)
}

// DeleteStatusChain refuses while any kanban chain still references the chain.
func (e Engine) DeleteStatusChain(ctx context.Context, id int64) error {
	if _, err := e.Repo.GetStatusChain(ctx, id); err != nil {
		return err
	}
	n, err := e.Repo.CountKanbanChainsForStatusChain(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return conflictf("status chain %d is referenced by %d kanban chain(s)", id, n)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteChainEntries(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Repo.DeleteStatusChain(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListChainEntries returns a chain's steps in succession order.
func (e Engine) ListChainEntries(ctx context.Context, chainID int64) ([]domain.StatusChainEntry, error) {
	if _, err := e.Repo.GetStatusChain(ctx, chainID); err != nil {
		return nil, err
	}
	return e.Repo.ListChainEntries(ctx, chainID)
}

// AddChainEntry appends one status to a chain at the given position.
func (e Engine) AddChainEntry(ctx context.Context, chainID, statusID, position int64, role domain.Role) (domain.StatusChainEntry, error) {
	if _, err := e.Repo.GetStatusChain(ctx, chainID); err != nil {
		return domain.StatusChainEntry{}, err
	}
	status, err := e.Repo.GetStatus(ctx, statusID)
	if err != nil {
		return domain.StatusChainEntry{}, err
	}
	if position <= 0 {
		return domain.StatusChainEntry{}, validationf("position must be positive, got %d", position)
	}
	if !role.Valid() {
		return domain.StatusChainEntry{}, validationf("customer_supplier must be 1 (supplier) or 2 (customer), got %d", int(role))
	}
	taken, err := e.Repo.ChainEntryPositionTaken(ctx, chainID, position)
	if err != nil {
		return domain.StatusChainEntry{}, err
	}
	if taken {
		return domain.StatusChainEntry{}, conflictf("position %d already used in status chain %d", position, chainID)
	}
	entry := domain.StatusChainEntry{
		StatusChainID: chainID,
		StatusID:      statusID,
		Position:      position,
		ActorRole:     role,
		StatusName:    status.Name,
		StatusColor:   status.Color,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.StatusChainEntry{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertChainEntry(ctx, tx, entry); err != nil {
		return domain.StatusChainEntry{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.StatusChainEntry{}, err
	}
	return entry, nil
}

// RemoveChainEntry detaches a status from a chain. Refused while any live card
// of the chain still sits at that status, otherwise those cards would be left
// pointing at a step that no longer exists.
func (e Engine) RemoveChainEntry(ctx context.Context, chainID, statusID int64) error {
	if _, err := e.Repo.GetStatusChain(ctx, chainID); err != nil {
		return err
	}
	n, err := e.Repo.CountActiveKanbansAtStatus(ctx, chainID, statusID)
	if err != nil {
		return err
	}
	if n > 0 {
		return conflictf("%d active kanban(s) currently at status %d in chain %d", n, statusID, chainID)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteChainEntry(ctx, tx, chainID, statusID); err != nil {
		return err
	}
	return tx.Commit()
}

// ReorderChainEntry moves a status to a new position within its chain.
func (e Engine) ReorderChainEntry(ctx context.Context, chainID, statusID, position int64) ([]domain.StatusChainEntry, error) {
	if position <= 0 {
		return nil, validationf("position must be positive, got %d", position)
	}
	entries, err := e.Repo.ListChainEntries(ctx, chainID)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.Position == position && entry.StatusID != statusID {
			return nil, conflictf("position %d already used by status %d", position, entry.StatusID)
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateChainEntryPosition(ctx, tx, chainID, statusID, position); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return e.Repo.ListChainEntries(ctx, chainID)
}

// ReplaceChainEntries swaps the whole entry set of a chain atomically. Every
// status a live card currently sits at must survive the replacement.
func (e Engine) ReplaceChainEntries(ctx context.Context, chainID int64, entries []domain.StatusChainEntry) ([]domain.StatusChainEntry, error) {
	if _, err := e.Repo.GetStatusChain(ctx, chainID); err != nil {
		return nil, err
	}
	seenStatus := make(map[int64]bool, len(entries))
	seenPos := make(map[int64]bool, len(entries))
	for _, entry := range entries {
		if entry.Position <= 0 {
			return nil, validationf("position must be positive, got %d", entry.Position)
		}
		if !entry.ActorRole.Valid() {
			return nil, validationf("customer_supplier must be 1 (supplier) or 2 (customer), got %d", int(entry.ActorRole))
		}
		if seenStatus[entry.StatusID] {
			return nil, validationf("status %d listed twice", entry.StatusID)
		}
		if seenPos[entry.Position] {
			return nil, validationf("position %d listed twice", entry.Position)
		}
		seenStatus[entry.StatusID] = true
		seenPos[entry.Position] = true
		if _, err := e.Repo.GetStatus(ctx, entry.StatusID); err != nil {
			return nil, err
		}
	}
	occupied, err := e.Repo.ActiveStatusesForStatusChain(ctx, chainID)
	if err != nil {
		return nil, err
	}
	for _, statusID := range occupied {
		if !seenStatus[statusID] {
			return nil, conflictf("active kanban(s) sit at status %d; it cannot be removed from chain %d", statusID, chainID)
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteChainEntries(ctx, tx, chainID); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		entry.StatusChainID = chainID
		if err := e.Repo.InsertChainEntry(ctx, tx, entry); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return e.Repo.ListChainEntries(ctx, chainID)
}
