package engine

import (
	"context"

	"ekanban/internal/domain"
)

// AdvanceKanban moves a card to the next status of its chain. The successor of
// the last entry is the first one, so cards cycle forever until retired. Only
// the role recorded on the card's current entry may trigger the move.
func (e Engine) AdvanceKanban(ctx context.Context, kanbanID int64, role domain.Role, actorID string) (domain.CardView, error) {
	if !role.Valid() {
		return domain.CardView{}, validationf("customer_supplier must be 1 (supplier) or 2 (customer), got %d", int(role))
	}
	k, err := e.Repo.GetKanban(ctx, kanbanID)
	if err != nil {
		return domain.CardView{}, err
	}
	if !k.IsActive {
		return domain.CardView{}, conflictf("kanban %d is retired", kanbanID)
	}
	kc, err := e.Repo.GetKanbanChain(ctx, k.KanbanChainID)
	if err != nil {
		return domain.CardView{}, err
	}
	entries, err := e.Repo.ListChainEntries(ctx, k.StatusChainID)
	if err != nil {
		return domain.CardView{}, err
	}
	idx := -1
	for i, entry := range entries {
		if entry.StatusID == k.StatusCurrent {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.CardView{}, inconsistentf("kanban %d sits at status %d which is not part of status chain %d",
			kanbanID, k.StatusCurrent, k.StatusChainID)
	}
	if entries[idx].ActorRole != role {
		return domain.CardView{}, ForbiddenError{Required: entries[idx].ActorRole, Requested: role}
	}
	next := entries[(idx+1)%len(entries)]

	now := e.nowString()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.CardView{}, err
	}
	defer tx.Rollback()
	// Guarded on the status we read above; zero rows means someone else moved
	// the card first and the caller must reload.
	moved, err := e.Repo.AdvanceKanbanStatus(ctx, tx, kanbanID, k.StatusCurrent, next.StatusID, now)
	if err != nil {
		return domain.CardView{}, err
	}
	if !moved {
		return domain.CardView{}, conflictf("kanban %d changed concurrently; reload and retry", kanbanID)
	}
	if err := e.History.Append(ctx, tx, kanbanID, k.StatusCurrent, next.StatusID, role, actorID); err != nil {
		return domain.CardView{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.CardView{}, err
	}

	return domain.CardView{
		KanbanID:      kanbanID,
		ProductID:     kc.ProductID,
		ProductName:   kc.ProductName,
		ContainerType: k.ContainerType,
		Quantity:      k.Quantity,
		StatusCurrent: next.StatusID,
		StatusName:    next.StatusName,
		StatusColor:   next.StatusColor,
		ActorRole:     next.ActorRole,
		UpdatedAt:     now,
		SupplierName:  kc.SupplierName,
		CustomerName:  kc.CustomerName,
	}, nil
}

// KanbanHistory returns a card's transitions oldest first.
func (e Engine) KanbanHistory(ctx context.Context, kanbanID int64) ([]domain.KanbanHistory, error) {
	if _, err := e.Repo.GetKanban(ctx, kanbanID); err != nil {
		return nil, err
	}
	return e.Repo.ListKanbanHistory(ctx, kanbanID)
}
