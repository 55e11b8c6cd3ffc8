package engine

import (
	"context"
	"log"
	"sort"

	"ekanban/internal/domain"
)

// DashboardForCustomer returns the active cards of every chain where the
// account buys, grouped by product name.
func (e Engine) DashboardForCustomer(ctx context.Context, accountID int64) (map[string][]domain.CardView, error) {
	return e.dashboard(ctx, accountID, domain.RoleCustomer)
}

// DashboardForSupplier is the selling-side counterpart of DashboardForCustomer.
func (e Engine) DashboardForSupplier(ctx context.Context, accountID int64) (map[string][]domain.CardView, error) {
	return e.dashboard(ctx, accountID, domain.RoleSupplier)
}

func (e Engine) dashboard(ctx context.Context, accountID int64, viewer domain.Role) (map[string][]domain.CardView, error) {
	if _, err := e.Repo.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	chains, err := e.Repo.ListKanbanChainsForAccount(ctx, accountID, viewer)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]domain.CardView)
	for _, kc := range chains {
		views, err := e.chainCards(ctx, kc)
		if err != nil {
			// A broken chain must not take the whole board down.
			log.Printf("dashboard: account %d chain %d: %v", accountID, kc.ID, err)
			continue
		}
		out[kc.ProductName] = append(out[kc.ProductName], views...)
	}
	for name := range out {
		SortCards(out[name], viewer)
	}
	return out, nil
}

func (e Engine) chainCards(ctx context.Context, kc domain.KanbanChain) ([]domain.CardView, error) {
	entries, err := e.Repo.ListChainEntries(ctx, kc.StatusChainID)
	if err != nil {
		return nil, err
	}
	byStatus := make(map[int64]domain.StatusChainEntry, len(entries))
	for _, entry := range entries {
		byStatus[entry.StatusID] = entry
	}
	cards, err := e.Repo.ListKanbans(ctx, kc.ID, true)
	if err != nil {
		return nil, err
	}
	views := make([]domain.CardView, 0, len(cards))
	for _, k := range cards {
		entry, ok := byStatus[k.StatusCurrent]
		if !ok {
			return nil, inconsistentf("kanban %d sits at status %d which is not part of status chain %d",
				k.ID, k.StatusCurrent, kc.StatusChainID)
		}
		views = append(views, domain.CardView{
			KanbanID:      k.ID,
			ProductID:     kc.ProductID,
			ProductName:   kc.ProductName,
			ContainerType: k.ContainerType,
			Quantity:      k.Quantity,
			StatusCurrent: k.StatusCurrent,
			StatusName:    entry.StatusName,
			StatusColor:   entry.StatusColor,
			ActorRole:     entry.ActorRole,
			UpdatedAt:     k.UpdatedAt,
			SupplierName:  kc.SupplierName,
			CustomerName:  kc.CustomerName,
		})
	}
	return views, nil
}

// SortCards orders one product group for a viewer: cards waiting on the viewer
// first, then stalest update first. Stable, so equal cards keep their order.
func SortCards(cards []domain.CardView, viewer domain.Role) {
	sort.SliceStable(cards, func(i, j int) bool {
		return lessCard(cards[i], cards[j], viewer)
	})
}

func lessCard(a, b domain.CardView, viewer domain.Role) bool {
	aTurn := a.ActorRole == viewer
	bTurn := b.ActorRole == viewer
	if aTurn != bTurn {
		return aTurn
	}
	// Timestamps are uniform RFC3339 UTC, so the lexical order is the
	// chronological one.
	return a.UpdatedAt < b.UpdatedAt
}
