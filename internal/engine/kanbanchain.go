package engine

import (
	"context"
	"strings"

	"ekanban/internal/domain"
)

// ChainCreateOptions carries everything needed to open a kanban chain.
// InitialActiveKanbans cards are materialized at the chain's first status.
type ChainCreateOptions struct {
	CustomerID           int64
	SupplierID           int64
	ProductID            string
	StatusChainID        int64
	LeadTimeDays         int64
	Quantity             float64
	ContainerType        string
	InitialActiveKanbans int64
}

// ChainUpdateOptions updates the mutable fields of a chain. Nil pointers leave
// the stored value untouched.
type ChainUpdateOptions struct {
	ID            int64
	LeadTimeDays  *int64
	Quantity      *float64
	ContainerType *string
	ActiveKanbans *int64
}

func (e Engine) CreateKanbanChain(ctx context.Context, opts ChainCreateOptions) (domain.KanbanChain, error) {
	if _, err := e.Repo.GetAccount(ctx, opts.CustomerID); err != nil {
		return domain.KanbanChain{}, err
	}
	if _, err := e.Repo.GetAccount(ctx, opts.SupplierID); err != nil {
		return domain.KanbanChain{}, err
	}
	if _, err := e.Repo.GetProduct(ctx, opts.ProductID); err != nil {
		return domain.KanbanChain{}, err
	}
	entries, err := e.Repo.ListChainEntries(ctx, opts.StatusChainID)
	if err != nil {
		return domain.KanbanChain{}, err
	}
	if _, err := e.Repo.GetStatusChain(ctx, opts.StatusChainID); err != nil {
		return domain.KanbanChain{}, err
	}
	if len(entries) == 0 {
		return domain.KanbanChain{}, validationf("status chain %d has no entries; cards would have no starting status", opts.StatusChainID)
	}
	if err := e.validateChainFields(opts.LeadTimeDays, opts.Quantity, opts.ContainerType); err != nil {
		return domain.KanbanChain{}, err
	}
	if opts.InitialActiveKanbans < 0 {
		return domain.KanbanChain{}, validationf("no_of_active_kanbans must not be negative, got %d", opts.InitialActiveKanbans)
	}

	kc := domain.KanbanChain{
		CustomerID:    opts.CustomerID,
		SupplierID:    opts.SupplierID,
		ProductID:     opts.ProductID,
		StatusChainID: opts.StatusChainID,
		LeadTimeDays:  opts.LeadTimeDays,
		Quantity:      opts.Quantity,
		ContainerType: strings.TrimSpace(opts.ContainerType),
		ActiveKanbans: opts.InitialActiveKanbans,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.KanbanChain{}, err
	}
	defer tx.Rollback()
	kc.ID, err = e.Repo.InsertKanbanChain(ctx, tx, kc)
	if err != nil {
		return domain.KanbanChain{}, err
	}
	if err := e.Repo.InsertKanbans(ctx, tx, kc, entries[0].StatusID, opts.InitialActiveKanbans, e.nowString()); err != nil {
		return domain.KanbanChain{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.KanbanChain{}, err
	}
	return e.Repo.GetKanbanChain(ctx, kc.ID)
}

// UpdateKanbanChain applies field changes and reconciles the active card count.
// Growing materializes new cards at the first status; shrinking is refused and
// nothing is applied, so the request either lands whole or not at all.
func (e Engine) UpdateKanbanChain(ctx context.Context, opts ChainUpdateOptions) (domain.KanbanChain, error) {
	kc, err := e.Repo.GetKanbanChain(ctx, opts.ID)
	if err != nil {
		return domain.KanbanChain{}, err
	}
	if opts.LeadTimeDays != nil {
		kc.LeadTimeDays = *opts.LeadTimeDays
	}
	if opts.Quantity != nil {
		kc.Quantity = *opts.Quantity
	}
	if opts.ContainerType != nil {
		kc.ContainerType = strings.TrimSpace(*opts.ContainerType)
	}
	if err := e.validateChainFields(kc.LeadTimeDays, kc.Quantity, kc.ContainerType); err != nil {
		return domain.KanbanChain{}, err
	}
	if opts.ActiveKanbans != nil && *opts.ActiveKanbans < 0 {
		return domain.KanbanChain{}, validationf("no_of_active_kanbans must not be negative, got %d", *opts.ActiveKanbans)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.KanbanChain{}, err
	}
	defer tx.Rollback()

	// Count inside the transaction so concurrent retires cannot slip between
	// the guard and the insert of new cards.
	current, err := e.Repo.CountActiveKanbans(ctx, tx, kc.ID)
	if err != nil {
		return domain.KanbanChain{}, err
	}
	if opts.ActiveKanbans != nil && *opts.ActiveKanbans < current {
		return domain.KanbanChain{}, CannotAutoShrinkError{Current: current, Requested: *opts.ActiveKanbans}
	}

	if err := e.Repo.UpdateKanbanChainFields(ctx, tx, kc.ID, kc.LeadTimeDays, kc.Quantity, kc.ContainerType); err != nil {
		return domain.KanbanChain{}, err
	}
	if opts.ActiveKanbans != nil && *opts.ActiveKanbans > current {
		entries, err := e.Repo.ListChainEntries(ctx, kc.StatusChainID)
		if err != nil {
			return domain.KanbanChain{}, err
		}
		if len(entries) == 0 {
			return domain.KanbanChain{}, inconsistentf("kanban chain %d references status chain %d with no entries", kc.ID, kc.StatusChainID)
		}
		if err := e.Repo.InsertKanbans(ctx, tx, kc, entries[0].StatusID, *opts.ActiveKanbans-current, e.nowString()); err != nil {
			return domain.KanbanChain{}, err
		}
	}
	if opts.ActiveKanbans != nil {
		if err := e.Repo.SetActiveKanbans(ctx, tx, kc.ID, *opts.ActiveKanbans); err != nil {
			return domain.KanbanChain{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.KanbanChain{}, err
	}
	return e.Repo.GetKanbanChain(ctx, kc.ID)
}

// DeleteKanbanChain removes a chain and its retired cards. Refused while live
// cards remain.
func (e Engine) DeleteKanbanChain(ctx context.Context, id int64) error {
	if _, err := e.Repo.GetKanbanChain(ctx, id); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	n, err := e.Repo.CountActiveKanbans(ctx, tx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return conflictf("kanban chain %d still has %d active kanban(s)", id, n)
	}
	if err := e.Repo.DeleteKanbanChain(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

// RetireKanban flags one card inactive and decrements its chain's counter.
func (e Engine) RetireKanban(ctx context.Context, kanbanID int64) (domain.Kanban, error) {
	k, err := e.Repo.GetKanban(ctx, kanbanID)
	if err != nil {
		return domain.Kanban{}, err
	}
	if !k.IsActive {
		return domain.Kanban{}, conflictf("kanban %d is already retired", kanbanID)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Kanban{}, err
	}
	defer tx.Rollback()
	ok, err := e.Repo.RetireKanban(ctx, tx, kanbanID, e.nowString())
	if err != nil {
		return domain.Kanban{}, err
	}
	if !ok {
		return domain.Kanban{}, conflictf("kanban %d was retired concurrently", kanbanID)
	}
	remaining, err := e.Repo.CountActiveKanbans(ctx, tx, k.KanbanChainID)
	if err != nil {
		return domain.Kanban{}, err
	}
	if err := e.Repo.SetActiveKanbans(ctx, tx, k.KanbanChainID, remaining); err != nil {
		return domain.Kanban{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Kanban{}, err
	}
	return e.Repo.GetKanban(ctx, kanbanID)
}

func (e Engine) validateChainFields(leadTimeDays int64, quantity float64, containerType string) error {
	if leadTimeDays < 0 {
		return validationf("leadtime_days must not be negative, got %d", leadTimeDays)
	}
	if quantity < 0 {
		return validationf("quantity must not be negative, got %v", quantity)
	}
	ct := strings.TrimSpace(containerType)
	if ct == "" {
		return validationf("container_type required")
	}
	if e.Config != nil && !e.Config.KnownContainerType(ct) {
		return validationf("unknown container_type %q", ct)
	}
	return nil
}
