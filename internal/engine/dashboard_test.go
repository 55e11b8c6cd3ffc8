package engine_test

import (
	"errors"
	"testing"
	"time"

	"ekanban/internal/domain"
	"ekanban/internal/engine"
	"ekanban/internal/repo"
)

func TestDashboardGroupsByProductName(t *testing.T) {
	env := newTestEnv(t)
	f := seedChain(t, env, []domain.Role{domain.RoleCustomer, domain.RoleSupplier})
	if _, err := env.Engine.CreateKanbanChain(env.Ctx, f.chainOpts(2)); err != nil {
		t.Fatalf("create first chain: %v", err)
	}
	second := domain.Product{ID: "CLP-200", Name: "Clip"}
	if err := env.Engine.Repo.InsertProduct(env.Ctx, second); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	opts := f.chainOpts(1)
	opts.ProductID = second.ID
	if _, err := env.Engine.CreateKanbanChain(env.Ctx, opts); err != nil {
		t.Fatalf("create second chain: %v", err)
	}

	board, err := env.Engine.DashboardForCustomer(env.Ctx, f.Customer.ID)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("got %d product groups, want 2", len(board))
	}
	if len(board["Brake pad"]) != 2 || len(board["Clip"]) != 1 {
		t.Fatalf("unexpected grouping: %+v", board)
	}
	for _, c := range board["Clip"] {
		if c.CustomerName != f.Customer.Name || c.SupplierName != f.Supplier.Name {
			t.Fatalf("card missing party names: %+v", c)
		}
	}

	// The supplier sees the same chains from its side.
	board, err = env.Engine.DashboardForSupplier(env.Ctx, f.Supplier.ID)
	if err != nil {
		t.Fatalf("supplier dashboard: %v", err)
	}
	if len(board["Brake pad"]) != 2 {
		t.Fatalf("supplier view missing cards: %+v", board)
	}
}

func TestDashboardPutsViewerTurnFirst(t *testing.T) {
	env := newTestEnv(t)
	f := seedChain(t, env, []domain.Role{domain.RoleCustomer, domain.RoleSupplier})
	kc, err := env.Engine.CreateKanbanChain(env.Ctx, f.chainOpts(3))
	if err != nil {
		t.Fatalf("create chain: %v", err)
	}
	cards, _ := env.Engine.Repo.ListKanbans(env.Ctx, kc.ID, true)

	// Move the middle card to the supplier's step; the other two stay on the
	// customer's step with distinct timestamps.
	env.advanceClock(time.Minute)
	if _, err := env.Engine.AdvanceKanban(env.Ctx, cards[1].ID, domain.RoleCustomer, "tester"); err != nil {
		t.Fatalf("advance: %v", err)
	}

	board, err := env.Engine.DashboardForCustomer(env.Ctx, f.Customer.ID)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	got := board["Brake pad"]
	if len(got) != 3 {
		t.Fatalf("got %d cards, want 3", len(got))
	}
	// Customer-turn cards lead, oldest first; the supplier-turn card is last.
	if got[0].KanbanID != cards[0].ID || got[1].KanbanID != cards[2].ID || got[2].KanbanID != cards[1].ID {
		t.Fatalf("unexpected order: %d, %d, %d", got[0].KanbanID, got[1].KanbanID, got[2].KanbanID)
	}

	// The supplier sees the advanced card first.
	board, err = env.Engine.DashboardForSupplier(env.Ctx, f.Supplier.ID)
	if err != nil {
		t.Fatalf("supplier dashboard: %v", err)
	}
	if board["Brake pad"][0].KanbanID != cards[1].ID {
		t.Fatalf("supplier-turn card not first: %+v", board["Brake pad"])
	}
}

func TestDashboardExcludesRetiredCards(t *testing.T) {
	env := newTestEnv(t)
	f := seedChain(t, env, []domain.Role{domain.RoleCustomer, domain.RoleSupplier})
	kc, _ := env.Engine.CreateKanbanChain(env.Ctx, f.chainOpts(2))
	cards, _ := env.Engine.Repo.ListKanbans(env.Ctx, kc.ID, true)
	if _, err := env.Engine.RetireKanban(env.Ctx, cards[0].ID); err != nil {
		t.Fatalf("retire: %v", err)
	}

	board, err := env.Engine.DashboardForCustomer(env.Ctx, f.Customer.ID)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(board["Brake pad"]) != 1 {
		t.Fatalf("retired card still on board: %+v", board["Brake pad"])
	}
}

func TestDashboardEmptyForAccountWithoutChains(t *testing.T) {
	env := newTestEnv(t)
	lonely, err := env.Engine.Repo.InsertAccount(env.Ctx, domain.Account{Name: "No Deals Ltd"})
	if err != nil {
		t.Fatalf("insert account: %v", err)
	}
	board, err := env.Engine.DashboardForCustomer(env.Ctx, lonely.ID)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(board) != 0 {
		t.Fatalf("expected empty board, got %+v", board)
	}
}

func TestDashboardUnknownAccount(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.DashboardForCustomer(env.Ctx, 9999)
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSortCardsStableOrder(t *testing.T) {
	cards := []domain.CardView{
		{KanbanID: 1, ActorRole: domain.RoleSupplier, UpdatedAt: "2024-01-01T10:00:00Z"},
		{KanbanID: 2, ActorRole: domain.RoleCustomer, UpdatedAt: "2024-01-01T09:00:00Z"},
		{KanbanID: 3, ActorRole: domain.RoleCustomer, UpdatedAt: "2024-01-01T08:00:00Z"},
		{KanbanID: 4, ActorRole: domain.RoleSupplier, UpdatedAt: "2024-01-01T08:00:00Z"},
	}
	engine.SortCards(cards, domain.RoleCustomer)
	want := []int64{3, 2, 4, 1}
	for i, id := range want {
		if cards[i].KanbanID != id {
			t.Fatalf("position %d: got card %d, want %d", i, cards[i].KanbanID, id)
		}
	}
}
