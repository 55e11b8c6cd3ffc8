package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ekanban/internal/config"
	"ekanban/internal/db"
	"ekanban/internal/domain"
	"ekanban/internal/engine"
	"ekanban/internal/migrate"
	"ekanban/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	clock  *time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env := &testEnv{Ctx: context.Background(), clock: &now}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return *env.clock }
	env.Engine = eng
	return env
}

func (env *testEnv) advanceClock(d time.Duration) {
	*env.clock = env.clock.Add(d)
}

type fixture struct {
	Customer domain.Account
	Supplier domain.Account
	Product  domain.Product
	Chain    domain.StatusChain
	Statuses []domain.Status
}

// seedChain creates a customer, supplier, product, and a status chain whose
// entries carry the given roles at positions 1..n.
func seedChain(t *testing.T, env *testEnv, roles []domain.Role) fixture {
	t.Helper()
	e := env.Engine
	customer, err := e.Repo.InsertAccount(env.Ctx, domain.Account{Name: "Acme Manufacturing"})
	if err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	supplier, err := e.Repo.InsertAccount(env.Ctx, domain.Account{Name: "Rossi Components"})
	if err != nil {
		t.Fatalf("insert supplier: %v", err)
	}
	product := domain.Product{ID: "BRK-100", Name: "Brake pad"}
	if err := e.Repo.InsertProduct(env.Ctx, product); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	chain, err := e.CreateStatusChain(env.Ctx, "standard loop")
	if err != nil {
		t.Fatalf("create status chain: %v", err)
	}
	names := []string{"Empty", "Ordered", "Shipped", "Received", "In Use"}
	var statuses []domain.Status
	for i, role := range roles {
		s, err := e.Repo.InsertStatus(env.Ctx, domain.Status{Name: names[i%len(names)], Color: "#cccccc"})
		if err != nil {
			t.Fatalf("insert status: %v", err)
		}
		if _, err := e.AddChainEntry(env.Ctx, chain.ID, s.ID, int64(i+1), role); err != nil {
			t.Fatalf("add entry %d: %v", i, err)
		}
		statuses = append(statuses, s)
	}
	return fixture{Customer: customer, Supplier: supplier, Product: product, Chain: chain, Statuses: statuses}
}

func (f fixture) chainOpts(cards int64) engine.ChainCreateOptions {
	return engine.ChainCreateOptions{
		CustomerID:           f.Customer.ID,
		SupplierID:           f.Supplier.ID,
		ProductID:            f.Product.ID,
		StatusChainID:        f.Chain.ID,
		LeadTimeDays:         10,
		Quantity:             25,
		ContainerType:        "box",
		InitialActiveKanbans: cards,
	}
}

func TestCreateKanbanChainMaterializesCards(t *testing.T) {
	env := newTestEnv(t)
	f := seedChain(t, env, []domain.Role{domain.RoleCustomer, domain.RoleSupplier})

	kc, err := env.Engine.CreateKanbanChain(env.Ctx, f.chainOpts(4))
	if err != nil {
		t.Fatalf("create kanban chain: %v", err)
	}
	if kc.ActiveKanbans != 4 {
		t.Fatalf("active kanbans = %d, want 4", kc.ActiveKanbans)
	}
	cards, err := env.Engine.Repo.ListKanbans(env.Ctx, kc.ID, true)
	if err != nil {
		t.Fatalf("list kanbans: %v", err)
	}
	if len(cards) != 4 {
		t.Fatalf("got %d cards, want 4", len(cards))
	}
	for _, k := range cards {
		if k.StatusCurrent != f.Statuses[0].ID {
			t.Fatalf("card %d starts at status %d, want %d", k.ID, k.StatusCurrent, f.Statuses[0].ID)
		}
		if k.LeadTimeDays != 10 || k.Quantity != 25 || k.ContainerType != "box" {
			t.Fatalf("card %d did not mirror chain fields: %+v", k.ID, k)
		}
	}
}

func TestCreateKanbanChainRejectsEmptyStatusChain(t *testing.T) {
	env := newTestEnv(t)
	f := seedChain(t, env, nil)
	f.Chain, _ = env.Engine.CreateStatusChain(env.Ctx, "empty loop")

	_, err := env.Engine.CreateKanbanChain(env.Ctx, f.chainOpts(1))
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAdvanceCyclesThroughChain(t *testing.T) {
	env := newTestEnv(t)
	roles := []domain.Role{domain.RoleCustomer, domain.RoleSupplier, domain.RoleSupplier}
	f := seedChain(t, env, roles)
	kc, err := env.Engine.CreateKanbanChain(env.Ctx, f.chainOpts(1))
	if err != nil {
		t.Fatalf("create kanban chain: %v", err)
	}
	cards, _ := env.Engine.Repo.ListKanbans(env.Ctx, kc.ID, true)
	kanbanID := cards[0].ID

	// Walk a full cycle plus one: the card must wrap to the first status.
	want := []int64{f.Statuses[1].ID, f.Statuses[2].ID, f.Statuses[0].ID, f.Statuses[1].ID}
	for step, wantStatus := range want {
		env.advanceClock(time.Minute)
		current, _ := env.Engine.Repo.GetKanban(env.Ctx, kanbanID)
		var role domain.Role
		for i, s := range f.Statuses {
			if s.ID == current.StatusCurrent {
				role = roles[i]
			}
		}
		view, err := env.Engine.AdvanceKanban(env.Ctx, kanbanID, role, "tester")
		if err != nil {
			t.Fatalf("advance step %d: %v", step, err)
		}
		if view.StatusCurrent != wantStatus {
			t.Fatalf("step %d moved to %d, want %d", step, view.StatusCurrent, wantStatus)
		}
	}

	history, err := env.Engine.KanbanHistory(env.Ctx, kanbanID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != len(want) {
		t.Fatalf("got %d history rows, want %d", len(history), len(want))
	}
	if history[2].PreviousStatus != f.Statuses[2].ID || history[2].NextStatus != f.Statuses[0].ID {
		t.Fatalf("wrap transition not recorded: %+v", history[2])
	}
}

func TestAdvanceRejectsWrongRole(t *testing.T) {
	env := newTestEnv(t)
	roles := []domain.Role{domain.RoleCustomer, domain.RoleSupplier}
	f := seedChain(t, env, roles)
	kc, _ := env.Engine.CreateKanbanChain(env.Ctx, f.chainOpts(1))
	cards, _ := env.Engine.Repo.ListKanbans(env.Ctx, kc.ID, true)
	kanbanID := cards[0].ID

	// The card sits at position 1 (customer's turn); the supplier must be
	// refused, and the refusal must not move the card or write history.
	_, err := env.Engine.AdvanceKanban(env.Ctx, kanbanID, domain.RoleSupplier, "tester")
	var fe engine.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
	if fe.Required != domain.RoleCustomer || fe.Requested != domain.RoleSupplier {
		t.Fatalf("unexpected roles in error: %+v", fe)
	}
	k, _ := env.Engine.Repo.GetKanban(env.Ctx, kanbanID)
	if k.StatusCurrent != f.Statuses[0].ID {
		t.Fatalf("card moved despite refusal")
	}
	history, _ := env.Engine.KanbanHistory(env.Ctx, kanbanID)
	if len(history) != 0 {
		t.Fatalf("history written despite refusal")
	}

	// Same gate at the next position, other way around.
	if _, err := env.Engine.AdvanceKanban(env.Ctx, kanbanID, domain.RoleCustomer, "tester"); err != nil {
		t.Fatalf("advance: %v", err)
	}
	_, err = env.Engine.AdvanceKanban(env.Ctx, kanbanID, domain.RoleCustomer, "tester")
	if !errors.As(err, &fe) {
		t.Fatalf("expected ForbiddenError at position 2, got %v", err)
	}
}

func TestAdvanceRetiredCardRefused(t *testing.T) {
	env := newTestEnv(t)
	f := seedChain(t, env, []domain.Role{domain.RoleCustomer, domain.RoleSupplier})
	kc, _ := env.Engine.CreateKanbanChain(env.Ctx, f.chainOpts(1))
	cards, _ := env.Engine.Repo.ListKanbans(env.Ctx, kc.ID, true)

	if _, err := env.Engine.RetireKanban(env.Ctx, cards[0].ID); err != nil {
		t.Fatalf("retire: %v", err)
	}
	_, err := env.Engine.AdvanceKanban(env.Ctx, cards[0].ID, domain.RoleCustomer, "tester")
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestGuardedAdvanceDetectsConcurrentMove(t *testing.T) {
	env := newTestEnv(t)
	f := seedChain(t, env, []domain.Role{domain.RoleCustomer, domain.RoleSupplier})
	kc, _ := env.Engine.CreateKanbanChain(env.Ctx, f.chainOpts(1))
	cards, _ := env.Engine.Repo.ListKanbans(env.Ctx, kc.ID, true)
	kanbanID := cards[0].ID

	// Move the card underneath a caller that still holds the old status.
	if _, err := env.Engine.AdvanceKanban(env.Ctx, kanbanID, domain.RoleCustomer, "tester"); err != nil {
		t.Fatalf("advance: %v", err)
	}
	tx, err := env.Engine.DB.BeginTx(env.Ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()
	moved, err := env.Engine.Repo.AdvanceKanbanStatus(env.Ctx, tx, kanbanID, f.Statuses[0].ID, f.Statuses[1].ID, "2024-01-01T01:00:00Z")
	if err != nil {
		t.Fatalf("guarded update: %v", err)
	}
	if moved {
		t.Fatalf("stale guarded update succeeded")
	}
}

func TestUpdateKanbanChainGrowsCardCount(t *testing.T) {
	env := newTestEnv(t)
	f := seedChain(t, env, []domain.Role{domain.RoleCustomer, domain.RoleSupplier})
	kc, _ := env.Engine.CreateKanbanChain(env.Ctx, f.chainOpts(2))

	// Move one card off the first status, then grow; new cards still start
	// at the first status.
	cards, _ := env.Engine.Repo.ListKanbans(env.Ctx, kc.ID, true)
	if _, err := env.Engine.AdvanceKanban(env.Ctx, cards[0].ID, domain.RoleCustomer, "tester"); err != nil {
		t.Fatalf("advance: %v", err)
	}
	want := int64(5)
	updated, err := env.Engine.UpdateKanbanChain(env.Ctx, engine.ChainUpdateOptions{ID: kc.ID, ActiveKanbans: &want})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ActiveKanbans != 5 {
		t.Fatalf("counter = %d, want 5", updated.ActiveKanbans)
	}
	atFirst, err := env.Engine.Repo.CountActiveKanbansAtStatus(env.Ctx, f.Chain.ID, f.Statuses[0].ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if atFirst != 4 {
		t.Fatalf("%d cards at first status, want 4 (1 original + 3 new)", atFirst)
	}
}

func TestUpdateKanbanChainShrinkRefusedAtomically(t *testing.T) {
	env := newTestEnv(t)
	f := seedChain(t, env, []domain.Role{domain.RoleCustomer, domain.RoleSupplier})
	kc, _ := env.Engine.CreateKanbanChain(env.Ctx, f.chainOpts(5))

	fewer := int64(3)
	lead := int64(99)
	_, err := env.Engine.UpdateKanbanChain(env.Ctx, engine.ChainUpdateOptions{
		ID:            kc.ID,
		LeadTimeDays:  &lead,
		ActiveKanbans: &fewer,
	})
	var se engine.CannotAutoShrinkError
	if !errors.As(err, &se) {
		t.Fatalf("expected CannotAutoShrinkError, got %v", err)
	}
	if se.Current != 5 || se.Requested != 3 {
		t.Fatalf("unexpected counts in error: %+v", se)
	}
	// The whole update must be rejected, field changes included.
	after, _ := env.Engine.Repo.GetKanbanChain(env.Ctx, kc.ID)
	if after.LeadTimeDays != 10 || after.ActiveKanbans != 5 {
		t.Fatalf("refused update leaked changes: %+v", after)
	}
}

func TestUpdateKanbanChainMirrorsFieldsOntoActiveCards(t *testing.T) {
	env := newTestEnv(t)
	f := seedChain(t, env, []domain.Role{domain.RoleCustomer, domain.RoleSupplier})
	kc, _ := env.Engine.CreateKanbanChain(env.Ctx, f.chainOpts(2))
	cards, _ := env.Engine.Repo.ListKanbans(env.Ctx, kc.ID, true)
	retired, err := env.Engine.RetireKanban(env.Ctx, cards[0].ID)
	if err != nil {
		t.Fatalf("retire: %v", err)
	}

	lead, qty, ct := int64(3), 50.0, "crate"
	if _, err := env.Engine.UpdateKanbanChain(env.Ctx, engine.ChainUpdateOptions{
		ID: kc.ID, LeadTimeDays: &lead, Quantity: &qty, ContainerType: &ct,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	live, _ := env.Engine.Repo.GetKanban(env.Ctx, cards[1].ID)
	if live.LeadTimeDays != 3 || live.Quantity != 50 || live.ContainerType != "crate" {
		t.Fatalf("active card not mirrored: %+v", live)
	}
	// Retired cards keep their snapshot.
	frozen, _ := env.Engine.Repo.GetKanban(env.Ctx, retired.ID)
	if frozen.LeadTimeDays != 10 || frozen.Quantity != 25 || frozen.ContainerType != "box" {
		t.Fatalf("retired card was rewritten: %+v", frozen)
	}
}

func TestRetireKanbanDecrementsCounter(t *testing.T) {
	env := newTestEnv(t)
	f := seedChain(t, env, []domain.Role{domain.RoleCustomer, domain.RoleSupplier})
	kc, _ := env.Engine.CreateKanbanChain(env.Ctx, f.chainOpts(3))
	cards, _ := env.Engine.Repo.ListKanbans(env.Ctx, kc.ID, true)

	k, err := env.Engine.RetireKanban(env.Ctx, cards[0].ID)
	if err != nil {
		t.Fatalf("retire: %v", err)
	}
	if k.IsActive {
		t.Fatalf("card still active after retire")
	}
	after, _ := env.Engine.Repo.GetKanbanChain(env.Ctx, kc.ID)
	if after.ActiveKanbans != 2 {
		t.Fatalf("counter = %d, want 2", after.ActiveKanbans)
	}
	if _, err := env.Engine.RetireKanban(env.Ctx, cards[0].ID); err == nil {
		t.Fatalf("second retire should conflict")
	}
}

func TestRemoveChainEntryBlockedWhileOccupied(t *testing.T) {
	env := newTestEnv(t)
	f := seedChain(t, env, []domain.Role{domain.RoleCustomer, domain.RoleSupplier})
	kc, _ := env.Engine.CreateKanbanChain(env.Ctx, f.chainOpts(1))

	err := env.Engine.RemoveChainEntry(env.Ctx, f.Chain.ID, f.Statuses[0].ID)
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	// Once the card moves on, the entry can go.
	cards, _ := env.Engine.Repo.ListKanbans(env.Ctx, kc.ID, true)
	if _, err := env.Engine.AdvanceKanban(env.Ctx, cards[0].ID, domain.RoleCustomer, "tester"); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := env.Engine.RemoveChainEntry(env.Ctx, f.Chain.ID, f.Statuses[0].ID); err != nil {
		t.Fatalf("remove after vacated: %v", err)
	}
}

func TestReplaceChainEntriesKeepsOccupiedStatuses(t *testing.T) {
	env := newTestEnv(t)
	f := seedChain(t, env, []domain.Role{domain.RoleCustomer, domain.RoleSupplier})
	if _, err := env.Engine.CreateKanbanChain(env.Ctx, f.chainOpts(1)); err != nil {
		t.Fatalf("create kanban chain: %v", err)
	}

	// Dropping the occupied first status must be refused.
	_, err := env.Engine.ReplaceChainEntries(env.Ctx, f.Chain.ID, []domain.StatusChainEntry{
		{StatusID: f.Statuses[1].ID, Position: 1, ActorRole: domain.RoleSupplier},
	})
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	// Reordering while keeping it is fine.
	entries, err := env.Engine.ReplaceChainEntries(env.Ctx, f.Chain.ID, []domain.StatusChainEntry{
		{StatusID: f.Statuses[1].ID, Position: 1, ActorRole: domain.RoleSupplier},
		{StatusID: f.Statuses[0].ID, Position: 2, ActorRole: domain.RoleCustomer},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if entries[0].StatusID != f.Statuses[1].ID || entries[1].StatusID != f.Statuses[0].ID {
		t.Fatalf("unexpected order after replace: %+v", entries)
	}
}

func TestDeleteKanbanChainRequiresNoActiveCards(t *testing.T) {
	env := newTestEnv(t)
	f := seedChain(t, env, []domain.Role{domain.RoleCustomer, domain.RoleSupplier})
	kc, _ := env.Engine.CreateKanbanChain(env.Ctx, f.chainOpts(2))

	if err := env.Engine.DeleteKanbanChain(env.Ctx, kc.ID); err == nil {
		t.Fatalf("delete with active cards should conflict")
	}
	cards, _ := env.Engine.Repo.ListKanbans(env.Ctx, kc.ID, true)
	// Give one card a history row so deletion also covers transition cleanup.
	if _, err := env.Engine.AdvanceKanban(env.Ctx, cards[0].ID, domain.RoleCustomer, "tester"); err != nil {
		t.Fatalf("advance: %v", err)
	}
	for _, k := range cards {
		if _, err := env.Engine.RetireKanban(env.Ctx, k.ID); err != nil {
			t.Fatalf("retire %d: %v", k.ID, err)
		}
	}
	if err := env.Engine.DeleteKanbanChain(env.Ctx, kc.ID); err != nil {
		t.Fatalf("delete after retiring all: %v", err)
	}
	if _, err := env.Engine.Repo.GetKanbanChain(env.Ctx, kc.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("chain still present: %v", err)
	}
}

func TestAddChainEntryValidation(t *testing.T) {
	env := newTestEnv(t)
	f := seedChain(t, env, []domain.Role{domain.RoleCustomer})

	s, _ := env.Engine.Repo.InsertStatus(env.Ctx, domain.Status{Name: "Extra", Color: "#fff"})
	if _, err := env.Engine.AddChainEntry(env.Ctx, f.Chain.ID, s.ID, 1, domain.RoleSupplier); err == nil {
		t.Fatalf("duplicate position should conflict")
	}
	if _, err := env.Engine.AddChainEntry(env.Ctx, f.Chain.ID, s.ID, 0, domain.RoleSupplier); err == nil {
		t.Fatalf("position 0 should be rejected")
	}
	if _, err := env.Engine.AddChainEntry(env.Ctx, f.Chain.ID, s.ID, 2, domain.Role(7)); err == nil {
		t.Fatalf("unknown role should be rejected")
	}
	if _, err := env.Engine.AddChainEntry(env.Ctx, f.Chain.ID, 9999, 2, domain.RoleSupplier); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("unknown status should be not found")
	}
}
