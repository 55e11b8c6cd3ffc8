package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"

	"ekanban/internal/config"
	"ekanban/internal/db"
	"ekanban/internal/domain"
	"ekanban/internal/engine"
	"ekanban/internal/migrate"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

var actorHeader = map[string]string{"X-Actor-Id": "tester"}

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	cfg := config.Default()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth:     AuthConfig{AllowLegacyActorHeader: true},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

// seedBoard creates accounts, a product, two statuses and a two-step chain
// (customer first, then supplier) with one kanban chain carrying `cards` cards.
type seededBoard struct {
	Customer  domain.Account
	Supplier  domain.Account
	Statuses  []domain.Status
	ChainID   int64
	KanbanIDs []int64
}

func seedBoard(t *testing.T, srv *testServer, cards int64) seededBoard {
	t.Helper()
	ctx := context.Background()
	e := srv.Engine
	customer, err := e.Repo.InsertAccount(ctx, domain.Account{Name: "Acme Manufacturing"})
	if err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	supplier, err := e.Repo.InsertAccount(ctx, domain.Account{Name: "Rossi Components"})
	if err != nil {
		t.Fatalf("insert supplier: %v", err)
	}
	if err := e.Repo.InsertProduct(ctx, domain.Product{ID: "BRK-100", Name: "Brake pad"}); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	chain, err := e.CreateStatusChain(ctx, "standard loop")
	if err != nil {
		t.Fatalf("create status chain: %v", err)
	}
	var statuses []domain.Status
	for i, spec := range []struct {
		name string
		role domain.Role
	}{
		{"Empty", domain.RoleCustomer},
		{"Full", domain.RoleSupplier},
	} {
		s, err := e.Repo.InsertStatus(ctx, domain.Status{Name: spec.name, Color: "#cccccc"})
		if err != nil {
			t.Fatalf("insert status: %v", err)
		}
		if _, err := e.AddChainEntry(ctx, chain.ID, s.ID, int64(i+1), spec.role); err != nil {
			t.Fatalf("add entry: %v", err)
		}
		statuses = append(statuses, s)
	}
	kc, err := e.CreateKanbanChain(ctx, engine.ChainCreateOptions{
		CustomerID:           customer.ID,
		SupplierID:           supplier.ID,
		ProductID:            "BRK-100",
		StatusChainID:        chain.ID,
		LeadTimeDays:         10,
		Quantity:             25,
		ContainerType:        "box",
		InitialActiveKanbans: cards,
	})
	if err != nil {
		t.Fatalf("create kanban chain: %v", err)
	}
	live, err := e.Repo.ListKanbans(ctx, kc.ID, true)
	if err != nil {
		t.Fatalf("list kanbans: %v", err)
	}
	var ids []int64
	for _, k := range live {
		ids = append(ids, k.ID)
	}
	return seededBoard{Customer: customer, Supplier: supplier, Statuses: statuses, ChainID: kc.ID, KanbanIDs: ids}
}

func decodeError(t *testing.T, data []byte) apiErrorBody {
	t.Helper()
	var payload struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decode error body %q: %v", data, err)
	}
	return payload.Error
}

func TestAdvanceRetireHistoryFlow(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	board := seedBoard(t, srv, 2)
	kanbanID := board.KanbanIDs[0]

	res, data := doJSON(t, srv.Client(), http.MethodPost,
		fmt.Sprintf("%s/v0/kanbans/%d/advance", srv.URL, kanbanID),
		map[string]any{"customer_supplier": 2}, actorHeader)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("advance status %d: %s", res.StatusCode, data)
	}
	var card domain.CardView
	if err := json.Unmarshal(data, &card); err != nil {
		t.Fatalf("decode card: %v", err)
	}
	if card.StatusCurrent != board.Statuses[1].ID || card.StatusName != "Full" {
		t.Fatalf("unexpected card after advance: %+v", card)
	}
	if card.ActorRole != domain.RoleSupplier {
		t.Fatalf("next turn should be the supplier's: %+v", card)
	}

	// Wrap back to the first status as the supplier.
	res, data = doJSON(t, srv.Client(), http.MethodPost,
		fmt.Sprintf("%s/v0/kanbans/%d/advance", srv.URL, kanbanID),
		map[string]any{"customer_supplier": 1}, actorHeader)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("wrap advance status %d: %s", res.StatusCode, data)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet,
		fmt.Sprintf("%s/v0/kanbans/%d/history", srv.URL, kanbanID), nil, actorHeader)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("history status %d: %s", res.StatusCode, data)
	}
	var history []domain.KanbanHistory
	if err := json.Unmarshal(data, &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d history rows, want 2", len(history))
	}
	if history[0].ActorID != "tester" || history[1].NextStatus != board.Statuses[0].ID {
		t.Fatalf("unexpected history: %+v", history)
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost,
		fmt.Sprintf("%s/v0/kanbans/%d/retire", srv.URL, kanbanID), nil, actorHeader)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("retire status %d: %s", res.StatusCode, data)
	}
	var retired domain.Kanban
	if err := json.Unmarshal(data, &retired); err != nil {
		t.Fatalf("decode retired: %v", err)
	}
	if retired.IsActive {
		t.Fatalf("card still active after retire")
	}

	// A second retire conflicts.
	res, data = doJSON(t, srv.Client(), http.MethodPost,
		fmt.Sprintf("%s/v0/kanbans/%d/retire", srv.URL, kanbanID), nil, actorHeader)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("re-retire status %d: %s", res.StatusCode, data)
	}
	if e := decodeError(t, data); e.Code != "conflict" {
		t.Fatalf("unexpected error code %q", e.Code)
	}
}

func TestAdvanceWrongRoleForbidden(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	board := seedBoard(t, srv, 1)

	res, data := doJSON(t, srv.Client(), http.MethodPost,
		fmt.Sprintf("%s/v0/kanbans/%d/advance", srv.URL, board.KanbanIDs[0]),
		map[string]any{"customer_supplier": 1}, actorHeader)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
	e := decodeError(t, data)
	if e.Code != "forbidden" {
		t.Fatalf("unexpected code %q", e.Code)
	}
	if e.Details["required_role"] != "customer" || e.Details["requested_role"] != "supplier" {
		t.Fatalf("unexpected details: %+v", e.Details)
	}
}

func TestAdvanceRequiresBody(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	board := seedBoard(t, srv, 1)

	res, data := doJSON(t, srv.Client(), http.MethodPost,
		fmt.Sprintf("%s/v0/kanbans/%d/advance", srv.URL, board.KanbanIDs[0]), nil, actorHeader)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
	if e := decodeError(t, data); e.Code != "bad_request" {
		t.Fatalf("unexpected code %q", e.Code)
	}
}

func TestShrinkChainRejected(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	board := seedBoard(t, srv, 5)

	res, data := doJSON(t, srv.Client(), http.MethodPatch,
		fmt.Sprintf("%s/v0/kanban-chains/%d", srv.URL, board.ChainID),
		map[string]any{"no_of_active_kanbans": 3}, actorHeader)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
	e := decodeError(t, data)
	if e.Code != "cannot_auto_shrink" {
		t.Fatalf("unexpected code %q", e.Code)
	}
	if e.Details["current"] != float64(5) || e.Details["requested"] != float64(3) {
		t.Fatalf("unexpected details: %+v", e.Details)
	}
}

func TestGrowChainAddsCards(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	board := seedBoard(t, srv, 2)

	res, data := doJSON(t, srv.Client(), http.MethodPatch,
		fmt.Sprintf("%s/v0/kanban-chains/%d", srv.URL, board.ChainID),
		map[string]any{"no_of_active_kanbans": 4}, actorHeader)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
	var kc domain.KanbanChain
	if err := json.Unmarshal(data, &kc); err != nil {
		t.Fatalf("decode chain: %v", err)
	}
	if kc.ActiveKanbans != 4 {
		t.Fatalf("counter = %d, want 4", kc.ActiveKanbans)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet,
		fmt.Sprintf("%s/v0/kanbans?kanban_chain_id=%d&active=true", srv.URL, board.ChainID), nil, actorHeader)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, data)
	}
	var cards []domain.Kanban
	if err := json.Unmarshal(data, &cards); err != nil {
		t.Fatalf("decode cards: %v", err)
	}
	if len(cards) != 4 {
		t.Fatalf("got %d cards, want 4", len(cards))
	}
}

func TestDashboardEndpoint(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	board := seedBoard(t, srv, 2)

	res, data := doJSON(t, srv.Client(), http.MethodGet,
		fmt.Sprintf("%s/v0/dashboards/customer/%d", srv.URL, board.Customer.ID), nil, actorHeader)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
	var dash DashboardResponse
	if err := json.Unmarshal(data, &dash); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	cards := dash.KanbansByProduct["Brake pad"]
	if len(cards) != 2 {
		t.Fatalf("got %d cards, want 2: %+v", len(cards), dash.KanbansByProduct)
	}
	if cards[0].ActorRole != domain.RoleCustomer {
		t.Fatalf("fresh cards should be on the customer's turn: %+v", cards[0])
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet,
		fmt.Sprintf("%s/v0/dashboards/supplier/%d", srv.URL, 9999), nil, actorHeader)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown account status %d: %s", res.StatusCode, data)
	}
}

func TestStatusChainEntryEndpoints(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()
	board := seedBoard(t, srv, 1)
	ctx := context.Background()

	chains, err := srv.Engine.Repo.ListStatusChains(ctx)
	if err != nil || len(chains) == 0 {
		t.Fatalf("list chains: %v", err)
	}
	chainID := chains[0].ID

	// Removing the occupied first entry conflicts.
	res, data := doJSON(t, srv.Client(), http.MethodDelete,
		fmt.Sprintf("%s/v0/status-chains/%d/entries/%d", srv.URL, chainID, board.Statuses[0].ID), nil, actorHeader)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}

	// Appending a new entry works.
	s, err := srv.Engine.Repo.InsertStatus(ctx, domain.Status{Name: "In Transit", Color: "#00f"})
	if err != nil {
		t.Fatalf("insert status: %v", err)
	}
	res, data = doJSON(t, srv.Client(), http.MethodPost,
		fmt.Sprintf("%s/v0/status-chains/%d/entries", srv.URL, chainID),
		map[string]any{"status_id": s.ID, "order": 3, "customer_supplier": 1}, actorHeader)
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		t.Fatalf("add entry status %d: %s", res.StatusCode, data)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet,
		fmt.Sprintf("%s/v0/status-chains/%d/entries", srv.URL, chainID), nil, actorHeader)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list entries status %d: %s", res.StatusCode, data)
	}
	var entries []domain.StatusChainEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 3 || entries[2].StatusID != s.ID {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/kanbans", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
	if e := decodeError(t, data); e.Code != "unauthorized" {
		t.Fatalf("unexpected code %q", e.Code)
	}

	// Health stays open.
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, data)
	}
}

func TestUnknownKanbanNotFound(t *testing.T) {
	srv, done := newTestServer(t)
	defer done()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/kanbans/424242", nil, actorHeader)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d: %s", res.StatusCode, data)
	}
	if e := decodeError(t, data); e.Code != "not_found" {
		t.Fatalf("unexpected code %q", e.Code)
	}
}
