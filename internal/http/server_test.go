package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"economize/internal/ai"
	"economize/internal/core"
	"economize/internal/services"
	"economize/internal/store/memory"
)

const testOwner = "user-1"

type fakeSuggester struct {
	answer string
	err    error
}

func (f fakeSuggester) SuggestCategory(_ context.Context, _ string, _ []string) (string, error) {
	return f.answer, f.err
}

type fakeExtractor struct {
	records []ai.ExtractedPurchase
	err     error
}

func (f fakeExtractor) ExtractPurchases(_ context.Context, _ string, _ int) ([]ai.ExtractedPurchase, error) {
	return f.records, f.err
}

func newTestServer(t *testing.T, suggester CategorySuggester, extractor services.Extractor) (*Server, *memory.Store) {
	t.Helper()
	mem := memory.New()
	purchases := services.NewPurchaseService(mem, nil)
	importer := services.NewImportService(extractor, mem, mem)
	return NewServer(":0", mem, purchases, importer, suggester, ""), mem
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Owner-ID", testOwner)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestMissingOwnerIsUnauthorized(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/cards", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestCardLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	rr := do(t, srv, http.MethodPost, "/api/cards", `{"name":"Nubank","lastFourDigits":"1234","paymentDay":10,"color":"bg-purple-500"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var card core.Card
	if err := json.Unmarshal(rr.Body.Bytes(), &card); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if card.ID == "" {
		t.Fatalf("expected generated id")
	}

	rr = do(t, srv, http.MethodGet, "/api/cards", "")
	if rr.Code != 200 {
		t.Fatalf("list status=%d", rr.Code)
	}
	var cards []core.Card
	_ = json.Unmarshal(rr.Body.Bytes(), &cards)
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}

	// Invalid card is 422.
	rr = do(t, srv, http.MethodPost, "/api/cards", `{"name":"x","lastFourDigits":"12","paymentDay":10}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	rr = do(t, srv, http.MethodDelete, "/api/cards/"+card.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodDelete, "/api/cards/"+card.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
}

func TestListingSeedsDefaults(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	rr := do(t, srv, http.MethodGet, "/api/categories", "")
	var cats []core.Category
	_ = json.Unmarshal(rr.Body.Bytes(), &cats)
	if len(cats) != 5 {
		t.Fatalf("expected 5 seeded categories, got %d", len(cats))
	}

	rr = do(t, srv, http.MethodGet, "/api/responsibles", "")
	var resp []core.Responsible
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if len(resp) != 1 || resp[0].Name != "Eu" {
		t.Fatalf("expected seeded responsible, got %+v", resp)
	}
}

func TestPurchaseCreateDuplicateFlow(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	card := `{"name":"Nubank","lastFourDigits":"1234","paymentDay":10}`
	rr := do(t, srv, http.MethodPost, "/api/cards", card)
	var c core.Card
	_ = json.Unmarshal(rr.Body.Bytes(), &c)

	body := `{"cardId":"` + c.ID + `","item":"Mercado","amount":12.34,"purchaseDate":"2024-03-15"}`
	rr = do(t, srv, http.MethodPost, "/api/purchases", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}

	// Exact repeat is a 409 with nothing written.
	rr = do(t, srv, http.MethodPost, "/api/purchases", body)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/purchases", "")
	var list []core.Purchase
	_ = json.Unmarshal(rr.Body.Bytes(), &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 purchase, got %d", len(list))
	}

	// force=true bypasses the gate.
	rr = do(t, srv, http.MethodPost, "/api/purchases?force=true", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("forced status=%d", rr.Code)
	}
}

func TestPurchaseListNewestFirst(t *testing.T) {
	srv, mem := newTestServer(t, nil, nil)
	ctx := context.Background()

	for _, d := range []core.Date{core.NewDate(2024, 1, 5), core.NewDate(2024, 3, 1), core.NewDate(2024, 2, 10)} {
		_, err := mem.AddPurchase(ctx, testOwner, core.Purchase{
			CardID: "c1", Item: d.ISO(), Amount: core.Money{Cents: 100},
			PurchaseDate: d, Installments: 1, CurrentInstallment: 1,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rr := do(t, srv, http.MethodGet, "/api/purchases", "")
	var list []core.Purchase
	_ = json.Unmarshal(rr.Body.Bytes(), &list)
	if len(list) != 3 {
		t.Fatalf("expected 3, got %d", len(list))
	}
	if list[0].Item != "2024-03-01" || list[2].Item != "2024-01-05" {
		t.Fatalf("not sorted newest first: %s ... %s", list[0].Item, list[2].Item)
	}
}

func TestPurchasePatchAndBatchDelete(t *testing.T) {
	srv, mem := newTestServer(t, nil, nil)
	ctx := context.Background()

	p, err := mem.AddPurchase(ctx, testOwner, core.Purchase{
		CardID: "c1", Item: "Mercado", Amount: core.Money{Cents: 100},
		PurchaseDate: core.NewDate(2024, 3, 1), Installments: 1, CurrentInstallment: 1,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	rr := do(t, srv, http.MethodPatch, "/api/purchases/"+p.ID, `{"category":"Lazer","amount":55.5}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("patch status=%d body=%s", rr.Code, rr.Body.String())
	}
	list, _ := mem.ListPurchases(ctx, testOwner)
	if list[0].Category != "Lazer" || list[0].Amount.Cents != 5550 {
		t.Fatalf("patch not applied: %+v", list[0])
	}

	rr = do(t, srv, http.MethodPatch, "/api/purchases/missing", `{"category":"x"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("patch missing status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/purchases/batch-delete", `{"ids":["`+p.ID+`"]}`)
	if rr.Code != 200 {
		t.Fatalf("batch delete status=%d", rr.Code)
	}
	list, _ = mem.ListPurchases(ctx, testOwner)
	if len(list) != 0 {
		t.Fatalf("batch delete left %d rows", len(list))
	}
}

func TestDashboardAndReport(t *testing.T) {
	srv, mem := newTestServer(t, nil, nil)
	ctx := context.Background()

	card, _ := mem.AddCard(ctx, testOwner, core.Card{Name: "Nubank", LastFourDigits: "1111", PaymentDay: 5})
	seed := []struct {
		item     string
		cents    int64
		date     core.Date
		category string
	}{
		{"mercado", 7000, core.NewDate(2024, 3, 2), "Alimentação"},
		{"farmacia", 3000, core.NewDate(2024, 3, 20), ""},
		{"abril", 500, core.NewDate(2024, 4, 1), "Lazer"},
	}
	for _, s := range seed {
		_, err := mem.AddPurchase(ctx, testOwner, core.Purchase{
			CardID: card.ID, Item: s.item, Amount: core.Money{Cents: s.cents},
			PurchaseDate: s.date, Installments: 1, CurrentInstallment: 1, Category: s.category,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rr := do(t, srv, http.MethodGet, "/api/dashboard", "")
	var dash struct {
		Total      core.Money            `json:"total"`
		ByCategory []core.CategoryAmount `json:"byCategory"`
		Count      int                   `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &dash); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if dash.Total.Cents != 10500 || dash.Count != 3 {
		t.Fatalf("dashboard totals: %+v", dash)
	}
	if len(dash.ByCategory) != 3 || dash.ByCategory[1].Name != core.UncategorizedLabel {
		t.Fatalf("dashboard categories: %+v", dash.ByCategory)
	}

	rr = do(t, srv, http.MethodGet, "/api/reports/monthly?year=2024&month=3", "")
	var report struct {
		Year    int               `json:"year"`
		Month   int               `json:"month"`
		Reports []core.CardReport `json:"reports"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(report.Reports) != 1 || report.Reports[0].Total.Cents != 10000 {
		t.Fatalf("monthly report: %+v", report.Reports)
	}

	rr = do(t, srv, http.MethodGet, "/api/reports/monthly?year=2024&month=13", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("month 13 status=%d", rr.Code)
	}
}

func TestImportFlow(t *testing.T) {
	extractor := fakeExtractor{records: []ai.ExtractedPurchase{
		{Item: "Mercado", Amount: 123.45, PurchaseDate: "2024-03-02", Installments: 1},
		{Item: "Notebook", Amount: 3500, PurchaseDate: "2024-03-10", Installments: 10},
	}}
	srv, mem := newTestServer(t, nil, extractor)
	ctx := context.Background()

	card, _ := mem.AddCard(ctx, testOwner, core.Card{Name: "Nubank", LastFourDigits: "1111", PaymentDay: 5})

	rr := do(t, srv, http.MethodPost, "/api/import/stage", `{"text":"fatura...","year":2024}`)
	if rr.Code != 200 {
		t.Fatalf("stage status=%d body=%s", rr.Code, rr.Body.String())
	}
	var staged stagedResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &staged)
	if len(staged.Records) != 2 {
		t.Fatalf("expected 2 staged, got %d", len(staged.Records))
	}

	rr = do(t, srv, http.MethodPost, "/api/import/discard", `{"index":1}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("discard status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/import/assign", `{"cardId":"`+card.ID+`","responsibleId":"r1"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("assign status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/import/commit", "")
	if rr.Code != 200 {
		t.Fatalf("commit status=%d body=%s", rr.Code, rr.Body.String())
	}
	var result map[string]int
	_ = json.Unmarshal(rr.Body.Bytes(), &result)
	if result["imported"] != 1 {
		t.Fatalf("expected 1 imported, got %d", result["imported"])
	}

	list, _ := mem.ListPurchases(ctx, testOwner)
	if len(list) != 1 || list[0].Item != "Mercado" || list[0].Category != core.DefaultCategory {
		t.Fatalf("unexpected committed purchase: %+v", list)
	}
}

func TestImportStageOracleFailure(t *testing.T) {
	srv, _ := newTestServer(t, nil, fakeExtractor{err: errors.New("oracle down")})

	rr := do(t, srv, http.MethodPost, "/api/import/stage", `{"text":"fatura"}`)
	if rr.Code != 200 {
		t.Fatalf("stage status=%d", rr.Code)
	}
	var staged stagedResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &staged)
	if len(staged.Records) != 0 {
		t.Fatalf("expected empty staging on oracle failure")
	}
}

func TestSuggestCategory(t *testing.T) {
	srv, _ := newTestServer(t, fakeSuggester{answer: "Alimentação"}, nil)

	rr := do(t, srv, http.MethodPost, "/api/suggest-category", `{"description":"padaria"}`)
	if rr.Code != 200 {
		t.Fatalf("suggest status=%d", rr.Code)
	}
	var out map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &out)
	if out["category"] != "Alimentação" {
		t.Fatalf("expected suggestion, got %q", out["category"])
	}
}

func TestSuggestCategoryOracleFailure(t *testing.T) {
	srv, _ := newTestServer(t, fakeSuggester{err: errors.New("oracle down")}, nil)

	rr := do(t, srv, http.MethodPost, "/api/suggest-category", `{"description":"padaria"}`)
	if rr.Code != 200 {
		t.Fatalf("suggest status=%d", rr.Code)
	}
	var out map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &out)
	if out["category"] != core.DefaultCategory {
		t.Fatalf("expected default category fallback, got %q", out["category"])
	}
}

func TestCycleUpsertEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	body := `{"cardId":"c1","year":2024,"month":3,"startDate":"2024-02-25","endDate":"2024-03-24"}`
	rr := do(t, srv, http.MethodPut, "/api/cycles", body)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("save status=%d body=%s", rr.Code, rr.Body.String())
	}

	// Saving the same card+month again replaces the row.
	body = `{"cardId":"c1","year":2024,"month":3,"startDate":"2024-02-26","endDate":"2024-03-25"}`
	rr = do(t, srv, http.MethodPut, "/api/cycles", body)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("upsert status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/cycles", "")
	var cycles []core.CardCycle
	_ = json.Unmarshal(rr.Body.Bytes(), &cycles)
	if len(cycles) != 1 || cycles[0].StartDate.Day() != 26 {
		t.Fatalf("cycle upsert: %+v", cycles)
	}
}
