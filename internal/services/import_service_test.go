package services

import (
	"context"
	"errors"
	"testing"

	"economize/internal/ai"
	"economize/internal/core"
	"economize/internal/store/memory"
)

type fakeExtractor struct {
	records []ai.ExtractedPurchase
	err     error
}

func (f fakeExtractor) ExtractPurchases(_ context.Context, _ string, _ int) ([]ai.ExtractedPurchase, error) {
	return f.records, f.err
}

func invoiceRecords() []ai.ExtractedPurchase {
	return []ai.ExtractedPurchase{
		{Item: "Mercado", Amount: 123.45, PurchaseDate: "2024-03-02", Installments: 1},
		{Item: "Notebook", Amount: 3500, PurchaseDate: "2024-03-10", Installments: 10},
	}
}

func TestStageAndCommit(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	card, err := mem.AddCard(ctx, owner, core.Card{Name: "Nubank", LastFourDigits: "1111", PaymentDay: 5})
	if err != nil {
		t.Fatalf("add card: %v", err)
	}

	svc := NewImportService(fakeExtractor{records: invoiceRecords()}, mem, mem)

	staged, err := svc.Stage(ctx, owner, "fatura...", 2024)
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if len(staged) != 2 {
		t.Fatalf("expected 2 staged, got %d", len(staged))
	}
	if staged[0].Amount.Cents != 12345 {
		t.Fatalf("amount conversion: %d", staged[0].Amount.Cents)
	}

	if err := svc.Assign(owner, card.ID, "r1"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	count, err := svc.Commit(ctx, owner)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 imported, got %d", count)
	}

	list, _ := mem.ListPurchases(ctx, owner)
	if len(list) != 2 {
		t.Fatalf("expected 2 purchases, got %d", len(list))
	}
	for _, p := range list {
		if p.CardID != card.ID {
			t.Fatalf("wrong card: %s", p.CardID)
		}
		if p.Category != core.DefaultCategory {
			t.Fatalf("expected default category, got %q", p.Category)
		}
		if p.CurrentInstallment != 1 {
			t.Fatalf("imports start at installment 1, got %d", p.CurrentInstallment)
		}
		if p.ResponsibleID != "r1" {
			t.Fatalf("responsible not applied: %q", p.ResponsibleID)
		}
	}

	// Session is gone: a second commit is a no-op.
	count, err = svc.Commit(ctx, owner)
	if err != nil || count != 0 {
		t.Fatalf("re-commit: count=%d err=%v", count, err)
	}
	list, _ = mem.ListPurchases(ctx, owner)
	if len(list) != 2 {
		t.Fatalf("re-commit wrote rows: %d", len(list))
	}
}

func TestCommitFallsBackToFirstCard(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	first, _ := mem.AddCard(ctx, owner, core.Card{Name: "First", LastFourDigits: "1111", PaymentDay: 5})
	_, _ = mem.AddCard(ctx, owner, core.Card{Name: "Second", LastFourDigits: "2222", PaymentDay: 6})

	svc := NewImportService(fakeExtractor{records: invoiceRecords()}, mem, mem)
	if _, err := svc.Stage(ctx, owner, "fatura", 2024); err != nil {
		t.Fatalf("stage: %v", err)
	}

	// No Assign call: commit picks the first listed card.
	if _, err := svc.Commit(ctx, owner); err != nil {
		t.Fatalf("commit: %v", err)
	}
	list, _ := mem.ListPurchases(ctx, owner)
	for _, p := range list {
		if p.CardID != first.ID {
			t.Fatalf("expected fallback to first card, got %s", p.CardID)
		}
	}
}

func TestCommitWithoutAnyCard(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	svc := NewImportService(fakeExtractor{records: invoiceRecords()}, mem, mem)

	if _, err := svc.Stage(ctx, owner, "fatura", 2024); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, err := svc.Commit(ctx, owner); !errors.Is(err, ErrNoCard) {
		t.Fatalf("expected ErrNoCard, got %v", err)
	}

	// The session survives a failed commit.
	records, _, _ := svc.Staged(owner)
	if len(records) != 2 {
		t.Fatalf("session lost after failed commit: %d", len(records))
	}
}

func TestStageExtractorFailure(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	svc := NewImportService(fakeExtractor{err: errors.New("oracle down")}, mem, mem)

	staged, err := svc.Stage(ctx, owner, "fatura", 2024)
	if err != nil {
		t.Fatalf("extraction failure must not surface: %v", err)
	}
	if len(staged) != 0 {
		t.Fatalf("expected nothing staged, got %d", len(staged))
	}
	if _, err := svc.Commit(ctx, owner); err != nil {
		t.Fatalf("commit after failed stage: %v", err)
	}
}

func TestStageDropsBadRecords(t *testing.T) {
	ctx := context.Background()
	records := []ai.ExtractedPurchase{
		{Item: "ok", Amount: 10, PurchaseDate: "2024-03-01", Installments: 1},
		{Item: "bad date", Amount: 10, PurchaseDate: "03/2024", Installments: 1},
		{Item: "negative", Amount: -5, PurchaseDate: "2024-03-01", Installments: 1},
		{Item: "", Amount: 10, PurchaseDate: "2024-03-01", Installments: 1},
		{Item: "no installments", Amount: 10, PurchaseDate: "2024-03-01", Installments: 0},
	}
	svc := NewImportService(fakeExtractor{records: records}, memory.New(), memory.New())

	staged, err := svc.Stage(ctx, owner, "fatura", 2024)
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if len(staged) != 2 {
		t.Fatalf("expected 2 usable records, got %d", len(staged))
	}
	if staged[1].Installments != 1 {
		t.Fatalf("zero installments should clamp to 1, got %d", staged[1].Installments)
	}
}

func TestDiscardAndCancel(t *testing.T) {
	ctx := context.Background()
	svc := NewImportService(fakeExtractor{records: invoiceRecords()}, memory.New(), memory.New())

	if _, err := svc.Stage(ctx, owner, "fatura", 2024); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := svc.Discard(owner, 5); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	if err := svc.Discard(owner, 0); err != nil {
		t.Fatalf("discard: %v", err)
	}
	records, _, _ := svc.Staged(owner)
	if len(records) != 1 || records[0].Item != "Notebook" {
		t.Fatalf("wrong record discarded: %+v", records)
	}

	svc.Cancel(owner)
	records, _, _ = svc.Staged(owner)
	if len(records) != 0 {
		t.Fatalf("cancel did not clear session")
	}
	if err := svc.Assign(owner, "c1", ""); !errors.Is(err, ErrNotStaged) {
		t.Fatalf("expected ErrNotStaged, got %v", err)
	}
}

func TestStageReplacesSession(t *testing.T) {
	ctx := context.Background()
	svc := NewImportService(fakeExtractor{records: invoiceRecords()}, memory.New(), memory.New())

	if _, err := svc.Stage(ctx, owner, "primeira", 2024); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := svc.Assign(owner, "c1", "r1"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	// Restaging starts a fresh session without the old assignment.
	if _, err := svc.Stage(ctx, owner, "segunda", 2024); err != nil {
		t.Fatalf("restage: %v", err)
	}
	_, cardID, responsibleID := svc.Staged(owner)
	if cardID != "" || responsibleID != "" {
		t.Fatalf("assignment leaked across sessions: %q %q", cardID, responsibleID)
	}
}
