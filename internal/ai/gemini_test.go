package ai

import (
	"testing"

	"economize/internal/core"
)

func TestCleanJSON(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{`[{"item":"a"}]`, `[{"item":"a"}]`},
		{"```json\n[1,2]\n```", "[1,2]"},
		{"```\n[1,2]\n```", "[1,2]"},
		{"  [1,2]  ", "[1,2]"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CleanJSON(tc.in); got != tc.out {
			t.Fatalf("%q: expected %q, got %q", tc.in, tc.out, got)
		}
	}
}

func TestParseExtraction(t *testing.T) {
	raw := "```json\n" +
		`[{"item":"Mercado","amount":123.45,"purchaseDate":"2024-03-02","installments":1},
		  {"item":"Notebook","amount":3500,"purchaseDate":"2024-03-10","installments":10}]` +
		"\n```"

	records, err := ParseExtraction(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Item != "Mercado" || records[0].Amount != 123.45 {
		t.Fatalf("record 0: %+v", records[0])
	}
	if records[1].Installments != 10 {
		t.Fatalf("record 1: %+v", records[1])
	}
}

func TestParseExtractionEmpty(t *testing.T) {
	records, err := ParseExtraction("")
	if err != nil || records != nil {
		t.Fatalf("expected nil/nil, got %v/%v", records, err)
	}
}

func TestParseExtractionBadJSON(t *testing.T) {
	if _, err := ParseExtraction("não consegui extrair"); err == nil {
		t.Fatalf("expected error for non-JSON answer")
	}
}

func TestMatchCategory(t *testing.T) {
	categories := []string{"Alimentação", "Transporte", "Saúde"}

	if got := MatchCategory("alimentação", categories); got != "Alimentação" {
		t.Fatalf("case-insensitive match failed: %q", got)
	}
	if got := MatchCategory("Transporte", categories); got != "Transporte" {
		t.Fatalf("exact match failed: %q", got)
	}
	if got := MatchCategory("Viagens", categories); got != core.DefaultCategory {
		t.Fatalf("unknown answer must fall back, got %q", got)
	}
	if got := MatchCategory("", nil); got != core.DefaultCategory {
		t.Fatalf("empty answer must fall back, got %q", got)
	}
}
