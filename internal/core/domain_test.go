package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2024, 1, 1), true},
		{NewDate(2024, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Year() != 2024 || d.Month() != 3 || d.Day() != 15 {
		t.Fatalf("wrong date parts: %d-%d-%d", d.Year(), d.Month(), d.Day())
	}
	if d.ISO() != "2024-03-15" {
		t.Fatalf("ISO round trip: %s", d.ISO())
	}

	for _, bad := range []string{"", "15/03/2024", "2024-13-01", "soon"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q: expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestCardValidate(t *testing.T) {
	good := Card{Name: "Nubank", LastFourDigits: "1234", PaymentDay: 10, Color: "bg-purple-500"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		card Card
		want error
	}{
		{Card{Name: " ", LastFourDigits: "1234", PaymentDay: 10}, ErrEmptyName},
		{Card{Name: "a", LastFourDigits: "123", PaymentDay: 10}, ErrInvalidLastFour},
		{Card{Name: "a", LastFourDigits: "12a4", PaymentDay: 10}, ErrInvalidLastFour},
		{Card{Name: "a", LastFourDigits: "1234", PaymentDay: 0}, ErrInvalidPaymentDay},
		{Card{Name: "a", LastFourDigits: "1234", PaymentDay: 32}, ErrInvalidPaymentDay},
	}
	for i, tc := range cases {
		if err := tc.card.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestPurchaseValidate(t *testing.T) {
	good := Purchase{
		CardID:             "c1",
		Item:               "Mercado",
		Amount:             Money{Cents: 1250},
		PurchaseDate:       NewDate(2024, 3, 1),
		Installments:       1,
		CurrentInstallment: 1,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	// Zero amount is a legal purchase.
	free := good
	free.Amount = Money{}
	if err := free.Validate(); err != nil {
		t.Fatalf("zero amount should validate, got %v", err)
	}

	// CurrentInstallment above Installments is deliberately accepted.
	ahead := good
	ahead.Installments = 3
	ahead.CurrentInstallment = 5
	if err := ahead.Validate(); err != nil {
		t.Fatalf("current > total should validate, got %v", err)
	}

	long := good
	for len(long.Item) <= 200 {
		long.Item += "xxxxxxxxxx"
	}
	if err := long.Validate(); !errors.Is(err, ErrItemTooLong) {
		t.Fatalf("expected ErrItemTooLong, got %v", err)
	}

	cases := []struct {
		mutate func(*Purchase)
		want   error
	}{
		{func(p *Purchase) { p.CardID = "" }, ErrMissingCard},
		{func(p *Purchase) { p.Item = "  " }, ErrEmptyItem},
		{func(p *Purchase) { p.Amount = Money{Cents: -1} }, ErrInvalidAmount},
		{func(p *Purchase) { p.PurchaseDate = Date{} }, ErrInvalidDate},
		{func(p *Purchase) { p.Installments = 0 }, ErrInvalidInstallments},
		{func(p *Purchase) { p.CurrentInstallment = 0 }, ErrInvalidInstallments},
	}
	for i, tc := range cases {
		p := good
		tc.mutate(&p)
		if err := p.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestNewPurchaseDefaults(t *testing.T) {
	p, err := NewPurchase(" c1 ", " Mercado ", Money{Cents: 100}, NewDate(2024, 1, 2))
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if p.CardID != "c1" || p.Item != "Mercado" {
		t.Fatalf("fields not trimmed: %q %q", p.CardID, p.Item)
	}
	if p.Installments != 1 || p.CurrentInstallment != 1 {
		t.Fatalf("installment defaults: %d/%d", p.CurrentInstallment, p.Installments)
	}
	if p.Category != "" {
		t.Fatalf("category should stay empty, got %q", p.Category)
	}
}

func TestCardCycleValidate(t *testing.T) {
	good := CardCycle{
		CardID:    "c1",
		Year:      2024,
		Month:     3,
		StartDate: NewDate(2024, 2, 25),
		EndDate:   NewDate(2024, 3, 24),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := good
	bad.Month = 13
	if err := bad.Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}

	flipped := good
	flipped.StartDate, flipped.EndDate = flipped.EndDate, flipped.StartDate
	if err := flipped.Validate(); err == nil {
		t.Fatalf("expected error for end before start")
	}
}

func TestPurchasePatchApply(t *testing.T) {
	p := Purchase{
		CardID:             "c1",
		Item:               "Mercado",
		Amount:             Money{Cents: 100},
		PurchaseDate:       NewDate(2024, 1, 1),
		Installments:       1,
		CurrentInstallment: 1,
		Category:           "Alimentação",
	}

	newItem := "Farmácia"
	newCat := ""
	patch := PurchasePatch{Item: &newItem, Category: &newCat}
	patch.Apply(&p)

	if p.Item != "Farmácia" {
		t.Fatalf("item not patched: %q", p.Item)
	}
	if p.Category != "" {
		t.Fatalf("category should be cleared, got %q", p.Category)
	}
	if p.Amount.Cents != 100 || p.CardID != "c1" {
		t.Fatalf("untouched fields changed")
	}
}
