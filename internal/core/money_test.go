package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"0.00", 0, true},
		{".5", 50, true},
		{"", 0, false},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1.2.3", 0, false},
		{"abc", 0, false},
		{"1,2.3", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q: expected ok, got %v", tc.in, err)
			}
			if got != tc.out {
				t.Fatalf("%q: expected %d, got %d", tc.in, tc.out, got)
			}
		} else if err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}

func TestMoneyFromFloat(t *testing.T) {
	cases := []struct {
		in  float64
		out int64
	}{
		{12.34, 1234},
		{0.1, 10},
		{19.999, 2000},
		{0, 0},
		{-5, 0},
	}
	for _, tc := range cases {
		if got := MoneyFromFloat(tc.in); got.Cents != tc.out {
			t.Fatalf("%v: expected %d, got %d", tc.in, tc.out, got.Cents)
		}
	}
}

func TestMoneyDecimal(t *testing.T) {
	cases := []struct {
		cents int64
		out   string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1234, "12.34"},
		{-150, "-1.50"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).Decimal(); got != tc.out {
			t.Fatalf("%d: expected %q, got %q", tc.cents, tc.out, got)
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Money{Cents: 1234})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "12.34" {
		t.Fatalf("expected plain number, got %s", data)
	}

	var m Money
	if err := json.Unmarshal([]byte("12.34"), &m); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if m.Cents != 1234 {
		t.Fatalf("expected 1234, got %d", m.Cents)
	}

	// Quoted strings are accepted too.
	if err := json.Unmarshal([]byte(`"7,50"`), &m); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if m.Cents != 750 {
		t.Fatalf("expected 750, got %d", m.Cents)
	}

	if err := json.Unmarshal([]byte(`"-1"`), &m); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, 3, 15)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2024-03-15"` {
		t.Fatalf("expected quoted ISO date, got %s", data)
	}

	var back Date
	if err := json.Unmarshal([]byte(`"2024-03-15T00:00:00Z"`), &back); err != nil {
		t.Fatalf("unmarshal with time suffix: %v", err)
	}
	if !back.Equal(d) {
		t.Fatalf("round trip mismatch: %s", back.ISO())
	}
}
