// Money parsing and formatting.
//
// Amounts are held as integer cents to keep duplicate detection and
// aggregation exact; decimal strings only appear at the JSON boundary.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third fractional digit. Both dot (12.34) and comma
// (12,34) separators are accepted. Negative values are rejected; zero
// is allowed.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

// MoneyFromFloat converts a currency-unit float (as returned by the
// extraction oracle) to cents with half-up rounding.
func MoneyFromFloat(units float64) Money {
	if units < 0 {
		return Money{}
	}
	return Money{Cents: int64(units*100 + 0.5)}
}

// Add returns the sum of both amounts.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Decimal returns the amount formatted with two fractional digits,
// e.g. "12.34".
func (m Money) Decimal() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// MarshalJSON writes the amount as a plain JSON number with two
// fractional digits, matching the persisted document layout.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal()), nil
}

// UnmarshalJSON accepts either a JSON number or a decimal string and
// parses it exactly, without going through float64.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return err
	}
	m.Cents = cents
	return nil
}

// MarshalJSON writes the date as an ISO YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.ISO() + `"`), nil
}

// UnmarshalJSON accepts an ISO date string, tolerating a trailing
// time component.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if len(s) > 10 {
		s = s[:10]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
