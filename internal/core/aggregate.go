package core

import "strings"

// CategoryAmount is an amount aggregated under one category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// CardReport groups one card's purchases for a single month with their
// total.
type CardReport struct {
	Card      Card       `json:"card"`
	Purchases []Purchase `json:"purchases"`
	Total     Money      `json:"total"`
}

// TotalSpent sums the amounts of all given purchases. No date filtering
// is applied.
func TotalSpent(purchases []Purchase) Money {
	var total Money
	for _, p := range purchases {
		total = total.Add(p.Amount)
	}
	return total
}

// SpendByCategory groups purchase amounts by category name,
// substituting the uncategorized label when a purchase carries none.
// Result order follows the first encounter of each category.
func SpendByCategory(purchases []Purchase) []CategoryAmount {
	index := make(map[string]int)
	var out []CategoryAmount
	for _, p := range purchases {
		name := p.Category
		if strings.TrimSpace(name) == "" {
			name = UncategorizedLabel
		}
		i, ok := index[name]
		if !ok {
			index[name] = len(out)
			out = append(out, CategoryAmount{Name: name})
			i = len(out) - 1
		}
		out[i].Amount = out[i].Amount.Add(p.Amount)
	}
	return out
}

// MonthlyCardReport groups purchases by card for one calendar month.
// Cards with no matching purchases are omitted; result order follows
// the card list.
//
// This uses calendar-month semantics, not the card's billing cycle:
// CardCycle overrides are not consulted, and a purchase with multiple
// installments is counted only in its purchase month rather than being
// spread across the future cycles it will actually appear on.
func MonthlyCardReport(purchases []Purchase, cards []Card, year, month int) []CardReport {
	var out []CardReport
	for _, card := range cards {
		var group []Purchase
		var total Money
		for _, p := range purchases {
			if p.CardID != card.ID {
				continue
			}
			if p.PurchaseDate.Year() != year || p.PurchaseDate.Month() != month {
				continue
			}
			group = append(group, p)
			total = total.Add(p.Amount)
		}
		if len(group) == 0 {
			continue
		}
		out = append(out, CardReport{Card: card, Purchases: group, Total: total})
	}
	return out
}

// IsDuplicate reports whether an existing purchase matches the
// candidate on exact amount, calendar date and case-insensitive item
// text. Used as a bypassable warning gate before single inserts.
func IsDuplicate(purchases []Purchase, candidate Purchase) bool {
	for _, p := range purchases {
		if p.Amount.Cents == candidate.Amount.Cents &&
			p.PurchaseDate.Equal(candidate.PurchaseDate) &&
			strings.EqualFold(p.Item, candidate.Item) {
			return true
		}
	}
	return false
}

// CardName resolves a card id against the card list, falling back to
// the unknown label for dangling references.
func CardName(cards []Card, cardID string) string {
	for _, c := range cards {
		if c.ID == cardID {
			return c.Name
		}
	}
	return UnknownCardName
}
