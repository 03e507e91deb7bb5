package core

import (
	"errors"
	"strings"
	"time"
)

// Labels used when a purchase carries no category, or when its card
// reference no longer resolves.
const (
	UncategorizedLabel = "Sem Categoria"
	DefaultCategory    = "Outros"
	UnknownCardName    = "Unknown"
)

type (
	// Date is a calendar date (no time-of-day component).
	Date struct {
		time.Time
	}

	// Money is an amount in cents of the single implicit currency.
	Money struct {
		Cents int64
	}

	// Card is a credit card registered by one owner.
	Card struct {
		ID             string `json:"id"`
		OwnerID        string `json:"userId,omitempty"`
		Name           string `json:"name"`
		LastFourDigits string `json:"lastFourDigits"`
		PaymentDay     int    `json:"paymentDay"`
		Color          string `json:"color"`
	}

	// Purchase is the central fact record: one charge on one card.
	Purchase struct {
		ID                 string `json:"id"`
		OwnerID            string `json:"userId,omitempty"`
		CardID             string `json:"cardId"`
		Item               string `json:"item"`
		Amount             Money  `json:"amount"`
		PurchaseDate       Date   `json:"purchaseDate"`
		Installments       int    `json:"installments"`
		CurrentInstallment int    `json:"currentInstallment"`
		ResponsibleID      string `json:"responsibleId,omitempty"`
		Category           string `json:"category,omitempty"`
		Notes              string `json:"notes,omitempty"`
	}

	// Responsible is a person purchases can be attributed to.
	Responsible struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// Category is a named spending bucket with a display color tag.
	Category struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
	}

	// CardCycle overrides the default "calendar month = billing cycle"
	// assumption for one card and month. It is stored and served but the
	// report aggregation does not consult it.
	CardCycle struct {
		ID        string `json:"id"`
		CardID    string `json:"cardId"`
		Year      int    `json:"year"`
		Month     int    `json:"month"`
		StartDate Date   `json:"startDate"`
		EndDate   Date   `json:"endDate"`
	}
)

var (
	ErrEmptyName           = errors.New("empty name")
	ErrEmptyItem           = errors.New("empty item description")
	ErrMissingCard         = errors.New("missing card reference")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidLastFour     = errors.New("last four digits must be 4 digits")
	ErrInvalidPaymentDay   = errors.New("payment day must be between 1 and 31")
	ErrInvalidInstallments = errors.New("installments must be at least 1")
	ErrItemTooLong         = errors.New("item description too long (max 200 characters)")
	ErrInvalidMonth        = errors.New("month must be between 1 and 12")
)

// NewDate creates a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO date string (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Year returns the calendar year.
func (d Date) Year() int { return d.Time.Year() }

// Month returns the calendar month, 1-12.
func (d Date) Month() int { return int(d.Time.Month()) }

// Day returns the day of the month.
func (d Date) Day() int { return d.Time.Day() }

// ISO returns the date formatted as YYYY-MM-DD.
func (d Date) ISO() string { return d.Time.Format("2006-01-02") }

// Equal reports whether both values name the same calendar date.
func (d Date) Equal(other Date) bool { return d.ISO() == other.ISO() }

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.LastFourDigits) != 4 {
		return ErrInvalidLastFour
	}
	for _, r := range c.LastFourDigits {
		if r < '0' || r > '9' {
			return ErrInvalidLastFour
		}
	}
	if c.PaymentDay < 1 || c.PaymentDay > 31 {
		return ErrInvalidPaymentDay
	}
	return nil
}

// Validate checks required purchase fields. CurrentInstallment is only
// required to be positive; it is deliberately not bounded by
// Installments.
func (p Purchase) Validate() error {
	if strings.TrimSpace(p.CardID) == "" {
		return ErrMissingCard
	}
	if strings.TrimSpace(p.Item) == "" {
		return ErrEmptyItem
	}
	if len(p.Item) > 200 {
		return ErrItemTooLong
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if err := p.PurchaseDate.Validate(); err != nil {
		return err
	}
	if p.Installments < 1 {
		return ErrInvalidInstallments
	}
	if p.CurrentInstallment < 1 {
		return ErrInvalidInstallments
	}
	return nil
}

func (r Responsible) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (cc CardCycle) Validate() error {
	if strings.TrimSpace(cc.CardID) == "" {
		return ErrMissingCard
	}
	if cc.Month < 1 || cc.Month > 12 {
		return ErrInvalidMonth
	}
	if err := cc.StartDate.Validate(); err != nil {
		return err
	}
	if err := cc.EndDate.Validate(); err != nil {
		return err
	}
	if cc.EndDate.Before(cc.StartDate.Time) {
		return errors.New("cycle end date before start date")
	}
	return nil
}

// NewPurchase builds a purchase with defaults applied: installment
// counters start at 1 and a missing category stays empty so aggregation
// can substitute the uncategorized label.
func NewPurchase(cardID, item string, amount Money, date Date) (Purchase, error) {
	p := Purchase{
		CardID:             strings.TrimSpace(cardID),
		Item:               strings.TrimSpace(item),
		Amount:             amount,
		PurchaseDate:       date,
		Installments:       1,
		CurrentInstallment: 1,
	}
	if err := p.Validate(); err != nil {
		return Purchase{}, err
	}
	return p, nil
}

// PurchasePatch carries the optional fields of a partial purchase
// update. Nil fields are left untouched.
type PurchasePatch struct {
	CardID             *string `json:"cardId,omitempty"`
	Item               *string `json:"item,omitempty"`
	Amount             *Money  `json:"amount,omitempty"`
	PurchaseDate       *Date   `json:"purchaseDate,omitempty"`
	Installments       *int    `json:"installments,omitempty"`
	CurrentInstallment *int    `json:"currentInstallment,omitempty"`
	ResponsibleID      *string `json:"responsibleId,omitempty"`
	Category           *string `json:"category,omitempty"`
	Notes              *string `json:"notes,omitempty"`
}

// Apply copies the set fields of the patch onto p.
func (pp PurchasePatch) Apply(p *Purchase) {
	if pp.CardID != nil {
		p.CardID = *pp.CardID
	}
	if pp.Item != nil {
		p.Item = *pp.Item
	}
	if pp.Amount != nil {
		p.Amount = *pp.Amount
	}
	if pp.PurchaseDate != nil {
		p.PurchaseDate = *pp.PurchaseDate
	}
	if pp.Installments != nil {
		p.Installments = *pp.Installments
	}
	if pp.CurrentInstallment != nil {
		p.CurrentInstallment = *pp.CurrentInstallment
	}
	if pp.ResponsibleID != nil {
		p.ResponsibleID = *pp.ResponsibleID
	}
	if pp.Category != nil {
		p.Category = *pp.Category
	}
	if pp.Notes != nil {
		p.Notes = *pp.Notes
	}
}
