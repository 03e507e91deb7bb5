package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"economize/internal/ai"
	"economize/internal/core"
	"economize/internal/store"
)

var (
	// ErrNotStaged is returned by operations that require a staged
	// import session when the owner has none.
	ErrNotStaged = errors.New("no staged import")

	// ErrNoCard is returned by Commit when neither the session nor the
	// owner's card list yields a card to attach purchases to.
	ErrNoCard = errors.New("no card available for import")
)

// Extractor pulls structured purchase records out of freeform invoice
// text.
type Extractor interface {
	ExtractPurchases(ctx context.Context, text string, year int) ([]ai.ExtractedPurchase, error)
}

// StagedRecord is one extracted purchase awaiting review.
type StagedRecord struct {
	Item         string     `json:"item"`
	Amount       core.Money `json:"amount"`
	PurchaseDate core.Date  `json:"purchaseDate"`
	Installments int        `json:"installments"`
}

type importSession struct {
	records       []StagedRecord
	cardID        string
	responsibleID string
}

// ImportService runs the bulk-import flow: stage extracted records,
// let the owner assign a card and responsible, then commit the batch.
// At most one session exists per owner; staging again replaces it.
type ImportService struct {
	mu        sync.Mutex
	sessions  map[string]*importSession
	extractor Extractor
	purchases store.PurchaseStore
	cards     store.CardStore
}

func NewImportService(extractor Extractor, purchases store.PurchaseStore, cards store.CardStore) *ImportService {
	return &ImportService{
		sessions:  make(map[string]*importSession),
		extractor: extractor,
		purchases: purchases,
		cards:     cards,
	}
}

// Stage runs the extractor over the pasted invoice text and stages the
// usable records. Extraction failure is downgraded to an empty result:
// the owner sees nothing staged and can retry. Records the extractor
// returns with an unparseable date, empty item or negative amount are
// dropped individually.
func (s *ImportService) Stage(ctx context.Context, ownerID, text string, year int) ([]StagedRecord, error) {
	if s.extractor == nil {
		return nil, nil
	}

	extracted, err := s.extractor.ExtractPurchases(ctx, text, year)
	if err != nil {
		slog.ErrorContext(ctx, "Invoice extraction failed", "error", err, "owner_id", ownerID)
		s.mu.Lock()
		delete(s.sessions, ownerID)
		s.mu.Unlock()
		return nil, nil
	}

	records := make([]StagedRecord, 0, len(extracted))
	for _, e := range extracted {
		date, err := core.ParseDate(e.PurchaseDate)
		if err != nil {
			slog.WarnContext(ctx, "Dropping extracted record with bad date",
				"item", e.Item, "purchase_date", e.PurchaseDate)
			continue
		}
		if e.Amount < 0 {
			slog.WarnContext(ctx, "Dropping extracted record with negative amount",
				"item", e.Item, "amount", e.Amount)
			continue
		}
		if e.Item == "" {
			continue
		}
		amount := core.MoneyFromFloat(e.Amount)
		installments := e.Installments
		if installments < 1 {
			installments = 1
		}
		records = append(records, StagedRecord{
			Item:         e.Item,
			Amount:       amount,
			PurchaseDate: date,
			Installments: installments,
		})
	}

	s.mu.Lock()
	if len(records) == 0 {
		delete(s.sessions, ownerID)
	} else {
		s.sessions[ownerID] = &importSession{records: records}
	}
	s.mu.Unlock()

	slog.InfoContext(ctx, "Staged import records",
		"owner_id", ownerID,
		"extracted", len(extracted),
		"staged", len(records))
	return records, nil
}

// Staged returns the owner's staged records along with the current card
// and responsible assignment. An owner with no session gets an empty
// result, not an error.
func (s *ImportService) Staged(ownerID string) (records []StagedRecord, cardID, responsibleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[ownerID]
	if !ok {
		return nil, "", ""
	}
	out := make([]StagedRecord, len(sess.records))
	copy(out, sess.records)
	return out, sess.cardID, sess.responsibleID
}

// Assign sets the card and responsible the staged records will be
// committed under.
func (s *ImportService) Assign(ownerID, cardID, responsibleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[ownerID]
	if !ok {
		return ErrNotStaged
	}
	sess.cardID = cardID
	sess.responsibleID = responsibleID
	return nil
}

// Discard removes one staged record by position.
func (s *ImportService) Discard(ownerID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[ownerID]
	if !ok {
		return ErrNotStaged
	}
	if index < 0 || index >= len(sess.records) {
		return fmt.Errorf("staged record index %d out of range", index)
	}
	sess.records = append(sess.records[:index], sess.records[index+1:]...)
	if len(sess.records) == 0 {
		delete(s.sessions, ownerID)
	}
	return nil
}

// Commit writes the staged records as purchases in one batch and ends
// the session. With no session it is a no-op returning zero. When no
// card was assigned the owner's first listed card is used; importing
// with no registered card at all fails with ErrNoCard and keeps the
// session intact. Committed purchases start at installment 1 and get
// the default category; the duplicate gate deliberately does not apply
// to bulk imports.
func (s *ImportService) Commit(ctx context.Context, ownerID string) (int, error) {
	s.mu.Lock()
	sess, ok := s.sessions[ownerID]
	if !ok || len(sess.records) == 0 {
		delete(s.sessions, ownerID)
		s.mu.Unlock()
		return 0, nil
	}
	records := make([]StagedRecord, len(sess.records))
	copy(records, sess.records)
	cardID := sess.cardID
	responsibleID := sess.responsibleID
	s.mu.Unlock()

	if cardID == "" {
		cards, err := s.cards.ListCards(ctx, ownerID)
		if err != nil {
			return 0, fmt.Errorf("list cards: %w", err)
		}
		if len(cards) == 0 {
			return 0, ErrNoCard
		}
		cardID = cards[0].ID
	}

	purchases := make([]core.Purchase, 0, len(records))
	for _, r := range records {
		purchases = append(purchases, core.Purchase{
			CardID:             cardID,
			Item:               r.Item,
			Amount:             r.Amount,
			PurchaseDate:       r.PurchaseDate,
			Installments:       r.Installments,
			CurrentInstallment: 1,
			ResponsibleID:      responsibleID,
			Category:           core.DefaultCategory,
		})
	}

	if err := s.purchases.AddPurchases(ctx, ownerID, purchases); err != nil {
		return 0, fmt.Errorf("add imported purchases: %w", err)
	}

	s.mu.Lock()
	delete(s.sessions, ownerID)
	s.mu.Unlock()

	slog.InfoContext(ctx, "Committed import batch",
		"owner_id", ownerID,
		"card_id", cardID,
		"count", len(purchases))
	return len(purchases), nil
}

// Cancel drops the owner's staged session, if any.
func (s *ImportService) Cancel(ownerID string) {
	s.mu.Lock()
	delete(s.sessions, ownerID)
	s.mu.Unlock()
}
