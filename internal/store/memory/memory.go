// Package memory implements the persistence ports on in-process lists,
// optionally snapshotted to plain JSON array files under fixed
// namespaced keys in a data directory.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"economize/internal/core"
	"economize/internal/store"
)

// Fixed storage keys, one JSON array file per collection and owner.
const (
	keyCards        = "economize_cards"
	keyPurchases    = "economize_purchases"
	keyResponsibles = "economize_responsibles"
	keyCategories   = "economize_categories"
	keyCycles       = "economize_cycles"
)

type ownerData struct {
	cards        []core.Card
	purchases    []core.Purchase
	responsibles []core.Responsible
	categories   []core.Category
	cycles       []core.CardCycle
}

// Store keeps each owner's five collections in insertion order. When
// constructed with a data directory, every mutation is written through
// to disk best-effort.
type Store struct {
	mu      sync.Mutex
	dataDir string
	owners  map[string]*ownerData
}

// New returns a purely in-memory store.
func New() *Store {
	return &Store{owners: make(map[string]*ownerData)}
}

// NewFromDir returns a store that loads existing snapshots from dir and
// writes mutations back to it.
func NewFromDir(dir string) *Store {
	return &Store{dataDir: dir, owners: make(map[string]*ownerData)}
}

// owner returns the owner's data, loading snapshots on first access.
// Caller must hold s.mu.
func (s *Store) owner(ownerID string) *ownerData {
	if d, ok := s.owners[ownerID]; ok {
		return d
	}
	d := &ownerData{}
	if s.dataDir != "" {
		loadFile(s.ownerPath(ownerID, keyCards), &d.cards)
		loadFile(s.ownerPath(ownerID, keyPurchases), &d.purchases)
		loadFile(s.ownerPath(ownerID, keyResponsibles), &d.responsibles)
		loadFile(s.ownerPath(ownerID, keyCategories), &d.categories)
		loadFile(s.ownerPath(ownerID, keyCycles), &d.cycles)
	}
	s.owners[ownerID] = d
	return d
}

func (s *Store) ownerPath(ownerID, key string) string {
	return filepath.Join(s.dataDir, ownerID, key+".json")
}

func loadFile(path string, out any) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Warn("Failed to decode snapshot, starting empty", "path", path, "error", err)
	}
}

// save writes one collection back to disk. Failures are logged and
// swallowed; the in-memory state stays authoritative. Caller must hold
// s.mu.
func (s *Store) save(ownerID, key string, v any) {
	if s.dataDir == "" {
		return
	}
	path := s.ownerPath(ownerID, key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		slog.Warn("Failed to create snapshot directory", "path", path, "error", err)
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to encode snapshot", "key", key, "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		slog.Warn("Failed to write snapshot", "path", path, "error", err)
	}
}

func newID() string { return uuid.NewString() }

// EnsureDefaults implements store.Seeder. Seeding only runs when the
// collection key has never been created for the owner, so deleting all
// seeded entries later does not resurrect them.
func (s *Store) EnsureDefaults(_ context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.owner(ownerID)
	if d.categories == nil {
		d.categories = []core.Category{}
		for _, c := range core.DefaultCategories() {
			c.ID = newID()
			d.categories = append(d.categories, c)
		}
		s.save(ownerID, keyCategories, d.categories)
	}
	if d.responsibles == nil {
		d.responsibles = []core.Responsible{}
		for _, r := range core.DefaultResponsibles() {
			r.ID = newID()
			d.responsibles = append(d.responsibles, r)
		}
		s.save(ownerID, keyResponsibles, d.responsibles)
	}
	return nil
}

func (s *Store) ListCards(_ context.Context, ownerID string) ([]core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Card(nil), s.owner(ownerID).cards...), nil
}

func (s *Store) AddCard(_ context.Context, ownerID string, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.owner(ownerID)
	c.ID = newID()
	c.OwnerID = ownerID
	d.cards = append(d.cards, c)
	s.save(ownerID, keyCards, d.cards)
	return c, nil
}

func (s *Store) DeleteCard(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.owner(ownerID)
	for i, c := range d.cards {
		if c.ID == id {
			d.cards = append(d.cards[:i], d.cards[i+1:]...)
			s.save(ownerID, keyCards, d.cards)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListPurchases(_ context.Context, ownerID string) ([]core.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Purchase(nil), s.owner(ownerID).purchases...), nil
}

func (s *Store) AddPurchase(_ context.Context, ownerID string, p core.Purchase) (core.Purchase, error) {
	if err := p.Validate(); err != nil {
		return core.Purchase{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.owner(ownerID)
	p.ID = newID()
	p.OwnerID = ownerID
	d.purchases = append(d.purchases, p)
	s.save(ownerID, keyPurchases, d.purchases)
	return p, nil
}

func (s *Store) AddPurchases(_ context.Context, ownerID string, ps []core.Purchase) error {
	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("purchase %q: %w", p.Item, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.owner(ownerID)
	for _, p := range ps {
		p.ID = newID()
		p.OwnerID = ownerID
		d.purchases = append(d.purchases, p)
	}
	s.save(ownerID, keyPurchases, d.purchases)
	return nil
}

func (s *Store) UpdatePurchase(_ context.Context, ownerID, id string, patch core.PurchasePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.owner(ownerID)
	for i := range d.purchases {
		if d.purchases[i].ID != id {
			continue
		}
		updated := d.purchases[i]
		patch.Apply(&updated)
		if err := updated.Validate(); err != nil {
			return err
		}
		d.purchases[i] = updated
		s.save(ownerID, keyPurchases, d.purchases)
		return nil
	}
	return store.ErrNotFound
}

func (s *Store) DeletePurchase(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.owner(ownerID)
	for i, p := range d.purchases {
		if p.ID == id {
			d.purchases = append(d.purchases[:i], d.purchases[i+1:]...)
			s.save(ownerID, keyPurchases, d.purchases)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) DeletePurchases(_ context.Context, ownerID string, ids []string) error {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.owner(ownerID)
	kept := d.purchases[:0]
	for _, p := range d.purchases {
		if _, ok := drop[p.ID]; !ok {
			kept = append(kept, p)
		}
	}
	d.purchases = kept
	s.save(ownerID, keyPurchases, d.purchases)
	return nil
}

func (s *Store) ListCategories(_ context.Context, ownerID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.owner(ownerID).categories...), nil
}

func (s *Store) AddCategory(_ context.Context, ownerID string, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.owner(ownerID)
	c.ID = newID()
	d.categories = append(d.categories, c)
	s.save(ownerID, keyCategories, d.categories)
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.owner(ownerID)
	for i, c := range d.categories {
		if c.ID == id {
			d.categories = append(d.categories[:i], d.categories[i+1:]...)
			s.save(ownerID, keyCategories, d.categories)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListResponsibles(_ context.Context, ownerID string) ([]core.Responsible, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Responsible(nil), s.owner(ownerID).responsibles...), nil
}

func (s *Store) AddResponsible(_ context.Context, ownerID string, r core.Responsible) (core.Responsible, error) {
	if err := r.Validate(); err != nil {
		return core.Responsible{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.owner(ownerID)
	r.ID = newID()
	d.responsibles = append(d.responsibles, r)
	s.save(ownerID, keyResponsibles, d.responsibles)
	return r, nil
}

func (s *Store) DeleteResponsible(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.owner(ownerID)
	for i, r := range d.responsibles {
		if r.ID == id {
			d.responsibles = append(d.responsibles[:i], d.responsibles[i+1:]...)
			s.save(ownerID, keyResponsibles, d.responsibles)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListCycles(_ context.Context, ownerID string) ([]core.CardCycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.CardCycle(nil), s.owner(ownerID).cycles...), nil
}

func (s *Store) SaveCycle(_ context.Context, ownerID string, cc core.CardCycle) error {
	if err := cc.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.owner(ownerID)
	cc.ID = cycleID(cc)
	for i, existing := range d.cycles {
		if existing.CardID == cc.CardID && existing.Year == cc.Year && existing.Month == cc.Month {
			d.cycles[i] = cc
			s.save(ownerID, keyCycles, d.cycles)
			return nil
		}
	}
	d.cycles = append(d.cycles, cc)
	s.save(ownerID, keyCycles, d.cycles)
	return nil
}

// cycleID builds the composite cycle key: cardId-YYYY-MM.
func cycleID(cc core.CardCycle) string {
	return fmt.Sprintf("%s-%04d-%02d", cc.CardID, cc.Year, cc.Month)
}
