// Package firestore implements the persistence ports on Cloud
// Firestore, with one subcollection per entity type under
// users/{owner}. Purchases list in purchase-date descending order; the
// other collections are unordered. Batch writes use Firestore's native
// atomic write batches.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"economize/internal/core"
	"economize/internal/store"
)

const (
	colCards        = "cards"
	colPurchases    = "purchases"
	colResponsibles = "responsibles"
	colCategories   = "categories"
	colCycles       = "cycles"
)

type Store struct {
	client *firestore.Client
}

// New connects to the given project. credentialsFile may be empty to
// use application default credentials.
func New(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) col(ownerID, name string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(ownerID).Collection(name)
}

type cardDoc struct {
	OwnerID        string    `firestore:"userId"`
	Name           string    `firestore:"name"`
	LastFourDigits string    `firestore:"lastFourDigits"`
	PaymentDay     int       `firestore:"paymentDay"`
	Color          string    `firestore:"color"`
	CreatedAt      time.Time `firestore:"createdAt,serverTimestamp"`
}

type purchaseDoc struct {
	OwnerID            string    `firestore:"userId"`
	CardID             string    `firestore:"cardId"`
	Item               string    `firestore:"item"`
	AmountCents        int64     `firestore:"amountCents"`
	PurchaseDate       string    `firestore:"purchaseDate"`
	Installments       int       `firestore:"installments"`
	CurrentInstallment int       `firestore:"currentInstallment"`
	ResponsibleID      string    `firestore:"responsibleId"`
	Category           string    `firestore:"category"`
	Notes              string    `firestore:"notes"`
	CreatedAt          time.Time `firestore:"createdAt,serverTimestamp"`
}

type responsibleDoc struct {
	Name      string    `firestore:"name"`
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
}

type categoryDoc struct {
	Name      string    `firestore:"name"`
	Color     string    `firestore:"color"`
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
}

type cycleDoc struct {
	CardID    string    `firestore:"cardId"`
	Year      int       `firestore:"year"`
	Month     int       `firestore:"month"`
	StartDate string    `firestore:"startDate"`
	EndDate   string    `firestore:"endDate"`
	UpdatedAt time.Time `firestore:"updatedAt,serverTimestamp"`
}

func newPurchaseDoc(ownerID string, p core.Purchase) purchaseDoc {
	return purchaseDoc{
		OwnerID:            ownerID,
		CardID:             p.CardID,
		Item:               p.Item,
		AmountCents:        p.Amount.Cents,
		PurchaseDate:       p.PurchaseDate.ISO(),
		Installments:       p.Installments,
		CurrentInstallment: p.CurrentInstallment,
		ResponsibleID:      p.ResponsibleID,
		Category:           p.Category,
		Notes:              p.Notes,
	}
}

func (d purchaseDoc) toPurchase(id string) (core.Purchase, error) {
	date, err := core.ParseDate(d.PurchaseDate)
	if err != nil {
		return core.Purchase{}, fmt.Errorf("purchase %s has invalid date %q: %w", id, d.PurchaseDate, err)
	}
	return core.Purchase{
		ID:                 id,
		OwnerID:            d.OwnerID,
		CardID:             d.CardID,
		Item:               d.Item,
		Amount:             core.Money{Cents: d.AmountCents},
		PurchaseDate:       date,
		Installments:       d.Installments,
		CurrentInstallment: d.CurrentInstallment,
		ResponsibleID:      d.ResponsibleID,
		Category:           d.Category,
		Notes:              d.Notes,
	}, nil
}

// EnsureDefaults implements store.Seeder, seeding categories and
// responsibles concurrently the way a fresh owner is initialized.
// A collection that already has any document is left untouched.
func (s *Store) EnsureDefaults(ctx context.Context, ownerID string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.seedCategories(gctx, ownerID) })
	g.Go(func() error { return s.seedResponsibles(gctx, ownerID) })
	return g.Wait()
}

func (s *Store) seedCategories(ctx context.Context, ownerID string) error {
	existing, err := s.col(ownerID, colCategories).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("check existing categories: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	batch := s.client.Batch()
	for _, c := range core.DefaultCategories() {
		batch.Set(s.col(ownerID, colCategories).NewDoc(), categoryDoc{Name: c.Name, Color: c.Color})
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	return nil
}

func (s *Store) seedResponsibles(ctx context.Context, ownerID string) error {
	existing, err := s.col(ownerID, colResponsibles).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("check existing responsibles: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	batch := s.client.Batch()
	for _, r := range core.DefaultResponsibles() {
		batch.Set(s.col(ownerID, colResponsibles).NewDoc(), responsibleDoc{Name: r.Name})
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("seed responsibles: %w", err)
	}
	return nil
}

func (s *Store) ListCards(ctx context.Context, ownerID string) ([]core.Card, error) {
	iter := s.col(ownerID, colCards).Documents(ctx)
	defer iter.Stop()

	var out []core.Card
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate cards: %w", err)
		}
		var d cardDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode card %s: %w", snap.Ref.ID, err)
		}
		out = append(out, core.Card{
			ID:             snap.Ref.ID,
			OwnerID:        ownerID,
			Name:           d.Name,
			LastFourDigits: d.LastFourDigits,
			PaymentDay:     d.PaymentDay,
			Color:          d.Color,
		})
	}
	return out, nil
}

func (s *Store) AddCard(ctx context.Context, ownerID string, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	ref, _, err := s.col(ownerID, colCards).Add(ctx, cardDoc{
		OwnerID:        ownerID,
		Name:           c.Name,
		LastFourDigits: c.LastFourDigits,
		PaymentDay:     c.PaymentDay,
		Color:          c.Color,
	})
	if err != nil {
		return core.Card{}, fmt.Errorf("add card: %w", err)
	}
	c.ID = ref.ID
	c.OwnerID = ownerID
	return c, nil
}

func (s *Store) DeleteCard(ctx context.Context, ownerID, id string) error {
	return s.deleteDoc(ctx, ownerID, colCards, id)
}

// ListPurchases returns purchases ordered by purchase date descending,
// the order the remote layout defines for this collection.
func (s *Store) ListPurchases(ctx context.Context, ownerID string) ([]core.Purchase, error) {
	iter := s.col(ownerID, colPurchases).OrderBy("purchaseDate", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var out []core.Purchase
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate purchases: %w", err)
		}
		var d purchaseDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode purchase %s: %w", snap.Ref.ID, err)
		}
		p, err := d.toPurchase(snap.Ref.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) AddPurchase(ctx context.Context, ownerID string, p core.Purchase) (core.Purchase, error) {
	if err := p.Validate(); err != nil {
		return core.Purchase{}, err
	}
	ref, _, err := s.col(ownerID, colPurchases).Add(ctx, newPurchaseDoc(ownerID, p))
	if err != nil {
		return core.Purchase{}, fmt.Errorf("add purchase: %w", err)
	}
	p.ID = ref.ID
	p.OwnerID = ownerID
	return p, nil
}

func (s *Store) AddPurchases(ctx context.Context, ownerID string, ps []core.Purchase) error {
	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("purchase %q: %w", p.Item, err)
		}
	}
	batch := s.client.Batch()
	for _, p := range ps {
		batch.Set(s.col(ownerID, colPurchases).NewDoc(), newPurchaseDoc(ownerID, p))
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("commit purchase batch: %w", err)
	}
	return nil
}

func (s *Store) UpdatePurchase(ctx context.Context, ownerID, id string, patch core.PurchasePatch) error {
	updates := []firestore.Update{{Path: "updatedAt", Value: firestore.ServerTimestamp}}
	if patch.CardID != nil {
		updates = append(updates, firestore.Update{Path: "cardId", Value: *patch.CardID})
	}
	if patch.Item != nil {
		updates = append(updates, firestore.Update{Path: "item", Value: *patch.Item})
	}
	if patch.Amount != nil {
		updates = append(updates, firestore.Update{Path: "amountCents", Value: patch.Amount.Cents})
	}
	if patch.PurchaseDate != nil {
		updates = append(updates, firestore.Update{Path: "purchaseDate", Value: patch.PurchaseDate.ISO()})
	}
	if patch.Installments != nil {
		updates = append(updates, firestore.Update{Path: "installments", Value: *patch.Installments})
	}
	if patch.CurrentInstallment != nil {
		updates = append(updates, firestore.Update{Path: "currentInstallment", Value: *patch.CurrentInstallment})
	}
	if patch.ResponsibleID != nil {
		updates = append(updates, firestore.Update{Path: "responsibleId", Value: *patch.ResponsibleID})
	}
	if patch.Category != nil {
		updates = append(updates, firestore.Update{Path: "category", Value: *patch.Category})
	}
	if patch.Notes != nil {
		updates = append(updates, firestore.Update{Path: "notes", Value: *patch.Notes})
	}

	_, err := s.col(ownerID, colPurchases).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update purchase: %w", err)
	}
	return nil
}

func (s *Store) DeletePurchase(ctx context.Context, ownerID, id string) error {
	return s.deleteDoc(ctx, ownerID, colPurchases, id)
}

func (s *Store) DeletePurchases(ctx context.Context, ownerID string, ids []string) error {
	batch := s.client.Batch()
	for _, id := range ids {
		batch.Delete(s.col(ownerID, colPurchases).Doc(id))
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete batch: %w", err)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	iter := s.col(ownerID, colCategories).Documents(ctx)
	defer iter.Stop()

	var out []core.Category
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate categories: %w", err)
		}
		var d categoryDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode category %s: %w", snap.Ref.ID, err)
		}
		out = append(out, core.Category{ID: snap.Ref.ID, Name: d.Name, Color: d.Color})
	}
	return out, nil
}

func (s *Store) AddCategory(ctx context.Context, ownerID string, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	ref, _, err := s.col(ownerID, colCategories).Add(ctx, categoryDoc{Name: c.Name, Color: c.Color})
	if err != nil {
		return core.Category{}, fmt.Errorf("add category: %w", err)
	}
	c.ID = ref.ID
	return c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, ownerID, id string) error {
	return s.deleteDoc(ctx, ownerID, colCategories, id)
}

func (s *Store) ListResponsibles(ctx context.Context, ownerID string) ([]core.Responsible, error) {
	iter := s.col(ownerID, colResponsibles).Documents(ctx)
	defer iter.Stop()

	var out []core.Responsible
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate responsibles: %w", err)
		}
		var d responsibleDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode responsible %s: %w", snap.Ref.ID, err)
		}
		out = append(out, core.Responsible{ID: snap.Ref.ID, Name: d.Name})
	}
	return out, nil
}

func (s *Store) AddResponsible(ctx context.Context, ownerID string, r core.Responsible) (core.Responsible, error) {
	if err := r.Validate(); err != nil {
		return core.Responsible{}, err
	}
	ref, _, err := s.col(ownerID, colResponsibles).Add(ctx, responsibleDoc{Name: r.Name})
	if err != nil {
		return core.Responsible{}, fmt.Errorf("add responsible: %w", err)
	}
	r.ID = ref.ID
	return r, nil
}

func (s *Store) DeleteResponsible(ctx context.Context, ownerID, id string) error {
	return s.deleteDoc(ctx, ownerID, colResponsibles, id)
}

func (s *Store) ListCycles(ctx context.Context, ownerID string) ([]core.CardCycle, error) {
	iter := s.col(ownerID, colCycles).Documents(ctx)
	defer iter.Stop()

	var out []core.CardCycle
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate cycles: %w", err)
		}
		var d cycleDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode cycle %s: %w", snap.Ref.ID, err)
		}
		start, err := core.ParseDate(d.StartDate)
		if err != nil {
			return nil, fmt.Errorf("cycle %s has invalid start date %q: %w", snap.Ref.ID, d.StartDate, err)
		}
		end, err := core.ParseDate(d.EndDate)
		if err != nil {
			return nil, fmt.Errorf("cycle %s has invalid end date %q: %w", snap.Ref.ID, d.EndDate, err)
		}
		out = append(out, core.CardCycle{
			ID:        snap.Ref.ID,
			CardID:    d.CardID,
			Year:      d.Year,
			Month:     d.Month,
			StartDate: start,
			EndDate:   end,
		})
	}
	return out, nil
}

// SaveCycle upserts using the composite document id cardId-YYYY-MM.
func (s *Store) SaveCycle(ctx context.Context, ownerID string, cc core.CardCycle) error {
	if err := cc.Validate(); err != nil {
		return err
	}
	id := fmt.Sprintf("%s-%04d-%02d", cc.CardID, cc.Year, cc.Month)
	_, err := s.col(ownerID, colCycles).Doc(id).Set(ctx, cycleDoc{
		CardID:    cc.CardID,
		Year:      cc.Year,
		Month:     cc.Month,
		StartDate: cc.StartDate.ISO(),
		EndDate:   cc.EndDate.ISO(),
	})
	if err != nil {
		return fmt.Errorf("save cycle: %w", err)
	}
	return nil
}

func (s *Store) deleteDoc(ctx context.Context, ownerID, col, id string) error {
	// Firestore deletes are idempotent and do not report missing docs;
	// check existence first so callers get a consistent not-found.
	snap, err := s.col(ownerID, col).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load %s %s: %w", col, id, err)
	}
	if _, err := snap.Ref.Delete(ctx); err != nil {
		return fmt.Errorf("delete %s %s: %w", col, id, err)
	}
	return nil
}
