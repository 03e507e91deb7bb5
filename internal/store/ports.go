// Package store defines the persistence ports the backends implement.
//
// Every operation is scoped to one owner; callers must not assume a
// consistent listing order across backends and should re-sort before
// display when order matters.
package store

import (
	"context"
	"errors"

	"economize/internal/core"
)

// ErrNotFound is returned when an id does not exist in the owner's
// collection.
var ErrNotFound = errors.New("not found")

type (
	CardStore interface {
		ListCards(ctx context.Context, ownerID string) ([]core.Card, error)
		// AddCard assigns a fresh id and returns the stored card.
		AddCard(ctx context.Context, ownerID string, c core.Card) (core.Card, error)
		DeleteCard(ctx context.Context, ownerID, id string) error
	}

	PurchaseStore interface {
		ListPurchases(ctx context.Context, ownerID string) ([]core.Purchase, error)
		AddPurchase(ctx context.Context, ownerID string, p core.Purchase) (core.Purchase, error)
		// AddPurchases applies a batch insert, atomically where the
		// backend natively supports it.
		AddPurchases(ctx context.Context, ownerID string, ps []core.Purchase) error
		// UpdatePurchase applies a partial update. Two concurrent
		// updates race; last write wins.
		UpdatePurchase(ctx context.Context, ownerID, id string, patch core.PurchasePatch) error
		DeletePurchase(ctx context.Context, ownerID, id string) error
		DeletePurchases(ctx context.Context, ownerID string, ids []string) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
		AddCategory(ctx context.Context, ownerID string, c core.Category) (core.Category, error)
		DeleteCategory(ctx context.Context, ownerID, id string) error
	}

	ResponsibleStore interface {
		ListResponsibles(ctx context.Context, ownerID string) ([]core.Responsible, error)
		AddResponsible(ctx context.Context, ownerID string, r core.Responsible) (core.Responsible, error)
		DeleteResponsible(ctx context.Context, ownerID, id string) error
	}

	CycleStore interface {
		ListCycles(ctx context.Context, ownerID string) ([]core.CardCycle, error)
		// SaveCycle upserts by the (card, year, month) composite key.
		SaveCycle(ctx context.Context, ownerID string, cc core.CardCycle) error
	}

	// Seeder initializes default categories and responsibles for a new
	// owner. Must be idempotent: a second call adds nothing.
	Seeder interface {
		EnsureDefaults(ctx context.Context, ownerID string) error
	}
)
