package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"economize/internal/amqp"
	"economize/internal/core"
	"economize/internal/store"
)

// ErrDuplicate flags a purchase matching an existing one on amount,
// date and item. It is a confirmation gate, not a hard failure: callers
// may retry with force set.
var ErrDuplicate = errors.New("possible duplicate purchase")

// EventPublisher is the optional purchase event stream.
type EventPublisher interface {
	PublishPurchaseEvent(ctx context.Context, ownerID, purchaseID, action string) error
}

// PurchaseService orchestrates purchase writes: validation, the
// duplicate warning gate on single adds, and advisory event
// publishing.
type PurchaseService struct {
	purchases store.PurchaseStore
	events    EventPublisher
}

func NewPurchaseService(purchases store.PurchaseStore, events EventPublisher) *PurchaseService {
	return &PurchaseService{purchases: purchases, events: events}
}

// Create validates and stores one purchase. Unless force is set, a
// candidate matching an existing purchase returns ErrDuplicate and
// nothing is written.
func (s *PurchaseService) Create(ctx context.Context, ownerID string, p core.Purchase, force bool) (core.Purchase, error) {
	if err := p.Validate(); err != nil {
		return core.Purchase{}, err
	}

	if !force {
		existing, err := s.purchases.ListPurchases(ctx, ownerID)
		if err != nil {
			return core.Purchase{}, fmt.Errorf("list purchases for duplicate check: %w", err)
		}
		if core.IsDuplicate(existing, p) {
			return core.Purchase{}, ErrDuplicate
		}
	}

	saved, err := s.purchases.AddPurchase(ctx, ownerID, p)
	if err != nil {
		return core.Purchase{}, fmt.Errorf("add purchase: %w", err)
	}

	s.publish(ctx, ownerID, saved.ID, amqp.ActionCreated)
	return saved, nil
}

// Update applies a partial update. Concurrent updates race; last write
// wins.
func (s *PurchaseService) Update(ctx context.Context, ownerID, id string, patch core.PurchasePatch) error {
	if err := s.purchases.UpdatePurchase(ctx, ownerID, id, patch); err != nil {
		return err
	}
	s.publish(ctx, ownerID, id, amqp.ActionUpdated)
	return nil
}

func (s *PurchaseService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.purchases.DeletePurchase(ctx, ownerID, id); err != nil {
		return err
	}
	s.publish(ctx, ownerID, id, amqp.ActionDeleted)
	return nil
}

func (s *PurchaseService) DeleteBatch(ctx context.Context, ownerID string, ids []string) error {
	if err := s.purchases.DeletePurchases(ctx, ownerID, ids); err != nil {
		return err
	}
	for _, id := range ids {
		s.publish(ctx, ownerID, id, amqp.ActionDeleted)
	}
	return nil
}

// publish sends an advisory event; failures are logged, never
// surfaced, since the write already succeeded.
func (s *PurchaseService) publish(ctx context.Context, ownerID, purchaseID, action string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishPurchaseEvent(ctx, ownerID, purchaseID, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish purchase event",
			"error", err,
			"owner_id", ownerID,
			"purchase_id", purchaseID,
			"action", action)
	}
}
