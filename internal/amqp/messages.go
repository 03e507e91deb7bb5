package amqp

import (
	"encoding/json"
	"time"
)

// Actions carried by purchase event messages.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// PurchaseEventMessage is a lightweight notification that one owner's
// purchase collection changed. Consumers that need the full record
// re-read it from the store.
type PurchaseEventMessage struct {
	OwnerID    string    `json:"ownerId"`
	PurchaseID string    `json:"purchaseId"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewPurchaseEventMessage creates a message stamped with the current
// time.
func NewPurchaseEventMessage(ownerID, purchaseID, action string) *PurchaseEventMessage {
	return &PurchaseEventMessage{
		OwnerID:    ownerID,
		PurchaseID: purchaseID,
		Action:     action,
		OccurredAt: time.Now().UTC(),
	}
}

// ToJSON serializes the message.
func (m *PurchaseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PurchaseEventMessageFromJSON deserializes a message.
func PurchaseEventMessageFromJSON(data []byte) (*PurchaseEventMessage, error) {
	var m PurchaseEventMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
