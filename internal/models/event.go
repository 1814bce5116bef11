package models

import "time"

// Product lifecycle event types.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// ProductEvent is published after a product has been changed.
type ProductEvent struct {
	Type       string    `json:"type"`
	ProductID  uint      `json:"productId"`
	Product    *Product  `json:"product,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
