package models

import "time"

// Order event types published to the notification pipeline.
const (
	EventOrderPlaced     = "order_placed"
	EventStatusChanged   = "order_status_changed"
	EventOrderRefunded   = "order_refunded"
	EventRefundCompleted = "refund_completed"
)

// OrderEvent is the fire-and-forget message published on every status
// transition and refund.
type OrderEvent struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	Status     string    `json:"status,omitempty"`
	Amount     int       `json:"amount,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ShipmentEvent is consumed from the fulfillment service (SQS) and drives the
// shipped / out-for-delivery / delivered transitions.
type ShipmentEvent struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
