package models

import "time"

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeCartCleared        = "CART_CLEARED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published after the order service accepts a
// checkout submission
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	TotalAmount float64         `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent consumed from the order service; the push
// half of the authoritative tracking source
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID string      `json:"order_id"`
	UserID  string      `json:"user_id"`
	Status  OrderStatus `json:"status"`
}

// CartClearedEvent published when a cart is emptied after a
// successful order
type CartClearedEvent struct {
	BaseEvent
	UserID  string `json:"user_id"`
	OrderID string `json:"order_id"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}
