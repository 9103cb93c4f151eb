package models

import "time"

// CatalogItem represents a product as served by the catalog.
// A discount is present when DiscountedPrice is non-nil; it must be
// lower than Price.
type CatalogItem struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Slug            string    `db:"slug" json:"slug"`
	Description     string    `db:"description" json:"description"`
	Price           float64   `db:"price" json:"price"`
	DiscountPct     *float64  `db:"discount_pct" json:"discount_pct,omitempty"`
	DiscountedPrice *float64  `db:"discounted_price" json:"discounted_price,omitempty"`
	ImageURL        string    `db:"image_url" json:"image_url,omitempty"`
	Stock           int       `db:"stock" json:"stock"`
	Active          bool      `db:"active" json:"active"`
	BrandID         string    `db:"brand_id" json:"brand_id,omitempty"`
	CategoryID      string    `db:"category_id" json:"category_id,omitempty"`
	CategoryTypeID  string    `db:"category_type_id" json:"category_type_id,omitempty"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// EffectivePrice returns the discounted price when one applies,
// otherwise the base price. Subtotals must always be derived from
// this, never from a cached price.
func (c CatalogItem) EffectivePrice() float64 {
	if c.DiscountedPrice != nil {
		return *c.DiscountedPrice
	}
	return c.Price
}

// CartLine is one row of the cart. Item is a snapshot taken when the
// line was last touched; a discount change on the catalog side does
// not alter the line until the next mutation re-snapshots it.
type CartLine struct {
	Item     CatalogItem `json:"item"`
	Quantity int         `json:"quantity"`
	Subtotal float64     `json:"subtotal"`
}

// Cart holds at most one line per item ID, in insertion order.
// TotalItems and TotalPrice are always recomputed from the full line
// list, never adjusted incrementally.
type Cart struct {
	Lines      []CartLine `json:"lines"`
	TotalItems int        `json:"total_items"`
	TotalPrice float64    `json:"total_price"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// LineIndex returns the index of the line for productID, or -1.
func (c *Cart) LineIndex(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].Item.ID == productID {
			return i
		}
	}
	return -1
}

// Recompute rebuilds every line subtotal and both aggregates from the
// line list.
func (c *Cart) Recompute() {
	totalItems := 0
	totalPrice := 0.0
	for i := range c.Lines {
		line := &c.Lines[i]
		line.Subtotal = float64(line.Quantity) * line.Item.EffectivePrice()
		totalItems += line.Quantity
		totalPrice += line.Subtotal
	}
	c.TotalItems = totalItems
	c.TotalPrice = totalPrice
}

// Clone returns a deep copy, handed to subscribers so they never see
// later mutations.
func (c *Cart) Clone() Cart {
	out := *c
	out.Lines = make([]CartLine, len(c.Lines))
	copy(out.Lines, c.Lines)
	return out
}

// CheckoutSummary is derived from the cart on every read and never
// stored.
type CheckoutSummary struct {
	ItemCount   int     `json:"item_count"`
	Subtotal    float64 `json:"subtotal"`
	DeliveryFee float64 `json:"delivery_fee"`
	Total       float64 `json:"total"`
}

// CheckoutContext is the session-scoped handoff between checkout
// steps: written just before navigating to the next step, read by the
// following one.
type CheckoutContext struct {
	PaymentMethod   string `json:"payment_method,omitempty"`
	DeliveryMethod  string `json:"delivery_method,omitempty"`
	DeliveryAddress string `json:"delivery_address,omitempty"`
}

// Order as reported by the order service.
type Order struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	Items          []OrderItem `json:"items"`
	DeliveryMethod string      `json:"delivery_method"`
	PaymentMethod  string      `json:"payment_method"`
	DeliveryFee    float64     `json:"delivery_fee"`
	TotalAmount    float64     `json:"total_amount"`
	Status         OrderStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
}

// OrderItem is one product line inside an order.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// TrackingSnapshot is the last known tracking state, cached in session
// storage so the tracking page stays usable when the order service is
// unreachable.
type TrackingSnapshot struct {
	OrderID   string      `json:"order_id"`
	Status    OrderStatus `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
}
