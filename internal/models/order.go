package models

import (
	"math"
	"time"
)

// OrderStatus represents the lifecycle state of an order. Paid,
// cancelled and void are terminal: no transition ever leaves them.
type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderServed    OrderStatus = "served"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
	OrderVoid      OrderStatus = "void"
)

// Terminal reports whether the status permits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderPaid || s == OrderCancelled || s == OrderVoid
}

// ItemStatus represents the kitchen lifecycle state of an order item.
// Cancellation is a status, never a row delete, so totals and audit
// history stay reconstructible.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
	ItemServed    ItemStatus = "served"
	ItemCancelled ItemStatus = "cancelled"
)

// Order is one table occupation or one takeaway ticket. TableID is nil
// for takeaway. The monetary fields are derived from the item set and
// never hand-edited.
type Order struct {
	ID         int64       `json:"id" db:"id"`
	Number     string      `json:"order_number" db:"number"`
	TableID    *int64      `json:"table_id,omitempty" db:"table_id"`
	ServerID   int64       `json:"server_id" db:"server_id"`
	GuestCount int         `json:"guest_count" db:"guest_count"`
	Status     OrderStatus `json:"status" db:"status"`
	Subtotal   float64     `json:"subtotal" db:"subtotal"`
	Tax        float64     `json:"tax" db:"tax"`
	Discount   float64     `json:"discount" db:"discount"`
	Total      float64     `json:"total" db:"total"`
	Notes      string      `json:"notes,omitempty" db:"notes"`
	OpenedAt   time.Time   `json:"opened_at" db:"opened_at"`
	ClosedAt   *time.Time  `json:"closed_at,omitempty" db:"closed_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// Takeaway reports whether the order has no table bound to it.
func (o *Order) Takeaway() bool {
	return o.TableID == nil
}

// OrderItem is a single line of an order. UnitPrice is captured at add
// time; later catalog price changes never alter it.
type OrderItem struct {
	ID        int64      `json:"id" db:"id"`
	OrderID   int64      `json:"order_id" db:"order_id"`
	ProductID int64      `json:"product_id" db:"product_id"`
	Quantity  int        `json:"quantity" db:"quantity"`
	UnitPrice float64    `json:"unit_price" db:"unit_price"`
	Discount  float64    `json:"discount" db:"discount"`
	Subtotal  float64    `json:"subtotal" db:"subtotal"`
	Status    ItemStatus `json:"status" db:"status"`
	Notes     string     `json:"notes,omitempty" db:"notes"`
	AddedBy   int64      `json:"added_by" db:"added_by"`
	AddedAt   time.Time  `json:"added_at" db:"added_at"`
	ServedAt  *time.Time `json:"served_at,omitempty" db:"served_at"`
}

// Cancelled reports whether the item was soft-deleted.
func (i *OrderItem) Cancelled() bool {
	return i.Status == ItemCancelled
}

// RoundMoney rounds a monetary amount to cents. All derived amounts go
// through this so repeated recomputation cannot accumulate drift.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
