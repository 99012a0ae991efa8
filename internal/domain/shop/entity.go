// internal/domain/shop/entity.go
package shop

import (
	"time"

	"github.com/lib/pq"
)

// LineItem is one product entry in a cart, wishlist or order.
// Price, name, image, size and color are carried through untouched by the sync layer.
type LineItem struct {
	ID       string    `json:"id" db:"item_id"`
	Name     string    `json:"name" db:"name"`
	Price    float64   `json:"price" db:"price"`
	Quantity int       `json:"quantity,omitempty" db:"quantity"`
	Image    string    `json:"image,omitempty" db:"image"`
	Size     string    `json:"size,omitempty" db:"size"`
	Color    string    `json:"color,omitempty" db:"color"`
	AddedAt  time.Time `json:"added_at" db:"added_at"`
}

// Key identifies the item inside its collection.
func (i LineItem) Key() string { return i.ID }

// Subtotal is price times quantity; non-positive quantities contribute nothing.
func (i LineItem) Subtotal() float64 {
	if i.Quantity <= 0 {
		return 0
	}
	return i.Price * float64(i.Quantity)
}

// Cart is the per-owner cart document.
type Cart struct {
	OwnerID   string     `json:"owner_id"`
	Items     []LineItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Wishlist is the per-owner wishlist document.
type Wishlist struct {
	OwnerID   string     `json:"owner_id"`
	Items     []LineItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	switch s {
	case OrderPending:
		return next == OrderConfirmed || next == OrderCancelled
	case OrderConfirmed:
		return next == OrderShipped || next == OrderCancelled
	case OrderShipped:
		return next == OrderDelivered
	}
	return false
}

// Order is a placed order with a snapshot of its line items.
type Order struct {
	ID                string         `json:"id" db:"id"`
	OwnerID           string         `json:"owner_id" db:"owner_id"`
	Items             []LineItem     `json:"items" db:"items"`
	Total             float64        `json:"total" db:"total"`
	Status            OrderStatus    `json:"status" db:"status"`
	ProductIDs        pq.StringArray `json:"product_ids" db:"product_ids"`
	ShippingAddressID string         `json:"shipping_address_id,omitempty" db:"shipping_address_id"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// Key identifies the order inside the owner's order list.
func (o Order) Key() string { return o.ID }
