package shop

import "context"

type CartRepository interface {
	GetItems(ctx context.Context, ownerID string) ([]LineItem, error)
	// AddItem inserts the item or increments the quantity of an existing line.
	AddItem(ctx context.Context, ownerID string, item LineItem) error
	SetQuantity(ctx context.Context, ownerID, itemID string, quantity int) error
	RemoveItem(ctx context.Context, ownerID, itemID string) error
	Clear(ctx context.Context, ownerID string) error
}

type WishlistRepository interface {
	GetItems(ctx context.Context, ownerID string) ([]LineItem, error)
	// AddItem is a no-op when the item is already present.
	AddItem(ctx context.Context, ownerID string, item LineItem) error
	RemoveItem(ctx context.Context, ownerID, itemID string) error
}

type OrderRepository interface {
	Create(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status OrderStatus) error
}
