package collection

import (
	"context"
	"strings"

	"storefront/internal/domain/shop"
	xerrors "storefront/internal/pkg/errors"

	"go.uber.org/zap"
)

// CartBackend mutates the signed-in identity's cart. Mutations return the
// cart as the server stored it, or nil to have it re-fetched.
type CartBackend interface {
	Fetcher[shop.LineItem]
	AddItem(ctx context.Context, item shop.LineItem) ([]shop.LineItem, error)
	SetQuantity(ctx context.Context, itemID string, quantity int) ([]shop.LineItem, error)
	RemoveItem(ctx context.Context, itemID string) ([]shop.LineItem, error)
	Clear(ctx context.Context) ([]shop.LineItem, error)
}

type Cart struct {
	*Hook[shop.LineItem]
	api CartBackend
}

func NewCart(ids IdentitySource, api CartBackend, logger *zap.Logger) *Cart {
	return &Cart{Hook: NewHook[shop.LineItem]("cart", ids, api, logger), api: api}
}

// Add puts item in the cart. Adding an id already present increments its
// quantity on the server. A missing quantity means one.
func (c *Cart) Add(ctx context.Context, item shop.LineItem) error {
	if err := validateItem(item); err != nil {
		return err
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	return c.mutate(ctx, func(ctx context.Context) ([]shop.LineItem, error) {
		return c.api.AddItem(ctx, item)
	})
}

// Update sets the quantity of a line. A quantity of zero or less removes it.
func (c *Cart) Update(ctx context.Context, itemID string, quantity int) error {
	if quantity <= 0 {
		return c.Remove(ctx, itemID)
	}
	if strings.TrimSpace(itemID) == "" {
		return xerrors.Validation("item id is required")
	}
	return c.mutate(ctx, func(ctx context.Context) ([]shop.LineItem, error) {
		return c.api.SetQuantity(ctx, itemID, quantity)
	})
}

func (c *Cart) Remove(ctx context.Context, itemID string) error {
	if strings.TrimSpace(itemID) == "" {
		return xerrors.Validation("item id is required")
	}
	return c.mutate(ctx, func(ctx context.Context) ([]shop.LineItem, error) {
		return c.api.RemoveItem(ctx, itemID)
	})
}

func (c *Cart) Clear(ctx context.Context) error {
	return c.mutate(ctx, c.api.Clear)
}

func (c *Cart) Total() float64 { return Total(c.Items()) }

func (c *Cart) ItemCount() int { return ItemCount(c.Items()) }

func (c *Cart) Contains(itemID string) bool { return Contains(c.Items(), itemID) }

func validateItem(item shop.LineItem) error {
	if strings.TrimSpace(item.ID) == "" {
		return xerrors.Validation("item id is required")
	}
	if item.Price < 0 {
		return xerrors.Validation("price cannot be negative")
	}
	return nil
}
