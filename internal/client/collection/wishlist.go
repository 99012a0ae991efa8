package collection

import (
	"context"
	"strings"

	"storefront/internal/domain/shop"
	xerrors "storefront/internal/pkg/errors"

	"go.uber.org/zap"
)

type WishlistBackend interface {
	Fetcher[shop.LineItem]
	AddItem(ctx context.Context, item shop.LineItem) ([]shop.LineItem, error)
	RemoveItem(ctx context.Context, itemID string) ([]shop.LineItem, error)
}

type Wishlist struct {
	*Hook[shop.LineItem]
	api WishlistBackend
}

func NewWishlist(ids IdentitySource, api WishlistBackend, logger *zap.Logger) *Wishlist {
	return &Wishlist{Hook: NewHook[shop.LineItem]("wishlist", ids, api, logger), api: api}
}

// Add saves item. Saving an item twice keeps one entry.
func (w *Wishlist) Add(ctx context.Context, item shop.LineItem) error {
	if err := validateItem(item); err != nil {
		return err
	}
	item.Quantity = 0
	return w.mutate(ctx, func(ctx context.Context) ([]shop.LineItem, error) {
		return w.api.AddItem(ctx, item)
	})
}

func (w *Wishlist) Remove(ctx context.Context, itemID string) error {
	if strings.TrimSpace(itemID) == "" {
		return xerrors.Validation("item id is required")
	}
	return w.mutate(ctx, func(ctx context.Context) ([]shop.LineItem, error) {
		return w.api.RemoveItem(ctx, itemID)
	})
}

func (w *Wishlist) Contains(itemID string) bool { return Contains(w.Items(), itemID) }

func (w *Wishlist) Count() int { return len(w.Items()) }
