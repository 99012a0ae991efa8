// internal/service/shop/cart.go
package shop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/shop"
	wstypes "storefront/internal/domain/websocket"
	xerrors "storefront/internal/pkg/errors"

	"go.uber.org/zap"
)

type CartService struct {
	repo      shop.CartRepository
	publisher wstypes.Publisher
	logger    *zap.Logger
}

func NewCartService(repo shop.CartRepository, publisher wstypes.Publisher, logger *zap.Logger) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{repo: repo, publisher: publisher, logger: logger}
}

// GetCart returns the owner's cart.
func (s *CartService) GetCart(ctx context.Context, ownerID string) (*shop.Cart, error) {
	items, err := s.repo.GetItems(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if items == nil {
		items = []shop.LineItem{}
	}
	return &shop.Cart{OwnerID: ownerID, Items: items, UpdatedAt: time.Now().UTC()}, nil
}

// AddItem adds a product, incrementing the quantity when it is already in the cart.
func (s *CartService) AddItem(ctx context.Context, ownerID string, req *shop.AddItemRequest) (*shop.Cart, error) {
	if strings.TrimSpace(req.ID) == "" {
		return nil, fmt.Errorf("%w: item id is required", xerrors.ErrInvalidInput)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("%w: price cannot be negative", xerrors.ErrInvalidInput)
	}

	item := req.LineItem()
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	item.AddedAt = time.Now().UTC()

	if err := s.repo.AddItem(ctx, ownerID, item); err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	s.logger.Debug("cart item added", zap.String("owner_id", ownerID), zap.String("item_id", item.ID))
	return s.publish(ctx, ownerID)
}

// UpdateQuantity sets a line's quantity. A quantity of zero or less removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, ownerID, itemID string, quantity int) (*shop.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, ownerID, itemID)
	}
	if err := s.repo.SetQuantity(ctx, ownerID, itemID, quantity); err != nil {
		return nil, err
	}
	return s.publish(ctx, ownerID)
}

// RemoveItem drops a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, ownerID, itemID string) (*shop.Cart, error) {
	if err := s.repo.RemoveItem(ctx, ownerID, itemID); err != nil {
		return nil, err
	}
	return s.publish(ctx, ownerID)
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, ownerID string) (*shop.Cart, error) {
	if err := s.repo.Clear(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}
	return s.publish(ctx, ownerID)
}

// publish reloads the cart and pushes it to the owner's live connections.
func (s *CartService) publish(ctx context.Context, ownerID string) (*shop.Cart, error) {
	cart, err := s.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.Publish(ownerID, wstypes.ChannelCart, wstypes.EventTypeCartSnapshot, cart.Items)
	}
	return cart, nil
}
