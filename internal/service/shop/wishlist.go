// internal/service/shop/wishlist.go
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

type WishlistService struct {
	repo      shop.WishlistRepository
	publisher wstypes.Publisher
	logger    *zap.Logger
}

func NewWishlistService(repo shop.WishlistRepository, publisher wstypes.Publisher, logger *zap.Logger) *WishlistService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WishlistService{repo: repo, publisher: publisher, logger: logger}
}

func (s *WishlistService) GetWishlist(ctx context.Context, ownerID string) (*shop.Wishlist, error) {
	items, err := s.repo.GetItems(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wishlist: %w", err)
	}
	if items == nil {
		items = []shop.LineItem{}
	}
	return &shop.Wishlist{OwnerID: ownerID, Items: items, UpdatedAt: time.Now().UTC()}, nil
}

// AddItem saves a product. Adding one that is already saved changes nothing.
func (s *WishlistService) AddItem(ctx context.Context, ownerID string, req *shop.AddItemRequest) (*shop.Wishlist, error) {
	if strings.TrimSpace(req.ID) == "" {
		return nil, fmt.Errorf("%w: item id is required", xerrors.ErrInvalidInput)
	}

	item := req.LineItem()
	item.Quantity = 0
	item.AddedAt = time.Now().UTC()
	if err := s.repo.AddItem(ctx, ownerID, item); err != nil {
		return nil, fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return s.publish(ctx, ownerID)
}

func (s *WishlistService) RemoveItem(ctx context.Context, ownerID, itemID string) (*shop.Wishlist, error) {
	if err := s.repo.RemoveItem(ctx, ownerID, itemID); err != nil {
		return nil, err
	}
	return s.publish(ctx, ownerID)
}

func (s *WishlistService) publish(ctx context.Context, ownerID string) (*shop.Wishlist, error) {
	w, err := s.GetWishlist(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.Publish(ownerID, wstypes.ChannelWishlist, wstypes.EventTypeWishlistSnapshot, w.Items)
	}
	return w, nil
}
