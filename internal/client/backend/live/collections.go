package live

import (
	"context"
	"encoding/json"

	"storefront/internal/client/backend/rest"
	"storefront/internal/client/collection"
	"storefront/internal/domain/shop"
	wstypes "storefront/internal/domain/websocket"
	xerrors "storefront/internal/pkg/errors"
)

// Cart mutates over REST and follows cart snapshots over the feed.
type Cart struct {
	*rest.CartAPI
	feed *Feed
}

func NewCart(api *rest.CartAPI, feed *Feed) *Cart {
	return &Cart{CartAPI: api, feed: feed}
}

func (c *Cart) Subscribe(ctx context.Context, ownerID string, onSnapshot func([]shop.LineItem), onError func(error)) (collection.Subscription, error) {
	return subscribe(ctx, c.feed, ownerID, wstypes.ChannelCart, onSnapshot, onError)
}

type Wishlist struct {
	*rest.WishlistAPI
	feed *Feed
}

func NewWishlist(api *rest.WishlistAPI, feed *Feed) *Wishlist {
	return &Wishlist{WishlistAPI: api, feed: feed}
}

func (w *Wishlist) Subscribe(ctx context.Context, ownerID string, onSnapshot func([]shop.LineItem), onError func(error)) (collection.Subscription, error) {
	return subscribe(ctx, w.feed, ownerID, wstypes.ChannelWishlist, onSnapshot, onError)
}

type Orders struct {
	*rest.OrdersAPI
	feed *Feed
}

func NewOrders(api *rest.OrdersAPI, feed *Feed) *Orders {
	return &Orders{OrdersAPI: api, feed: feed}
}

func (o *Orders) Subscribe(ctx context.Context, ownerID string, onSnapshot func([]shop.Order), onError func(error)) (collection.Subscription, error) {
	return subscribe(ctx, o.feed, ownerID, wstypes.ChannelOrders, onSnapshot, onError)
}

func subscribe[T any](ctx context.Context, feed *Feed, ownerID string, channel wstypes.ChannelType, onSnapshot func([]T), onError func(error)) (collection.Subscription, error) {
	sub, err := feed.Subscribe(ctx, ownerID, channel,
		func(raw json.RawMessage) {
			items := []T{}
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &items); err != nil {
					onError(&xerrors.Error{Kind: xerrors.KindRejected, Message: "malformed " + string(channel) + " snapshot", Err: err})
					return
				}
			}
			if items == nil {
				items = []T{}
			}
			onSnapshot(items)
		},
		onError,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
