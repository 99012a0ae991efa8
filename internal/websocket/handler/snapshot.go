// internal/websocket/handler/snapshot.go
package handler

import (
	"context"
	"fmt"

	wstypes "storefront/internal/domain/websocket"
	shopsvc "storefront/internal/service/shop"
	ws "storefront/internal/websocket"
)

// SnapshotHandler answers a subscribe with the current contents of each
// requested collection, so a client never waits for the next mutation.
type SnapshotHandler struct {
	cart     *shopsvc.CartService
	wishlist *shopsvc.WishlistService
	orders   *shopsvc.OrderService
}

func NewSnapshotHandler(cart *shopsvc.CartService, wishlist *shopsvc.WishlistService, orders *shopsvc.OrderService) *SnapshotHandler {
	return &SnapshotHandler{cart: cart, wishlist: wishlist, orders: orders}
}

// SupportedEvents returns events this handler supports
func (h *SnapshotHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeSubscribe}
}

// HandleMessage sends one snapshot per requested channel.
func (h *SnapshotHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	var req wstypes.SubscribeRequest
	if err := msg.Decode(&req); err != nil {
		return fmt.Errorf("invalid subscribe payload: %w", err)
	}

	owner := client.GetIdentityID()
	for _, channel := range req.Channels {
		data, err := h.snapshot(ctx, owner, channel)
		if err != nil {
			return err
		}
		if data == nil {
			continue
		}
		client.SendMessage(wstypes.NewMessage(channel.SnapshotEvent(), data))
	}
	return nil
}

func (h *SnapshotHandler) snapshot(ctx context.Context, owner string, channel wstypes.ChannelType) (interface{}, error) {
	switch channel {
	case wstypes.ChannelCart:
		cart, err := h.cart.GetCart(ctx, owner)
		if err != nil {
			return nil, err
		}
		return cart.Items, nil
	case wstypes.ChannelWishlist:
		w, err := h.wishlist.GetWishlist(ctx, owner)
		if err != nil {
			return nil, err
		}
		return w.Items, nil
	case wstypes.ChannelOrders:
		return h.orders.ListOrders(ctx, owner)
	}
	return nil, nil
}
