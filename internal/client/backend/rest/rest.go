// Package rest implements the collection backends over the storefront REST API.
package rest

import (
	"context"
	"net/http"
	"net/url"

	"storefront/internal/client/remote"
	"storefront/internal/domain/shop"
	xerrors "storefront/internal/pkg/errors"
)

// Doer is satisfied by *remote.Client.
type Doer interface {
	Do(ctx context.Context, method, path string, body, out any, opts ...remote.RequestOption) error
}

type CartAPI struct {
	api Doer
}

func NewCartAPI(api Doer) *CartAPI {
	return &CartAPI{api: api}
}

// Fetch loads the signed-in identity's cart and refuses one that belongs to
// anyone but ownerID.
func (c *CartAPI) Fetch(ctx context.Context, ownerID string) ([]shop.LineItem, error) {
	var cart shop.Cart
	if err := c.api.Do(ctx, http.MethodGet, "/cart", nil, &cart); err != nil {
		return nil, err
	}
	if err := checkOwner(cart.OwnerID, ownerID); err != nil {
		return nil, err
	}
	return items(cart.Items), nil
}

func (c *CartAPI) AddItem(ctx context.Context, item shop.LineItem) ([]shop.LineItem, error) {
	req := shop.AddItemRequest{
		ID:       item.ID,
		Name:     item.Name,
		Price:    item.Price,
		Quantity: item.Quantity,
		Image:    item.Image,
		Size:     item.Size,
		Color:    item.Color,
	}
	return c.send(ctx, http.MethodPost, "/cart/items", req)
}

func (c *CartAPI) SetQuantity(ctx context.Context, itemID string, quantity int) ([]shop.LineItem, error) {
	return c.send(ctx, http.MethodPut, "/cart/items/"+url.PathEscape(itemID), shop.UpdateQuantityRequest{Quantity: quantity})
}

func (c *CartAPI) RemoveItem(ctx context.Context, itemID string) ([]shop.LineItem, error) {
	return c.send(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(itemID), nil)
}

func (c *CartAPI) Clear(ctx context.Context) ([]shop.LineItem, error) {
	return c.send(ctx, http.MethodDelete, "/cart", nil)
}

func (c *CartAPI) send(ctx context.Context, method, path string, body any) ([]shop.LineItem, error) {
	var cart shop.Cart
	if err := c.api.Do(ctx, method, path, body, &cart); err != nil {
		return nil, err
	}
	return items(cart.Items), nil
}

type WishlistAPI struct {
	api Doer
}

func NewWishlistAPI(api Doer) *WishlistAPI {
	return &WishlistAPI{api: api}
}

func (w *WishlistAPI) Fetch(ctx context.Context, ownerID string) ([]shop.LineItem, error) {
	var list shop.Wishlist
	if err := w.api.Do(ctx, http.MethodGet, "/wishlist", nil, &list); err != nil {
		return nil, err
	}
	if err := checkOwner(list.OwnerID, ownerID); err != nil {
		return nil, err
	}
	return items(list.Items), nil
}

func (w *WishlistAPI) AddItem(ctx context.Context, item shop.LineItem) ([]shop.LineItem, error) {
	req := shop.AddItemRequest{ID: item.ID, Name: item.Name, Price: item.Price, Image: item.Image, Size: item.Size, Color: item.Color}
	return w.send(ctx, http.MethodPost, "/wishlist/items", req)
}

func (w *WishlistAPI) RemoveItem(ctx context.Context, itemID string) ([]shop.LineItem, error) {
	return w.send(ctx, http.MethodDelete, "/wishlist/items/"+url.PathEscape(itemID), nil)
}

func (w *WishlistAPI) send(ctx context.Context, method, path string, body any) ([]shop.LineItem, error) {
	var list shop.Wishlist
	if err := w.api.Do(ctx, method, path, body, &list); err != nil {
		return nil, err
	}
	return items(list.Items), nil
}

type OrdersAPI struct {
	api Doer
}

func NewOrdersAPI(api Doer) *OrdersAPI {
	return &OrdersAPI{api: api}
}

func (o *OrdersAPI) Fetch(ctx context.Context, ownerID string) ([]shop.Order, error) {
	var orders []shop.Order
	if err := o.api.Do(ctx, http.MethodGet, "/orders", nil, &orders); err != nil {
		return nil, err
	}
	for _, ord := range orders {
		if err := checkOwner(ord.OwnerID, ownerID); err != nil {
			return nil, err
		}
	}
	if orders == nil {
		orders = []shop.Order{}
	}
	return orders, nil
}

func (o *OrdersAPI) Get(ctx context.Context, orderID string) (*shop.Order, error) {
	var order shop.Order
	if err := o.api.Do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (o *OrdersAPI) Create(ctx context.Context, req shop.CreateOrderRequest) (*shop.Order, error) {
	var order shop.Order
	if err := o.api.Do(ctx, http.MethodPost, "/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (o *OrdersAPI) UpdateStatus(ctx context.Context, orderID string, status shop.OrderStatus) (*shop.Order, error) {
	var order shop.Order
	req := shop.UpdateOrderStatusRequest{Status: status}
	if err := o.api.Do(ctx, http.MethodPut, "/orders/"+url.PathEscape(orderID)+"/status", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// items never returns nil; a nil collection asks the hook to re-fetch.
func items(in []shop.LineItem) []shop.LineItem {
	if in == nil {
		return []shop.LineItem{}
	}
	return in
}

func checkOwner(got, want string) error {
	if got != "" && want != "" && got != want {
		return xerrors.New(xerrors.KindRejected, "", "collection belongs to another account")
	}
	return nil
}
