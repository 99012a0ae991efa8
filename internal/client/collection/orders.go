package collection

import (
	"context"
	"strings"

	"storefront/internal/domain/shop"
	xerrors "storefront/internal/pkg/errors"

	"go.uber.org/zap"
)

type OrdersBackend interface {
	Fetcher[shop.Order]
	Create(ctx context.Context, req shop.CreateOrderRequest) (*shop.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status shop.OrderStatus) (*shop.Order, error)
}

type Orders struct {
	*Hook[shop.Order]
	api OrdersBackend
}

func NewOrders(ids IdentitySource, api OrdersBackend, logger *zap.Logger) *Orders {
	return &Orders{Hook: NewHook[shop.Order]("orders", ids, api, logger), api: api}
}

// Create places an order from req.Items, or from the server-side cart when
// req.Items is empty. The order list is re-fetched afterwards.
func (o *Orders) Create(ctx context.Context, req shop.CreateOrderRequest) (*shop.Order, error) {
	for _, it := range req.Items {
		if err := validateItem(it); err != nil {
			return nil, err
		}
	}

	var created *shop.Order
	err := o.mutate(ctx, func(ctx context.Context) ([]shop.Order, error) {
		order, err := o.api.Create(ctx, req)
		created = order
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Cancel cancels an order that has not shipped yet.
func (o *Orders) Cancel(ctx context.Context, orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return xerrors.Validation("order id is required")
	}
	return o.mutate(ctx, func(ctx context.Context) ([]shop.Order, error) {
		_, err := o.api.UpdateStatus(ctx, orderID, shop.OrderCancelled)
		return nil, err
	})
}

func (o *Orders) Count() int { return len(o.Items()) }

func (o *Orders) Find(orderID string) (shop.Order, bool) { return Find(o.Items(), orderID) }
