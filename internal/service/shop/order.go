// internal/service/shop/order.go
package shop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain/shop"
	wstypes "storefront/internal/domain/websocket"
	xerrors "storefront/internal/pkg/errors"

	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type OrderService struct {
	orders    shop.OrderRepository
	cart      shop.CartRepository
	publisher wstypes.Publisher
	logger    *zap.Logger
}

func NewOrderService(orders shop.OrderRepository, cart shop.CartRepository, publisher wstypes.Publisher, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{orders: orders, cart: cart, publisher: publisher, logger: logger}
}

// ListOrders returns the owner's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, ownerID string) ([]shop.Order, error) {
	orders, err := s.orders.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []shop.Order{}
	}
	return orders, nil
}

// GetOrder returns one order. Orders of other owners are reported as missing.
func (s *OrderService) GetOrder(ctx context.Context, ownerID, orderID string) (*shop.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.OwnerID != ownerID {
		return nil, xerrors.ErrNotFound
	}
	return o, nil
}

// CreateOrder places an order for the given items, or for the whole cart when
// none are given. Ordering the cart empties it.
func (s *OrderService) CreateOrder(ctx context.Context, ownerID string, req *shop.CreateOrderRequest) (*shop.Order, error) {
	items := req.Items
	fromCart := len(items) == 0
	if fromCart {
		var err error
		if items, err = s.cart.GetItems(ctx, ownerID); err != nil {
			return nil, fmt.Errorf("failed to load cart: %w", err)
		}
	}

	var (
		total float64
		ids   = make(pq.StringArray, 0, len(items))
		lines = make([]shop.LineItem, 0, len(items))
	)
	for _, it := range items {
		if it.ID == "" || it.Quantity <= 0 {
			continue
		}
		total += it.Subtotal()
		ids = append(ids, it.ID)
		lines = append(lines, it)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: order has no items", xerrors.ErrInvalidInput)
	}

	now := time.Now().UTC()
	o := &shop.Order{
		ID:                ulid.Make().String(),
		OwnerID:           ownerID,
		Items:             lines,
		Total:             total,
		Status:            shop.OrderPending,
		ProductIDs:        ids,
		ShippingAddressID: req.ShippingAddressID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		s.logger.Error("failed to create order", zap.Error(err))
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("owner_id", ownerID),
		zap.Float64("total", total),
	)

	if fromCart {
		if err := s.cart.Clear(ctx, ownerID); err != nil {
			s.logger.Error("failed to clear cart after order", zap.Error(err))
		} else if s.publisher != nil {
			s.publisher.Publish(ownerID, wstypes.ChannelCart, wstypes.EventTypeCartSnapshot, []shop.LineItem{})
		}
	}
	s.publish(ctx, ownerID)
	return o, nil
}

// UpdateStatus lets an owner cancel a pending order. Other transitions belong
// to fulfilment and are refused here.
func (s *OrderService) UpdateStatus(ctx context.Context, ownerID, orderID string, next shop.OrderStatus) (*shop.Order, error) {
	o, err := s.GetOrder(ctx, ownerID, orderID)
	if err != nil {
		return nil, err
	}
	if next != shop.OrderCancelled || !o.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", xerrors.ErrInvalidTransition, o.Status, next)
	}

	if err := s.orders.UpdateStatus(ctx, orderID, next); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	o.Status = next
	o.UpdatedAt = time.Now().UTC()

	s.publish(ctx, ownerID)
	return o, nil
}

func (s *OrderService) publish(ctx context.Context, ownerID string) {
	if s.publisher == nil {
		return
	}
	orders, err := s.ListOrders(ctx, ownerID)
	if err != nil {
		s.logger.Warn("failed to load orders for snapshot", zap.Error(err))
		return
	}
	s.publisher.Publish(ownerID, wstypes.ChannelOrders, wstypes.EventTypeOrdersSnapshot, orders)
}
