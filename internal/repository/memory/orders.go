// internal/repository/memory/orders.go
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain/shop"
	xerrors "storefront/internal/pkg/errors"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]shop.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]shop.Order)}
}

func (r *OrderRepository) Create(_ context.Context, o *shop.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[o.ID]; exists {
		return xerrors.ErrDuplicateEntry
	}
	r.orders[o.ID] = *o
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id string) (*shop.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return &o, nil
}

func (r *OrderRepository) ListByOwner(_ context.Context, ownerID string) ([]shop.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []shop.Order{}
	for _, o := range r.orders {
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id string, status shop.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return nil
}
