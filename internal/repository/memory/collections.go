// internal/repository/memory/collections.go
package memory

import (
	"context"
	"sync"

	"storefront/internal/domain/shop"
	xerrors "storefront/internal/pkg/errors"
)

// itemLists holds one ordered item list per owner.
type itemLists struct {
	mu    sync.RWMutex
	lists map[string][]shop.LineItem
}

func newItemLists() itemLists {
	return itemLists{lists: make(map[string][]shop.LineItem)}
}

func (l *itemLists) get(ownerID string) []shop.LineItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]shop.LineItem, len(l.lists[ownerID]))
	copy(out, l.lists[ownerID])
	return out
}

func (l *itemLists) index(ownerID, itemID string) int {
	for i, it := range l.lists[ownerID] {
		if it.ID == itemID {
			return i
		}
	}
	return -1
}

func (l *itemLists) remove(ownerID, itemID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(ownerID, itemID)
	if i < 0 {
		return xerrors.ErrNotFound
	}
	items := l.lists[ownerID]
	l.lists[ownerID] = append(items[:i:i], items[i+1:]...)
	return nil
}

type CartRepository struct {
	itemLists
}

func NewCartRepository() *CartRepository {
	return &CartRepository{itemLists: newItemLists()}
}

func (r *CartRepository) GetItems(_ context.Context, ownerID string) ([]shop.LineItem, error) {
	return r.get(ownerID), nil
}

func (r *CartRepository) AddItem(_ context.Context, ownerID string, item shop.LineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.index(ownerID, item.ID); i >= 0 {
		r.lists[ownerID][i].Quantity += item.Quantity
		return nil
	}
	r.lists[ownerID] = append(r.lists[ownerID], item)
	return nil
}

func (r *CartRepository) SetQuantity(_ context.Context, ownerID, itemID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(ownerID, itemID)
	if i < 0 {
		return xerrors.ErrNotFound
	}
	r.lists[ownerID][i].Quantity = quantity
	return nil
}

func (r *CartRepository) RemoveItem(_ context.Context, ownerID, itemID string) error {
	return r.remove(ownerID, itemID)
}

func (r *CartRepository) Clear(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lists, ownerID)
	return nil
}

type WishlistRepository struct {
	itemLists
}

func NewWishlistRepository() *WishlistRepository {
	return &WishlistRepository{itemLists: newItemLists()}
}

func (r *WishlistRepository) GetItems(_ context.Context, ownerID string) ([]shop.LineItem, error) {
	return r.get(ownerID), nil
}

func (r *WishlistRepository) AddItem(_ context.Context, ownerID string, item shop.LineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index(ownerID, item.ID) >= 0 {
		return nil
	}
	item.Quantity = 0
	r.lists[ownerID] = append(r.lists[ownerID], item)
	return nil
}

func (r *WishlistRepository) RemoveItem(_ context.Context, ownerID, itemID string) error {
	return r.remove(ownerID, itemID)
}
