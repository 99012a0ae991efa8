// internal/repository/memory/addresses.go
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain/address"
	xerrors "storefront/internal/pkg/errors"
)

type AddressRepository struct {
	mu   sync.RWMutex
	byID map[string]address.Address
}

func NewAddressRepository() *AddressRepository {
	return &AddressRepository{byID: make(map[string]address.Address)}
}

func (r *AddressRepository) Create(_ context.Context, a *address.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[a.ID] = *a
	return nil
}

func (r *AddressRepository) FindByID(_ context.Context, id string) (*address.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return &a, nil
}

func (r *AddressRepository) ListByOwner(_ context.Context, ownerID string) ([]address.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []address.Address{}
	for _, a := range r.byID {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *AddressRepository) Update(_ context.Context, a *address.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[a.ID]
	if !ok {
		return xerrors.ErrNotFound
	}
	a.IsDefault = cur.IsDefault
	a.UpdatedAt = time.Now().UTC()
	r.byID[a.ID] = *a
	return nil
}

func (r *AddressRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return xerrors.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *AddressRepository) SetDefault(_ context.Context, ownerID, id string, t address.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.byID[id]
	if !ok || target.OwnerID != ownerID {
		return xerrors.ErrNotFound
	}
	for k, a := range r.byID {
		if a.OwnerID == ownerID && a.AddressType == t && a.IsDefault {
			a.IsDefault = false
			r.byID[k] = a
		}
	}
	target = r.byID[id]
	target.IsDefault = true
	target.UpdatedAt = time.Now().UTC()
	r.byID[id] = target
	return nil
}

func (r *AddressRepository) FindDefault(_ context.Context, ownerID string, t address.Type) (*address.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.byID {
		if a.OwnerID == ownerID && a.AddressType == t && a.IsDefault {
			return &a, nil
		}
	}
	return nil, xerrors.ErrNotFound
}
