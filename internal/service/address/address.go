// internal/service/address/address.go
package address

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain/address"
	xerrors "storefront/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type AddressService struct {
	repo   address.Repository
	logger *zap.Logger
}

func NewAddressService(repo address.Repository, logger *zap.Logger) *AddressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AddressService{repo: repo, logger: logger}
}

func (s *AddressService) ListAddresses(ctx context.Context, ownerID string) ([]address.Address, error) {
	list, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	if list == nil {
		list = []address.Address{}
	}
	return list, nil
}

// GetAddress returns an address owned by ownerID. Foreign addresses are reported as missing.
func (s *AddressService) GetAddress(ctx context.Context, ownerID, id string) (*address.Address, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.OwnerID != ownerID {
		return nil, xerrors.ErrNotFound
	}
	return a, nil
}

// CreateAddress stores a new address. The first address of a type becomes its default.
func (s *AddressService) CreateAddress(ctx context.Context, ownerID string, req *address.Request) (*address.Address, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	a := &address.Address{ID: ulid.Make().String(), OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	req.Apply(a)
	a.IsDefault = false

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}

	makeDefault := req.IsDefault
	if !makeDefault {
		_, err := s.repo.FindDefault(ctx, ownerID, a.AddressType)
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			makeDefault = true
		case err != nil:
			return nil, err
		}
	}
	if makeDefault {
		if err := s.repo.SetDefault(ctx, ownerID, a.ID, a.AddressType); err != nil {
			return nil, fmt.Errorf("failed to set default address: %w", err)
		}
		a.IsDefault = true
	}

	s.logger.Info("address created", zap.String("address_id", a.ID), zap.String("owner_id", ownerID))
	return a, nil
}

// UpdateAddress replaces the fields of an existing address.
func (s *AddressService) UpdateAddress(ctx context.Context, ownerID, id string, req *address.Request) (*address.Address, error) {
	a, err := s.GetAddress(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidInput, err)
	}

	wasDefault := a.IsDefault
	req.Apply(a)
	a.IsDefault = wasDefault
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to update address: %w", err)
	}

	if req.IsDefault && !wasDefault {
		if err := s.repo.SetDefault(ctx, ownerID, a.ID, a.AddressType); err != nil {
			return nil, fmt.Errorf("failed to set default address: %w", err)
		}
		a.IsDefault = true
	}
	return a, nil
}

// DeleteAddress removes an address. When it was the default, the oldest
// remaining address of the same type takes over.
func (s *AddressService) DeleteAddress(ctx context.Context, ownerID, id string) error {
	a, err := s.GetAddress(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	if !a.IsDefault {
		return nil
	}

	rest, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil
	}
	var next *address.Address
	for i := range rest {
		if rest[i].AddressType != a.AddressType {
			continue
		}
		if next == nil || rest[i].CreatedAt.Before(next.CreatedAt) {
			next = &rest[i]
		}
	}
	if next != nil {
		if err := s.repo.SetDefault(ctx, ownerID, next.ID, next.AddressType); err != nil {
			s.logger.Warn("failed to promote default address", zap.Error(err))
		}
	}
	return nil
}

// SetDefault makes id the owner's default address for its type.
func (s *AddressService) SetDefault(ctx context.Context, ownerID, id string) (*address.Address, error) {
	a, err := s.GetAddress(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetDefault(ctx, ownerID, id, a.AddressType); err != nil {
		return nil, err
	}
	a.IsDefault = true
	return a, nil
}

// GetDefault returns the owner's default address of type t.
func (s *AddressService) GetDefault(ctx context.Context, ownerID string, t address.Type) (*address.Address, error) {
	return s.repo.FindDefault(ctx, ownerID, t)
}
