package address

import "context"

type Repository interface {
	Create(ctx context.Context, a *Address) error
	FindByID(ctx context.Context, id string) (*Address, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Address, error)
	Update(ctx context.Context, a *Address) error
	Delete(ctx context.Context, id string) error
	// SetDefault marks id as the owner's default for its type and clears the flag on the others.
	SetDefault(ctx context.Context, ownerID, id string, t Type) error
	FindDefault(ctx context.Context, ownerID string, t Type) (*Address, error)
}
