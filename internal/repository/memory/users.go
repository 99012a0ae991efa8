// internal/repository/memory/users.go
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain/auth"
	xerrors "storefront/internal/pkg/errors"
)

// UserRepository keeps users in process memory. Used when no DATABASE_URL is configured.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*auth.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*auth.User)}
}

func (r *UserRepository) Create(_ context.Context, u *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return xerrors.ErrDuplicateEntry
		}
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	if err == xerrors.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *UserRepository) update(id string, fn func(u *auth.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) UpdateProfile(_ context.Context, in *auth.User) error {
	return r.update(in.ID, func(u *auth.User) {
		u.FirstName = in.FirstName
		u.LastName = in.LastName
		u.Mobile = in.Mobile
		u.MobileVerified = in.MobileVerified
	})
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.update(id, func(u *auth.User) { u.PasswordHash = passwordHash })
}

func (r *UserRepository) MarkEmailVerified(_ context.Context, id string) error {
	return r.update(id, func(u *auth.User) {
		u.EmailVerified = true
		if u.Status == auth.StatusPendingVerification {
			u.Status = auth.StatusActive
		}
	})
}

func (r *UserRepository) MarkMobileVerified(_ context.Context, id string) error {
	return r.update(id, func(u *auth.User) { u.MobileVerified = true })
}

func (r *UserRepository) UpdateLastLogin(_ context.Context, id string) error {
	return r.update(id, func(u *auth.User) {
		u.LastLogin.Time = time.Now().UTC()
		u.LastLogin.Valid = true
	})
}
