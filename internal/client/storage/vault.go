package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/domain/auth"

	"go.uber.org/zap"
)

// ErrCorruptProfile is returned when the stored profile snapshot cannot be decoded.
// The snapshot has already been removed when it is returned.
var ErrCorruptProfile = errors.New("stored profile snapshot is corrupt")

// Vault is the single writer of the persisted credentials. Every write has
// reached the underlying store before the method returns.
type Vault struct {
	store  Store
	mu     sync.Mutex
	logger *zap.Logger
}

func NewVault(store Store, logger *zap.Logger) *Vault {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Vault{store: store, logger: logger}
}

// Tokens returns the persisted pair. ok is false when no access token is stored.
func (v *Vault) Tokens(ctx context.Context) (auth.TokenPair, bool, error) {
	access, ok, err := v.store.Get(ctx, KeyAuthToken)
	if err != nil || !ok || access == "" {
		return auth.TokenPair{}, false, err
	}
	refresh, _, err := v.store.Get(ctx, KeyRefreshToken)
	if err != nil {
		return auth.TokenPair{}, false, err
	}
	return auth.TokenPair{AccessToken: access, RefreshToken: refresh}, true, nil
}

// AccessToken returns the persisted access token or "".
func (v *Vault) AccessToken(ctx context.Context) string {
	tok, ok, err := v.store.Get(ctx, KeyAuthToken)
	if err != nil || !ok {
		return ""
	}
	return tok
}

func (v *Vault) SaveTokens(ctx context.Context, pair auth.TokenPair) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.saveTokens(ctx, pair)
}

func (v *Vault) saveTokens(ctx context.Context, pair auth.TokenPair) error {
	if err := v.store.Set(ctx, KeyAuthToken, pair.AccessToken); err != nil {
		return fmt.Errorf("failed to persist access token: %w", err)
	}
	if pair.RefreshToken == "" {
		return v.store.Delete(ctx, KeyRefreshToken)
	}
	if err := v.store.Set(ctx, KeyRefreshToken, pair.RefreshToken); err != nil {
		return fmt.Errorf("failed to persist refresh token: %w", err)
	}
	return nil
}

// Profile returns the persisted identity snapshot. A snapshot that cannot be
// decoded is deleted and ErrCorruptProfile is returned.
func (v *Vault) Profile(ctx context.Context) (*auth.Identity, bool, error) {
	raw, ok, err := v.store.Get(ctx, KeyUserData)
	if err != nil || !ok {
		return nil, false, err
	}

	var id auth.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil || id.ID == "" {
		v.logger.Warn("discarding corrupt profile snapshot", zap.Error(err))
		v.mu.Lock()
		defer v.mu.Unlock()
		if err := v.store.Delete(ctx, KeyUserData); err != nil {
			return nil, false, err
		}
		return nil, false, ErrCorruptProfile
	}
	return &id, true, nil
}

func (v *Vault) SaveProfile(ctx context.Context, id auth.Identity) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.saveProfile(ctx, id)
}

func (v *Vault) saveProfile(ctx context.Context, id auth.Identity) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := v.store.Set(ctx, KeyUserData, string(raw)); err != nil {
		return fmt.Errorf("failed to persist profile: %w", err)
	}
	return nil
}

// SaveSession persists a token pair together with its identity.
func (v *Vault) SaveSession(ctx context.Context, pair auth.TokenPair, id auth.Identity) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.saveTokens(ctx, pair); err != nil {
		return err
	}
	return v.saveProfile(ctx, id)
}

// Clear removes the tokens and the profile snapshot.
func (v *Vault) Clear(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.store.Delete(ctx, KeyAuthToken, KeyRefreshToken, KeyUserData)
}
