// Package storage persists the client's credentials and profile snapshot.
package storage

import "context"

// Keys under which the vault persists its state.
const (
	KeyAuthToken    = "authToken"
	KeyRefreshToken = "refreshToken"
	KeyUserData     = "userData"
)

// Store is a small string key-value store. Implementations must be safe for
// concurrent use and must have committed a write before Set or Delete returns.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}
