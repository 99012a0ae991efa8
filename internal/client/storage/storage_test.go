package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"storefront/internal/domain/auth"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	sqlite, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
		"redis":  NewRedisStore(client, "storefront:client:"),
	}
}

func TestStores(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "k", "v1"))
			require.NoError(t, s.Set(ctx, "k", "v2"))
			v, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v2", v)

			require.NoError(t, s.Delete(ctx, "k", "never-set"))
			_, ok, err = s.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestVault(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	v := NewVault(store, nil)

	_, ok, err := v.Tokens(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	pair := auth.TokenPair{AccessToken: "a", RefreshToken: "r"}
	id := auth.Identity{ID: "u1", Email: "asha@example.com"}
	require.NoError(t, v.SaveSession(ctx, pair, id))

	got, ok, err := v.Tokens(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, pair, got)

	p, ok, err := v.Profile(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "u1", p.ID)

	t.Run("corrupt snapshot is deleted", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, KeyUserData, "{not json"))
		_, ok, err := v.Profile(ctx)
		assert.False(t, ok)
		assert.True(t, errors.Is(err, ErrCorruptProfile))

		_, present, _ := store.Get(ctx, KeyUserData)
		assert.False(t, present)
	})

	require.NoError(t, v.Clear(ctx))
	_, ok, err = v.Tokens(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
