package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/domain/address"
	"storefront/internal/domain/auth"
	"storefront/internal/domain/shop"
	xerrors "storefront/internal/pkg/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestUserRepositoryCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns timestamps", func(t *testing.T) {
		mock := newMock(t)
		repo := NewUserRepository(mock)
		now := time.Now()

		mock.ExpectQuery("INSERT INTO users").
			WithArgs("u1", "a@b.co", "hash", "Asha", "", "", auth.StatusPendingVerification).
			WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		u := &auth.User{ID: "u1", Email: "a@b.co", PasswordHash: "hash", FirstName: "Asha", Status: auth.StatusPendingVerification}
		require.NoError(t, repo.Create(ctx, u))
		assert.Equal(t, now, u.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps unique violation", func(t *testing.T) {
		mock := newMock(t)
		repo := NewUserRepository(mock)

		mock.ExpectQuery("INSERT INTO users").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.Create(ctx, &auth.User{ID: "u1", Email: "a@b.co"})
		assert.True(t, errors.Is(err, xerrors.ErrDuplicateEntry))
	})
}

func TestUserRepositoryExistsByEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("a@b.co").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.ExistsByEmail(context.Background(), "a@b.co")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserRepositoryMarkEmailVerifiedMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectExec("UPDATE users").
		WithArgs(auth.StatusPendingVerification, auth.StatusActive, "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.MarkEmailVerified(context.Background(), "ghost")
	assert.True(t, errors.Is(err, xerrors.ErrNotFound))
}

func TestCartRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("get items", func(t *testing.T) {
		mock := newMock(t)
		repo := NewCartRepository(mock)
		added := time.Now()

		mock.ExpectQuery("SELECT item_id, name, price, quantity").
			WithArgs("u1").
			WillReturnRows(pgxmock.NewRows([]string{"item_id", "name", "price", "quantity", "image", "size", "color", "added_at"}).
				AddRow("1", "Tee", 212.0, 1, "", "M", "red", added).
				AddRow("2", "Jeans", 145.0, 2, "", "L", "blue", added))

		items, err := repo.GetItems(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, 2, items[1].Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("add increments on conflict", func(t *testing.T) {
		mock := newMock(t)
		repo := NewCartRepository(mock)
		added := time.Now()

		mock.ExpectExec("ON CONFLICT \\(owner_id, item_id\\)").
			WithArgs("u1", "1", "Tee", 212.0, 1, "", "", "", added).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.AddItem(ctx, "u1", shop.LineItem{ID: "1", Name: "Tee", Price: 212, Quantity: 1, AddedAt: added})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("set quantity on missing line", func(t *testing.T) {
		mock := newMock(t)
		repo := NewCartRepository(mock)

		mock.ExpectExec("UPDATE cart_items").
			WithArgs(3, "u1", "9").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.SetQuantity(ctx, "u1", "9", 3)
		assert.True(t, errors.Is(err, xerrors.ErrNotFound))
	})
}

func TestOrderRepositoryCreate(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectExec("INSERT INTO orders").
		WithArgs("o1", "u1", pgxmock.AnyArg(), 502.0, shop.OrderPending, pgxmock.AnyArg(), "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	now := time.Now()
	err := repo.Create(context.Background(), &shop.Order{
		ID: "o1", OwnerID: "u1", Total: 502, Status: shop.OrderPending,
		Items:      []shop.LineItem{{ID: "1", Price: 212, Quantity: 1}},
		ProductIDs: []string{"1"}, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepositorySetDefault(t *testing.T) {
	ctx := context.Background()

	t.Run("commits both updates", func(t *testing.T) {
		mock := newMock(t)
		repo := NewAddressRepository(mock)

		mock.ExpectBegin()
		mock.ExpectExec("SET is_default = FALSE").
			WithArgs("u1", address.TypeShipping).
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))
		mock.ExpectExec("SET is_default = TRUE").
			WithArgs("a1", "u1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.SetDefault(ctx, "u1", "a1", address.TypeShipping))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the address is not the owner's", func(t *testing.T) {
		mock := newMock(t)
		repo := NewAddressRepository(mock)

		mock.ExpectBegin()
		mock.ExpectExec("SET is_default = FALSE").
			WithArgs("u1", address.TypeShipping).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectExec("SET is_default = TRUE").
			WithArgs("a9", "u1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		err := repo.SetDefault(ctx, "u1", "a9", address.TypeShipping)
		assert.True(t, errors.Is(err, xerrors.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
