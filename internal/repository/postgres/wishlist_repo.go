// internal/repository/postgres/wishlist_repo.go
package postgres

import (
	"context"
	"fmt"

	"storefront/internal/domain/shop"
)

type WishlistRepository struct {
	db Querier
}

func NewWishlistRepository(db Querier) *WishlistRepository {
	return &WishlistRepository{db: db}
}

func (r *WishlistRepository) GetItems(ctx context.Context, ownerID string) ([]shop.LineItem, error) {
	query := `
		SELECT item_id, name, price, image, size, color, added_at
		FROM wishlist_items
		WHERE owner_id = $1
		ORDER BY added_at, item_id
	`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	defer rows.Close()

	items := []shop.LineItem{}
	for rows.Next() {
		var it shop.LineItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Price, &it.Image, &it.Size, &it.Color, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *WishlistRepository) AddItem(ctx context.Context, ownerID string, item shop.LineItem) error {
	query := `
		INSERT INTO wishlist_items (owner_id, item_id, name, price, image, size, color, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner_id, item_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, ownerID, item.ID, item.Name, item.Price, item.Image, item.Size, item.Color, item.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return nil
}

func (r *WishlistRepository) RemoveItem(ctx context.Context, ownerID, itemID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM wishlist_items WHERE owner_id = $1 AND item_id = $2`, ownerID, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	return mustAffect(tag)
}
