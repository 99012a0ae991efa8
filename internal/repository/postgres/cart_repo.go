// internal/repository/postgres/cart_repo.go
package postgres

import (
	"context"
	"fmt"

	"storefront/internal/domain/shop"
)

type CartRepository struct {
	db Querier
}

func NewCartRepository(db Querier) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) GetItems(ctx context.Context, ownerID string) ([]shop.LineItem, error) {
	query := `
		SELECT item_id, name, price, quantity, image, size, color, added_at
		FROM cart_items
		WHERE owner_id = $1
		ORDER BY added_at, item_id
	`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	defer rows.Close()

	items := []shop.LineItem{}
	for rows.Next() {
		var it shop.LineItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Price, &it.Quantity, &it.Image, &it.Size, &it.Color, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// AddItem inserts the line or adds to the existing quantity.
func (r *CartRepository) AddItem(ctx context.Context, ownerID string, item shop.LineItem) error {
	query := `
		INSERT INTO cart_items (owner_id, item_id, name, price, quantity, image, size, color, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (owner_id, item_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`
	_, err := r.db.Exec(ctx, query, ownerID, item.ID, item.Name, item.Price, item.Quantity,
		item.Image, item.Size, item.Color, item.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

func (r *CartRepository) SetQuantity(ctx context.Context, ownerID, itemID string, quantity int) error {
	tag, err := r.db.Exec(ctx, `UPDATE cart_items SET quantity = $1 WHERE owner_id = $2 AND item_id = $3`,
		quantity, ownerID, itemID)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return mustAffect(tag)
}

func (r *CartRepository) RemoveItem(ctx context.Context, ownerID, itemID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE owner_id = $1 AND item_id = $2`, ownerID, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return mustAffect(tag)
}

func (r *CartRepository) Clear(ctx context.Context, ownerID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE owner_id = $1`, ownerID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
