// internal/repository/postgres/order_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/domain/shop"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

type OrderRepository struct {
	db Querier
}

func NewOrderRepository(db Querier) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, owner_id, items, total, status, product_ids, shipping_address_id, created_at, updated_at`

func scanOrder(row pgx.Row) (*shop.Order, error) {
	var (
		o        shop.Order
		itemsRaw []byte
		ids      []string
	)
	if err := row.Scan(&o.ID, &o.OwnerID, &itemsRaw, &o.Total, &o.Status, pq.Array(&ids),
		&o.ShippingAddressID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.ProductIDs = pq.StringArray(ids)
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &o.Items); err != nil {
			return nil, fmt.Errorf("failed to decode order items: %w", err)
		}
	}
	return &o, nil
}

func (r *OrderRepository) Create(ctx context.Context, o *shop.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}

	query := `
		INSERT INTO orders (id, owner_id, items, total, status, product_ids, shipping_address_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.Exec(ctx, query, o.ID, o.OwnerID, itemsJSON, o.Total, o.Status,
		pq.Array(o.ProductIDs), o.ShippingAddressID, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*shop.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

// ListByOwner returns the owner's orders, newest first.
func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID string) ([]shop.Order, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []shop.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status shop.OrderStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return mustAffect(tag)
}
