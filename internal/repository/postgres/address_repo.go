// internal/repository/postgres/address_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain/address"

	"github.com/jackc/pgx/v5"
)

type AddressRepository struct {
	db *DB
}

func NewAddressRepository(db Querier) *AddressRepository {
	return &AddressRepository{db: NewDB(db)}
}

const addressColumns = `id, owner_id, address_type, first_name, last_name, company, address_line_1,
		       address_line_2, landmark, city, state, pincode, mobile, is_default,
		       delivery_instructions, created_at, updated_at`

func scanAddress(row pgx.Row) (*address.Address, error) {
	var a address.Address
	err := row.Scan(&a.ID, &a.OwnerID, &a.AddressType, &a.FirstName, &a.LastName, &a.Company,
		&a.AddressLine1, &a.AddressLine2, &a.Landmark, &a.City, &a.State, &a.Pincode, &a.Mobile,
		&a.IsDefault, &a.DeliveryInstructions, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AddressRepository) Create(ctx context.Context, a *address.Address) error {
	query := `
		INSERT INTO addresses (id, owner_id, address_type, first_name, last_name, company, address_line_1,
		                       address_line_2, landmark, city, state, pincode, mobile, is_default,
		                       delivery_instructions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.db.pool.Exec(ctx, query, a.ID, a.OwnerID, a.AddressType, a.FirstName, a.LastName, a.Company,
		a.AddressLine1, a.AddressLine2, a.Landmark, a.City, a.State, a.Pincode, a.Mobile, a.IsDefault,
		a.DeliveryInstructions, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create address: %w", err)
	}
	return nil
}

func (r *AddressRepository) FindByID(ctx context.Context, id string) (*address.Address, error) {
	a, err := scanAddress(r.db.pool.QueryRow(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (r *AddressRepository) ListByOwner(ctx context.Context, ownerID string) ([]address.Address, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE owner_id = $1 ORDER BY is_default DESC, created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	list := []address.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

func (r *AddressRepository) Update(ctx context.Context, a *address.Address) error {
	query := `
		UPDATE addresses
		SET address_type = $1, first_name = $2, last_name = $3, company = $4, address_line_1 = $5,
		    address_line_2 = $6, landmark = $7, city = $8, state = $9, pincode = $10, mobile = $11,
		    delivery_instructions = $12, updated_at = $13
		WHERE id = $14
	`
	a.UpdatedAt = time.Now().UTC()
	tag, err := r.db.pool.Exec(ctx, query, a.AddressType, a.FirstName, a.LastName, a.Company, a.AddressLine1,
		a.AddressLine2, a.Landmark, a.City, a.State, a.Pincode, a.Mobile, a.DeliveryInstructions, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update address: %w", err)
	}
	return mustAffect(tag)
}

func (r *AddressRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM addresses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	return mustAffect(tag)
}

// SetDefault flips the default flag inside one transaction.
func (r *AddressRepository) SetDefault(ctx context.Context, ownerID, id string, t address.Type) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE addresses SET is_default = FALSE WHERE owner_id = $1 AND address_type = $2`, ownerID, t); err != nil {
			return fmt.Errorf("failed to clear default: %w", err)
		}
		tag, err := tx.Exec(ctx,
			`UPDATE addresses SET is_default = TRUE, updated_at = NOW() WHERE id = $1 AND owner_id = $2`, id, ownerID)
		if err != nil {
			return fmt.Errorf("failed to set default: %w", err)
		}
		return mustAffect(tag)
	})
}

func (r *AddressRepository) FindDefault(ctx context.Context, ownerID string, t address.Type) (*address.Address, error) {
	a, err := scanAddress(r.db.pool.QueryRow(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE owner_id = $1 AND address_type = $2 AND is_default`, ownerID, t))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}
