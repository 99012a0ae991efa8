// internal/repository/postgres/user_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain/auth"
	xerrors "storefront/internal/pkg/errors"
)

type UserRepository struct {
	db Querier
}

func NewUserRepository(db Querier) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, mobile,
		       email_verified, mobile_verified, status, last_login, created_at, updated_at`

func (r *UserRepository) scanOne(ctx context.Context, query string, arg any) (*auth.User, error) {
	var u auth.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Mobile,
		&u.EmailVerified, &u.MobileVerified, &u.Status, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, u *auth.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, mobile, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Mobile, u.Status).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return xerrors.ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByID retrieves a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id string) (*auth.User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByEmail retrieves a user by email, ignoring case
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, u *auth.User) error {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, mobile = $3, mobile_verified = $4, updated_at = $5
		WHERE id = $6
	`
	u.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx, query, u.FirstName, u.LastName, u.Mobile, u.MobileVerified, u.UpdatedAt, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return mustAffect(tag)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return mustAffect(tag)
}

// MarkEmailVerified also activates an account pending verification.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET email_verified = TRUE,
		    status = CASE WHEN status = $1 THEN $2 ELSE status END,
		    updated_at = NOW()
		WHERE id = $3
	`
	tag, err := r.db.Exec(ctx, query, auth.StatusPendingVerification, auth.StatusActive, id)
	if err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}
	return mustAffect(tag)
}

func (r *UserRepository) MarkMobileVerified(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET mobile_verified = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to verify mobile: %w", err)
	}
	return mustAffect(tag)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, time.Now().UTC(), id)
	return err
}
