package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/schoolplan/timetable-api/internal/models"
)

// UserRepository reads API accounts for authentication.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail loads an account by email, case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT id, public_id, organization_id, email, full_name, password_hash, role, active, created_at
FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByPublicID loads an account by its external identifier.
func (r *UserRepository) FindByPublicID(ctx context.Context, publicID string) (*models.User, error) {
	const query = `SELECT id, public_id, organization_id, email, full_name, password_hash, role, active, created_at
FROM users WHERE public_id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, publicID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user %s: %w", publicID, err)
	}
	return &user, nil
}
