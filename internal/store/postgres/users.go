package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafah-clos/request-service/internal/domain"
	"github.com/rafah-clos/request-service/internal/store"
)

// UserStore implements store.UserStore on a pgx pool.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore builds the store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// GetByUsername resolves one operator account.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `
        SELECT username, password, full_name, role, area_code, active
        FROM users WHERE username = $1`

	var (
		user    domain.User
		rawRole string
	)
	err := s.pool.QueryRow(ctx, query, username).Scan(
		&user.Username,
		&user.PasswordHash,
		&user.FullName,
		&rawRole,
		&user.AreaCode,
		&user.Active,
	)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	role, ok := domain.ParseRole(rawRole)
	if !ok {
		return nil, fmt.Errorf("user %q has unknown role %q", username, rawRole)
	}
	user.Role = role
	return &user, nil
}
