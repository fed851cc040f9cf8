package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rafah-clos/request-service/internal/domain"
	"github.com/rafah-clos/request-service/internal/store"
)

const usersTable = "users"

// UserStore implements store.UserStore over PostgREST.
type UserStore struct {
	client *Client
}

// NewUserStore builds the adapter.
func NewUserStore(client *Client) *UserStore {
	return &UserStore{client: client}
}

type userRow struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	FullName string  `json:"full_name"`
	Role     string  `json:"role"`
	AreaCode *string `json:"area_code"`
	Active   *bool   `json:"active"`
}

// GetByUsername resolves one operator account.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := url.Values{}
	query.Set("select", "username,password,full_name,role,area_code,active")
	query.Set("username", "eq."+username)
	query.Set("limit", "1")

	var rows []userRow
	if err := s.client.do(ctx, http.MethodGet, usersTable, query, "", nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}

	row := rows[0]
	role, ok := domain.ParseRole(row.Role)
	if !ok {
		return nil, fmt.Errorf("user %q has unknown role %q", username, row.Role)
	}

	// rows without an explicit active flag are treated as active
	active := row.Active == nil || *row.Active

	return &domain.User{
		Username:     row.Username,
		FullName:     row.FullName,
		PasswordHash: row.Password,
		Role:         role,
		AreaCode:     row.AreaCode,
		Active:       active,
	}, nil
}
