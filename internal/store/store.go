// Package store defines the keyed-record store interfaces the service depends
// on. Two backends implement them: a PostgREST adapter for the hosted store
// and a direct postgres adapter for deployments with database access.
package store

import (
	"context"
	"errors"

	"github.com/rafah-clos/request-service/internal/authz"
	"github.com/rafah-clos/request-service/internal/domain"
)

// ErrNotFound is returned when a keyed lookup matches no record.
var ErrNotFound = errors.New("record not found")

// ListOptions carries the authorization-orthogonal listing parameters.
type ListOptions struct {
	// Status is an exact-match override on top of the scope.
	Status *domain.RequestStatus
	// Search free-text matches customer name, phone, or id.
	Search string
	Limit  int
	Offset int
}

// RequestStore persists donation requests. List applies the authorization
// scope computed by the filter; implementations must translate every clause
// or fail, never silently drop one.
type RequestStore interface {
	List(ctx context.Context, scope authz.Scope, opts ListOptions) ([]domain.Request, error)
	Get(ctx context.Context, id string) (*domain.Request, error)
	Create(ctx context.Context, request *domain.Request) error
	Update(ctx context.Context, id string, patch domain.RequestPatch) (*domain.Request, error)
}

// UserStore resolves operator accounts at login.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// AuditLogStore appends mutation audit rows.
type AuditLogStore interface {
	Insert(ctx context.Context, entry *domain.AuditEntry) error
}

// PushTokenStore persists FCM registrations keyed on the token value.
type PushTokenStore interface {
	Upsert(ctx context.Context, token *domain.PushToken) error
	ListByUsername(ctx context.Context, username string) ([]domain.PushToken, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.PushToken, error)
}
