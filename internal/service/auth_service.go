package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rafah-clos/request-service/internal/auth"
	"github.com/rafah-clos/request-service/internal/domain"
	"github.com/rafah-clos/request-service/internal/store"
	"github.com/rafah-clos/request-service/pkg/util"
)

// bcrypt hash of an unused random password, compared against when the
// username does not exist so both failure paths cost one hash.
const unknownUserHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// AuthService authenticates operators and issues session tokens.
type AuthService struct {
	users  store.UserStore
	codec  *auth.Codec
	logger *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(users store.UserStore, codec *auth.Codec, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, codec: codec, logger: logger}
}

// LoginResult carries the issued session.
type LoginResult struct {
	Identity  domain.Identity
	Token     string
	ExpiresAt time.Time
}

// Login verifies the credentials against the users store and issues a signed
// session token. All credential failures return the same generic message.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, util.NewMalformedRequest("username and password are required", nil)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = auth.ComparePassword(unknownUserHash, password)
			return nil, util.NewUnauthenticated("invalid username or password")
		}
		return nil, err
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Debug("password mismatch", zap.String("username", username))
		return nil, util.NewUnauthenticated("invalid username or password")
	}

	if !user.Active {
		s.logger.Info("login attempt on disabled account", zap.String("username", username))
		return nil, util.NewUnauthenticated("invalid username or password")
	}

	claims := map[string]any{
		"username": user.Username,
		"role":     string(user.Role),
		"name":     user.FullName,
	}
	if user.AreaCode != nil && *user.AreaCode != "" {
		claims["area_code"] = *user.AreaCode
	}

	token, expiresAt, err := s.codec.Encode(claims)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	name := user.FullName
	if name == "" {
		name = user.Username
	}

	identity := domain.Identity{
		Username: user.Username,
		Name:     name,
		Role:     user.Role,
	}
	if user.AreaCode != nil {
		identity.AreaCode = *user.AreaCode
	}

	s.logger.Info("login", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return &LoginResult{Identity: identity, Token: token, ExpiresAt: expiresAt}, nil
}
