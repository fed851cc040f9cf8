package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/rafah-clos/request-service/internal/domain"
	"github.com/rafah-clos/request-service/pkg/util"
)

const identityKey = "auth_identity"

// Verifier composes the credential extractor and the token codec into the
// single verification path used by every protected route. All decode
// failures collapse into one opaque UNAUTHENTICATED response; the precise
// reason is logged server-side only.
type Verifier struct {
	codec     *Codec
	extractor Extractor
	logger    *zap.Logger
}

// NewVerifier builds a verifier.
func NewVerifier(codec *Codec, extractor Extractor, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{codec: codec, extractor: extractor, logger: logger}
}

// Verify authenticates the request and, when requiredRoles is non-empty,
// authorizes the identity's role against it. No I/O beyond one HMAC check.
func (v *Verifier) Verify(c *fiber.Ctx, requiredRoles ...domain.Role) (*domain.Identity, error) {
	token := v.extractor.FromRequest(c)
	if token == "" {
		return nil, util.NewUnauthenticated("unauthorized")
	}

	claims, err := v.codec.Decode(token)
	if err != nil {
		v.logger.Debug("token rejected",
			zap.String("reason", string(ReasonOf(err))),
			zap.String("path", c.Path()))
		return nil, util.NewUnauthenticated("unauthorized")
	}

	identity, err := identityFromClaims(claims)
	if err != nil {
		v.logger.Debug("token claims rejected", zap.Error(err), zap.String("path", c.Path()))
		return nil, util.NewUnauthenticated("token missing required claims")
	}

	if len(requiredRoles) > 0 && !roleAllowed(identity.Role, requiredRoles) {
		return nil, util.NewForbidden("insufficient role")
	}
	return identity, nil
}

// Middleware verifies the request and stores the identity in ctx locals.
func (v *Verifier) Middleware(requiredRoles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := v.Verify(c, requiredRoles...)
		if err != nil {
			return err
		}
		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// RequireRoles gates an already-authenticated route to the given roles.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return util.NewUnauthenticated("unauthorized")
		}
		if !roleAllowed(identity.Role, allowed) {
			return util.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// IdentityFromContext retrieves the verified identity stored by Middleware.
func IdentityFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*domain.Identity)
	return identity, ok
}

func identityFromClaims(claims jwt.MapClaims) (*domain.Identity, error) {
	username := strings.TrimSpace(firstString(claims, "username", "user", "sub"))
	rawRole := strings.TrimSpace(stringClaim(claims, "role"))
	if username == "" || rawRole == "" {
		return nil, util.NewUnauthenticated("token missing username/role")
	}

	role, ok := domain.ParseRole(rawRole)
	if !ok {
		return nil, util.NewUnauthenticated("unknown role claim")
	}

	name := strings.TrimSpace(firstString(claims, "name", "full_name"))
	if name == "" {
		name = username
	}

	return &domain.Identity{
		Username: username,
		Name:     name,
		Role:     role,
		AreaCode: strings.TrimSpace(stringClaim(claims, "area_code")),
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if val := stringClaim(claims, key); strings.TrimSpace(val) != "" {
			return val
		}
	}
	return ""
}

func roleAllowed(role domain.Role, allowed []domain.Role) bool {
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}
