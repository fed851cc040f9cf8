package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rafah-clos/request-service/internal/api/dto"
	"github.com/rafah-clos/request-service/internal/auth"
	"github.com/rafah-clos/request-service/internal/config"
	"github.com/rafah-clos/request-service/internal/domain"
	"github.com/rafah-clos/request-service/internal/service"
	"github.com/rafah-clos/request-service/pkg/util"
)

// AuthHandler manages login, logout, and session introspection.
type AuthHandler struct {
	service *service.AuthService
	cfg     config.AuthConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{service: authService, cfg: cfg}
}

// Login POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewMalformedRequest("invalid payload", nil)
	}

	result, err := h.service.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	c.Cookie(h.sessionCookie(result.Token, result.ExpiresAt))

	return c.JSON(dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      identityResponse(&result.Identity),
	})
}

// Me GET /api/auth/me. Runs behind the verifier middleware.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return util.NewUnauthenticated("unauthorized")
	}
	return c.JSON(fiber.Map{"user": identityResponse(identity)})
}

// Logout POST /api/auth/logout. Sessions are stateless: logging out only
// clears the cookies, nothing is revoked server-side.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(h.expiredCookie(h.cfg.SessionCookieName))
	c.Cookie(h.expiredCookie(h.cfg.LegacyCookieName))
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AuthHandler) sessionCookie(token string, expiresAt time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     h.cfg.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

func (h *AuthHandler) expiredCookie(name string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

func identityResponse(identity *domain.Identity) dto.IdentityResponse {
	return dto.IdentityResponse{
		Username: identity.Username,
		Name:     identity.Name,
		Role:     string(identity.Role),
		AreaCode: identity.AreaCode,
	}
}
