package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Default cookie names. clos_token is kept for clients issued before the
// session cookie rename.
const (
	DefaultSessionCookie = "clos_session"
	DefaultLegacyCookie  = "clos_token"
)

const bearerPrefix = "bearer "

// Extractor pulls a bearer token out of an incoming request. Precedence:
// Authorization header, session cookie, legacy cookie. Extraction never
// fails; absence yields the empty string.
type Extractor struct {
	SessionCookie string
	LegacyCookie  string
}

// NewExtractor builds an extractor, falling back to the default cookie names.
func NewExtractor(sessionCookie, legacyCookie string) Extractor {
	if sessionCookie == "" {
		sessionCookie = DefaultSessionCookie
	}
	if legacyCookie == "" {
		legacyCookie = DefaultLegacyCookie
	}
	return Extractor{SessionCookie: sessionCookie, LegacyCookie: legacyCookie}
}

// FromRequest returns the presented token or "".
func (e Extractor) FromRequest(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		if token := strings.TrimSpace(header[len(bearerPrefix):]); token != "" {
			return token
		}
	}
	if token := strings.TrimSpace(c.Cookies(e.SessionCookie)); token != "" {
		return token
	}
	return strings.TrimSpace(c.Cookies(e.LegacyCookie))
}
