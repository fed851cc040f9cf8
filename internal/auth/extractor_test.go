package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// extractToken runs one request through a fiber app and captures what the
// extractor saw.
func extractToken(t *testing.T, extractor Extractor, configure func(req *http.Request)) string {
	t.Helper()

	var captured string
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		captured = extractor.FromRequest(c)
		return c.SendString("ok")
	})

	req := httptest.NewRequest("GET", "/", nil)
	configure(req)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return captured
}

func TestExtractorPrecedence(t *testing.T) {
	extractor := NewExtractor("", "")

	tests := []struct {
		name      string
		configure func(req *http.Request)
		want      string
	}{
		{
			name:      "no credentials",
			configure: func(req *http.Request) {},
			want:      "",
		},
		{
			name: "bearer header",
			configure: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer header-token")
			},
			want: "header-token",
		},
		{
			name: "bearer is case-insensitive",
			configure: func(req *http.Request) {
				req.Header.Set("Authorization", "bEaReR header-token")
			},
			want: "header-token",
		},
		{
			name: "session cookie",
			configure: func(req *http.Request) {
				req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: "session-token"})
			},
			want: "session-token",
		},
		{
			name: "legacy cookie",
			configure: func(req *http.Request) {
				req.AddCookie(&http.Cookie{Name: DefaultLegacyCookie, Value: "legacy-token"})
			},
			want: "legacy-token",
		},
		{
			name: "header beats both cookies",
			configure: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer header-token")
				req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: "session-token"})
				req.AddCookie(&http.Cookie{Name: DefaultLegacyCookie, Value: "legacy-token"})
			},
			want: "header-token",
		},
		{
			name: "session cookie beats legacy cookie",
			configure: func(req *http.Request) {
				req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: "session-token"})
				req.AddCookie(&http.Cookie{Name: DefaultLegacyCookie, Value: "legacy-token"})
			},
			want: "session-token",
		},
		{
			name: "non-bearer authorization is ignored",
			configure: func(req *http.Request) {
				req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
				req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: "session-token"})
			},
			want: "session-token",
		},
		{
			name: "blank bearer falls back to cookie",
			configure: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer   ")
				req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: "session-token"})
			},
			want: "session-token",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractToken(t, extractor, tc.configure))
		})
	}
}

func TestExtractorCustomCookieNames(t *testing.T) {
	extractor := NewExtractor("my_session", "my_legacy")

	got := extractToken(t, extractor, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: "my_session", Value: "custom-token"})
		req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: "ignored"})
	})
	assert.Equal(t, "custom-token", got)
}
