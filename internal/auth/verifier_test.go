package auth

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rafah-clos/request-service/internal/domain"
	"github.com/rafah-clos/request-service/pkg/util"
)

func newVerifierApp(t *testing.T, codec *Codec, requiredRoles ...domain.Role) *fiber.App {
	t.Helper()

	verifier := NewVerifier(codec, NewExtractor("", ""), zap.NewNop())
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := util.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{
				"error": fiber.Map{"code": domainErr.Code, "message": domainErr.Message},
			})
		},
	})
	app.Get("/protected", verifier.Middleware(requiredRoles...), func(c *fiber.Ctx) error {
		identity, _ := IdentityFromContext(c)
		return c.JSON(fiber.Map{
			"username":  identity.Username,
			"name":      identity.Name,
			"role":      string(identity.Role),
			"area_code": identity.AreaCode,
		})
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, configure func(req *http.Request)) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest("GET", "/protected", nil)
	if configure != nil {
		configure(req)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestVerifierAcceptsValidToken(t *testing.T) {
	codec := newTestCodec(t, 0)
	token, _, err := codec.Encode(map[string]any{
		"username": "radh", "role": "agent", "name": "راضي", "area_code": "R1",
	})
	require.NoError(t, err)

	app := newVerifierApp(t, codec)
	status, body := doRequest(t, app, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "radh", body["username"])
	assert.Equal(t, "agent", body["role"])
	assert.Equal(t, "راضي", body["name"])
	assert.Equal(t, "R1", body["area_code"])
}

func TestVerifierAcceptsArabicRoleAlias(t *testing.T) {
	codec := newTestCodec(t, 0)
	token, _, err := codec.Encode(map[string]any{"username": "radh", "role": "مندوب"})
	require.NoError(t, err)

	app := newVerifierApp(t, codec)
	status, body := doRequest(t, app, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "agent", body["role"])
	// name falls back to username when absent
	assert.Equal(t, "radh", body["name"])
}

// Every failure mode must produce the same opaque body: the response must not
// reveal whether a token was absent, expired, forged, or unparseable.
func TestVerifierOpaque401(t *testing.T) {
	codec := newTestCodec(t, 0)
	other := NewCodec("other-secret", time.Hour, 0)

	forged, _, err := other.Encode(map[string]any{"username": "radh", "role": "agent"})
	require.NoError(t, err)
	expired, _, err := codec.Encode(map[string]any{
		"username": "radh", "role": "agent", "exp": time.Now().Add(-time.Minute).Unix(),
	})
	require.NoError(t, err)
	encode := func(v string) string { return base64.RawURLEncoding.EncodeToString([]byte(v)) }
	noneAlg := encode(`{"alg":"none","typ":"JWT"}`) + "." + encode(`{"username":"radh","role":"agent"}`) + "."

	app := newVerifierApp(t, codec)

	cases := map[string]func(req *http.Request){
		"no credentials": nil,
		"garbage token": func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer not.a.token")
		},
		"bad signature": func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+forged)
		},
		"expired": func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+expired)
		},
		"alg none": func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+noneAlg)
		},
		"expired via cookie": func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: expired})
		},
	}

	var bodies []map[string]any
	for name, configure := range cases {
		status, body := doRequest(t, app, configure)
		assert.Equalf(t, http.StatusUnauthorized, status, "case %s", name)
		errObj, ok := body["error"].(map[string]any)
		require.Truef(t, ok, "case %s", name)
		assert.Equalf(t, "UNAUTHENTICATED", errObj["code"], "case %s", name)
		bodies = append(bodies, body)
	}
	for i := 1; i < len(bodies); i++ {
		errPrev := bodies[i-1]["error"].(map[string]any)
		errCur := bodies[i]["error"].(map[string]any)
		assert.Equal(t, errPrev["code"], errCur["code"])
	}
}

func TestVerifierMissingClaims(t *testing.T) {
	codec := newTestCodec(t, 0)
	app := newVerifierApp(t, codec)

	cases := []map[string]any{
		{"role": "agent"},
		{"username": "radh"},
		{"username": "  ", "role": "agent"},
		{"username": "radh", "role": "supervisor"},
	}
	for _, claims := range cases {
		token, _, err := codec.Encode(claims)
		require.NoError(t, err)

		status, body := doRequest(t, app, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+token)
		})
		assert.Equal(t, http.StatusUnauthorized, status)
		errObj := body["error"].(map[string]any)
		assert.Equal(t, "UNAUTHENTICATED", errObj["code"])
	}
}

func TestVerifierRoleGate(t *testing.T) {
	codec := newTestCodec(t, 0)
	app := newVerifierApp(t, codec, domain.RoleStaff, domain.RoleAdmin)

	agentToken, _, err := codec.Encode(map[string]any{"username": "radh", "role": "agent"})
	require.NoError(t, err)
	staffToken, _, err := codec.Encode(map[string]any{"username": "sara", "role": "staff"})
	require.NoError(t, err)

	status, body := doRequest(t, app, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+agentToken)
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["error"].(map[string]any)["code"])

	status, _ = doRequest(t, app, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+staffToken)
	})
	assert.Equal(t, http.StatusOK, status)
}

func TestVerifierHeaderIdentityWinsOverCookie(t *testing.T) {
	codec := newTestCodec(t, 0)
	headerToken, _, err := codec.Encode(map[string]any{"username": "header-user", "role": "admin"})
	require.NoError(t, err)
	cookieToken, _, err := codec.Encode(map[string]any{"username": "cookie-user", "role": "agent"})
	require.NoError(t, err)

	app := newVerifierApp(t, codec)
	status, body := doRequest(t, app, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+headerToken)
		req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: cookieToken})
	})

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "header-user", body["username"])
	assert.Equal(t, "admin", body["role"])
}
