package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rafah-clos/request-service/internal/config"
	"github.com/rafah-clos/request-service/pkg/util"
)

const maxProxyRedirects = 4

// GasProxyHandler forwards sheet-export calls to the configured Apps Script
// deployment. Apps Script answers exec URLs with redirects, so the proxy
// follows them manually and replays the original method and body each hop.
type GasProxyHandler struct {
	cfg        config.GasConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGasProxyHandler constructs handler.
func NewGasProxyHandler(cfg config.GasConfig, logger *zap.Logger) *GasProxyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GasProxyHandler{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

// Proxy handles ALL /api/gas/*. The wildcard path maps to a dotted action
// ("agent/list" becomes "agent.list"); query string and body pass through.
func (h *GasProxyHandler) Proxy(c *fiber.Ctx) error {
	if h.cfg.ExecURL == "" {
		return util.NewInternalError(nil)
	}

	action := actionFromPath(c.Params("*"))
	body := c.Body()
	contentType := c.Get(fiber.HeaderContentType)
	if contentType == "" {
		contentType = fiber.MIMEApplicationJSON
	}

	if action == "" {
		action = strings.TrimSpace(c.Query("action"))
	}
	if action == "" {
		action = actionFromBody(body, contentType)
	}

	target, err := url.Parse(h.cfg.ExecURL)
	if err != nil {
		return util.NewInternalError(err)
	}
	query := target.Query()
	if action != "" {
		query.Set("action", action)
	}
	for key, values := range c.Queries() {
		query.Set(key, values)
	}
	target.RawQuery = query.Encode()

	resp, err := h.forward(c, target.String(), c.Method(), contentType, body)
	if err != nil {
		return util.NewUpstreamFailure("sheet export", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return util.NewUpstreamFailure("sheet export", err)
	}

	respContentType := resp.Header.Get(fiber.HeaderContentType)
	if respContentType == "" {
		respContentType = fiber.MIMEApplicationJSONCharsetUTF8
	}
	c.Set(fiber.HeaderContentType, respContentType)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(resp.StatusCode).Send(respBody)
}

func (h *GasProxyHandler) forward(c *fiber.Ctx, targetURL, method, contentType string, body []byte) (*http.Response, error) {
	currentURL := targetURL

	for hop := 0; ; hop++ {
		var reader io.Reader
		if method != http.MethodGet && method != http.MethodHead && len(body) > 0 {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(c.UserContext(), method, currentURL, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set(fiber.HeaderContentType, contentType)

		resp, err := h.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		if !isRedirect(resp.StatusCode) {
			return resp, nil
		}
		location := resp.Header.Get("Location")
		resp.Body.Close()

		if hop >= maxProxyRedirects {
			return nil, errTooManyRedirects
		}
		if location == "" {
			return nil, errRedirectWithoutLocation
		}

		next, err := url.Parse(location)
		if err != nil {
			return nil, err
		}
		base, err := url.Parse(currentURL)
		if err != nil {
			return nil, err
		}
		currentURL = base.ResolveReference(next).String()
	}
}

var (
	errTooManyRedirects        = &proxyError{"too many redirects from upstream"}
	errRedirectWithoutLocation = &proxyError{"redirect response without location header"}
)

type proxyError struct{ msg string }

func (e *proxyError) Error() string { return e.msg }

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func actionFromPath(path string) string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return ""
	}
	return strings.ReplaceAll(path, "/", ".")
}

func actionFromBody(body []byte, contentType string) string {
	if len(body) == 0 || !strings.Contains(strings.ToLower(contentType), "application/json") {
		return ""
	}
	var payload struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Action)
}
