package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/rafah-clos/request-service/internal/config"
)

// AppConfigHandler serves the public client configuration.
type AppConfigHandler struct {
	client  config.ClientConfig
	gasURL  string
	version string
}

// NewAppConfigHandler constructs handler.
func NewAppConfigHandler(client config.ClientConfig, gasURL, version string) *AppConfigHandler {
	return &AppConfigHandler{client: client, gasURL: gasURL, version: version}
}

// Get GET /api/app-config.json. Secrets never appear in the payload. When a
// required value is unset the response is a 500 naming what is missing, so a
// broken deployment is visible instead of a half-working client.
func (h *AppConfigHandler) Get(c *fiber.Ctx) error {
	var missing []string
	if h.client.APIBase == "" {
		missing = append(missing, "CLIENT_API_BASE")
	}
	if h.client.AppName == "" {
		missing = append(missing, "CLIENT_APP_NAME")
	}
	if len(missing) > 0 {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "INTERNAL_ERROR",
				"message": "client configuration incomplete",
				"details": fiber.Map{"missing": missing},
			},
		})
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(fiber.Map{
		"api_base":             h.client.APIBase,
		"app_name":             h.client.AppName,
		"map_center":           h.client.MapCenter,
		"support_tel":          h.client.SupportTel,
		"gas_url":              h.gasURL,
		"firebase_vapid_key":   h.client.FirebaseVapidKey,
		"firebase_config_json": h.client.FirebaseConfigJSON,
		"build":                h.version,
	})
}
