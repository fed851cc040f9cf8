package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rafah-clos/request-service/internal/api/dto"
	"github.com/rafah-clos/request-service/internal/auth"
	"github.com/rafah-clos/request-service/internal/service"
	"github.com/rafah-clos/request-service/pkg/util"
)

// PushHandler manages device token registration.
type PushHandler struct {
	service *service.PushService
}

// NewPushHandler constructs handler.
func NewPushHandler(pushService *service.PushService) *PushHandler {
	return &PushHandler{service: pushService}
}

// Register POST /api/push/register.
func (h *PushHandler) Register(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return util.NewUnauthenticated("unauthorized")
	}
	var req dto.RegisterPushTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewMalformedRequest("invalid payload", nil)
	}

	err := h.service.Register(c.UserContext(), identity, service.RegisterInput{
		FCMToken:   req.FCMToken,
		Platform:   req.Platform,
		DeviceID:   req.DeviceID,
		AppVersion: req.AppVersion,
		UserAgent:  c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}
