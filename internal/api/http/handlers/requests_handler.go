package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/rafah-clos/request-service/internal/api/dto"
	"github.com/rafah-clos/request-service/internal/auth"
	"github.com/rafah-clos/request-service/internal/authz"
	"github.com/rafah-clos/request-service/internal/service"
	"github.com/rafah-clos/request-service/pkg/util"
)

const (
	defaultPageLimit = 30
	maxPageLimit     = 200
)

// RequestsHandler manages the protected requests endpoints.
type RequestsHandler struct {
	service *service.RequestService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requestService *service.RequestService) *RequestsHandler {
	return &RequestsHandler{service: requestService}
}

// List GET /api/requests.
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return util.NewUnauthenticated("unauthorized")
	}

	limit := clampLimit(queryInt(c, "limit", defaultPageLimit))
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	in := service.ListInput{
		View:   c.Query("view"),
		Status: c.Query("status"),
		Search: c.Query("q"),
		Limit:  limit,
		Offset: offset,
	}

	requests, err := h.service.List(c.UserContext(), identity, in)
	if err != nil {
		return err
	}

	view, _ := authz.ParseView(in.View, identity.Role)
	items := make([]dto.RequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, dto.NewRequestResponse(&requests[i]))
	}
	return c.JSON(dto.RequestListResponse{
		Data:   items,
		View:   string(view),
		Limit:  limit,
		Offset: offset,
		Count:  len(items),
	})
}

// Get GET /api/requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return util.NewUnauthenticated("unauthorized")
	}
	request, err := h.service.Get(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}

// Create POST /api/requests. Staff and admin only (route middleware).
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return util.NewUnauthenticated("unauthorized")
	}
	var req dto.CreateRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewMalformedRequest("invalid payload", nil)
	}

	request, err := h.service.Create(c.UserContext(), identity, service.CreateInput{
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		District:     req.District,
		Lat:          req.Lat,
		Lng:          req.Lng,
		Weight:       req.Weight,
		Notes:        req.Notes,
		Source:       req.Source,
		AreaCode:     req.AreaCode,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}

// Update PATCH /api/requests/:id.
func (h *RequestsHandler) Update(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return util.NewUnauthenticated("unauthorized")
	}
	var req dto.UpdateRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewMalformedRequest("invalid payload", nil)
	}

	request, err := h.service.Update(c.UserContext(), identity, c.Params("id"), service.UpdateInput{
		CustomerName:  req.CustomerName,
		Phone:         req.Phone,
		District:      req.District,
		Lat:           req.Lat,
		Lng:           req.Lng,
		Notes:         req.Notes,
		Weight:        req.Weight,
		Status:        req.Status,
		AgentUsername: req.AgentUsername,
		AgentName:     req.AgentName,
		CancelReason:  req.CancelReason,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}

// Assign POST /api/requests/:id/assign. Staff and admin only (route
// middleware).
func (h *RequestsHandler) Assign(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return util.NewUnauthenticated("unauthorized")
	}
	var req dto.AssignRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewMalformedRequest("invalid payload", nil)
	}
	request, err := h.service.Assign(c.UserContext(), identity, c.Params("id"), req.AgentUsername, req.AgentName)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}

// ChangeStatus POST /api/requests/:id/status.
func (h *RequestsHandler) ChangeStatus(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return util.NewUnauthenticated("unauthorized")
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewMalformedRequest("invalid payload", nil)
	}
	if strings.TrimSpace(req.Status) == "" {
		return util.NewMalformedRequest("status is required", nil)
	}
	request, err := h.service.ChangeStatus(c.UserContext(), identity, c.Params("id"), req.Status, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(request)})
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}
