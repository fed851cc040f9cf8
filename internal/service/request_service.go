package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rafah-clos/request-service/internal/authz"
	"github.com/rafah-clos/request-service/internal/domain"
	"github.com/rafah-clos/request-service/internal/events"
	"github.com/rafah-clos/request-service/internal/store"
	"github.com/rafah-clos/request-service/pkg/util"
)

// RequestService coordinates donation request workflows: scoped listing,
// mutation authorization, transition invariants, audit logging, events.
type RequestService struct {
	requests   store.RequestStore
	logs       store.AuditLogStore
	dispatcher events.Dispatcher
	authzOpts  authz.Options
	logger     *zap.Logger
	now        func() time.Time
}

// RequestDependencies bundles collaborators for RequestService.
type RequestDependencies struct {
	RequestStore store.RequestStore
	AuditLogs    store.AuditLogStore
	Dispatcher   events.Dispatcher
	AuthzOptions authz.Options
	Logger       *zap.Logger
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		requests:   deps.RequestStore,
		logs:       deps.AuditLogs,
		dispatcher: deps.Dispatcher,
		authzOpts:  deps.AuthzOptions,
		logger:     logger,
		now:        time.Now,
	}
}

// ListInput carries raw listing parameters from the query string.
type ListInput struct {
	View   string
	Status string
	Search string
	Limit  int
	Offset int
}

// CreateInput describes a new request.
type CreateInput struct {
	CustomerName string
	Phone        string
	District     string
	Lat          *float64
	Lng          *float64
	Weight       *int
	Notes        string
	Source       string
	AreaCode     *string
}

// UpdateInput is the whitelist of patchable fields. Nil means untouched.
type UpdateInput struct {
	CustomerName  *string
	Phone         *string
	District      *string
	Lat           *float64
	Lng           *float64
	Notes         *string
	Weight        *int
	Status        *string
	AgentUsername *string
	AgentName     *string
	CancelReason  *string
}

// List returns the requests visible to the identity for the requested view.
func (s *RequestService) List(ctx context.Context, identity *domain.Identity, in ListInput) ([]domain.Request, error) {
	view, err := authz.ParseView(in.View, identity.Role)
	if err != nil {
		return nil, err
	}

	scope, err := authz.BuildReadScope(identity, view, s.authzOpts)
	if err != nil {
		return nil, err
	}

	opts := store.ListOptions{
		Search: strings.TrimSpace(in.Search),
		Limit:  in.Limit,
		Offset: in.Offset,
	}
	if raw := strings.TrimSpace(in.Status); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return nil, util.NewMalformedRequest(fmt.Sprintf("unknown status %q", raw), nil)
		}
		opts.Status = &status
	}

	return s.requests.List(ctx, scope, opts)
}

// Get returns one request, enforcing agent ownership.
func (s *RequestService) Get(ctx context.Context, identity *domain.Identity, id string) (*domain.Request, error) {
	request, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.AuthorizeMutation(identity, request); err != nil {
		return nil, err
	}
	return request, nil
}

// Create inserts a new request with status new.
func (s *RequestService) Create(ctx context.Context, identity *domain.Identity, in CreateInput) (*domain.Request, error) {
	if strings.TrimSpace(in.CustomerName) == "" {
		return nil, util.NewMalformedRequest("customer_name is required", nil)
	}
	if strings.TrimSpace(in.Phone) == "" {
		return nil, util.NewMalformedRequest("phone is required", nil)
	}
	if err := validateWeight(in.Weight); err != nil {
		return nil, err
	}

	now := s.now()
	source := strings.TrimSpace(in.Source)
	if source == "" {
		source = "web"
	}

	request := &domain.Request{
		ID:           uuid.NewString(),
		CustomerName: strings.TrimSpace(in.CustomerName),
		Phone:        strings.TrimSpace(in.Phone),
		District:     strings.TrimSpace(in.District),
		Lat:          in.Lat,
		Lng:          in.Lng,
		Weight:       in.Weight,
		Notes:        in.Notes,
		Source:       source,
		AreaCode:     in.AreaCode,
		Status:       domain.StatusNew,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, err
	}

	s.audit(ctx, identity, domain.AuditActionCreate, request.ID, nil, request, "")
	s.publish(ctx, events.EventRequestCreated, request.ID, identity, events.RequestCreatedPayload{
		CustomerName: request.CustomerName,
		District:     request.District,
	})

	return request, nil
}

// Update applies a whitelisted partial update after authorization and
// transition stamping.
func (s *RequestService) Update(ctx context.Context, identity *domain.Identity, id string, in UpdateInput) (*domain.Request, error) {
	current, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.AuthorizeMutation(identity, current); err != nil {
		return nil, err
	}

	patch, err := buildPatch(in)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, util.NewMalformedRequest("no updatable fields in request body", nil)
	}

	now := s.now()
	authz.ApplyAssignment(&patch, current, now)
	authz.ApplyStatusChange(&patch, now)
	patch.UpdatedAt = &now

	updated, err := s.update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, identity, domain.AuditActionUpdate, id, current, updated, "")
	s.publishTransitions(ctx, identity, current, updated)

	return updated, nil
}

// Assign sets the handling agent. Route middleware restricts this to staff
// and admin.
func (s *RequestService) Assign(ctx context.Context, identity *domain.Identity, id, agentUsername, agentName string) (*domain.Request, error) {
	agentUsername = strings.TrimSpace(agentUsername)
	if agentUsername == "" {
		return nil, util.NewMalformedRequest("agent_username is required", nil)
	}

	current, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, util.NewForbidden("request is already closed")
	}

	now := s.now()
	patch := domain.RequestPatch{
		AgentUsername: &agentUsername,
		UpdatedAt:     &now,
	}
	if name := strings.TrimSpace(agentName); name != "" {
		patch.AgentName = &name
	}
	authz.ApplyAssignment(&patch, current, now)

	updated, err := s.update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, identity, domain.AuditActionAssign, id, current, updated, agentUsername)
	s.publish(ctx, events.EventRequestAssigned, id, identity, events.RequestAssignedPayload{
		AgentUsername: agentUsername,
		AgentName:     strings.TrimSpace(agentName),
		CustomerName:  updated.CustomerName,
	})

	return updated, nil
}

// ChangeStatus transitions the request lifecycle. Terminal requests can only
// be reopened by an admin.
func (s *RequestService) ChangeStatus(ctx context.Context, identity *domain.Identity, id, rawStatus, reason string) (*domain.Request, error) {
	status, ok := domain.ParseStatus(rawStatus)
	if !ok {
		return nil, util.NewMalformedRequest(fmt.Sprintf("unknown status %q", rawStatus), nil)
	}

	current, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.AuthorizeMutation(identity, current); err != nil {
		return nil, err
	}
	if current.Status.Terminal() && identity.Role != domain.RoleAdmin {
		return nil, util.NewForbidden("request is already closed")
	}

	now := s.now()
	patch := domain.RequestPatch{
		Status:    &status,
		UpdatedAt: &now,
	}
	if status == domain.StatusCancelled {
		if trimmed := strings.TrimSpace(reason); trimmed != "" {
			patch.CancelReason = &trimmed
		}
	}
	authz.ApplyStatusChange(&patch, now)

	updated, err := s.update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, identity, domain.AuditActionStatusChange, id, current, updated, reason)
	s.publish(ctx, events.EventRequestStatusChanged, id, identity, events.RequestStatusChangedPayload{
		OldStatus: current.Status,
		NewStatus: updated.Status,
		Reason:    strings.TrimSpace(reason),
	})

	return updated, nil
}

func (s *RequestService) fetch(ctx context.Context, id string) (*domain.Request, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, util.NewMalformedRequest("request id is required", nil)
	}
	request, err := s.requests.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, util.NewNotFound("request")
		}
		return nil, err
	}
	return request, nil
}

func (s *RequestService) update(ctx context.Context, id string, patch domain.RequestPatch) (*domain.Request, error) {
	updated, err := s.requests.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, util.NewNotFound("request")
		}
		return nil, err
	}
	return updated, nil
}

func buildPatch(in UpdateInput) (domain.RequestPatch, error) {
	patch := domain.RequestPatch{
		CustomerName: in.CustomerName,
		Phone:        in.Phone,
		District:     in.District,
		Lat:          in.Lat,
		Lng:          in.Lng,
		Notes:        in.Notes,
		AgentName:    in.AgentName,
		CancelReason: in.CancelReason,
	}

	if err := validateWeight(in.Weight); err != nil {
		return domain.RequestPatch{}, err
	}
	patch.Weight = in.Weight

	if in.Status != nil {
		status, ok := domain.ParseStatus(*in.Status)
		if !ok {
			return domain.RequestPatch{}, util.NewMalformedRequest(fmt.Sprintf("unknown status %q", *in.Status), nil)
		}
		patch.Status = &status
	}

	if in.AgentUsername != nil {
		trimmed := strings.TrimSpace(*in.AgentUsername)
		if trimmed == "" {
			return domain.RequestPatch{}, util.NewMalformedRequest("agent_username cannot be blank", nil)
		}
		patch.AgentUsername = &trimmed
	}

	return patch, nil
}

func validateWeight(weight *int) error {
	if weight != nil && *weight < 0 {
		return util.NewMalformedRequest("weight must be a non-negative integer", nil)
	}
	return nil
}

// audit appends a log row. Failures are logged and swallowed; an audit miss
// must never fail the write it describes.
func (s *RequestService) audit(ctx context.Context, identity *domain.Identity, action domain.AuditAction, requestID string, before, after *domain.Request, details string) {
	if s.logs == nil {
		return
	}

	entry := &domain.AuditEntry{
		ID:        uuid.NewString(),
		Username:  identity.Username,
		Role:      identity.Role,
		Action:    action,
		RequestID: requestID,
		Details:   details,
		Before:    before,
		After:     after,
		CreatedAt: s.now(),
	}
	if before != nil {
		status := before.Status
		entry.OldStatus = &status
	}
	if after != nil {
		status := after.Status
		entry.NewStatus = &status
		entry.AgentName = after.AgentName
	}

	if err := s.logs.Insert(ctx, entry); err != nil {
		s.logger.Warn("audit insert failed",
			zap.String("request_id", requestID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

func (s *RequestService) publish(ctx context.Context, eventType events.EventType, requestID string, identity *domain.Identity, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RequestID: requestID,
		Actor:     events.Actor{Username: identity.Username, Role: identity.Role},
		Timestamp: s.now(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", string(eventType)), zap.Error(err))
	}
}

// publishTransitions emits assignment/status events implied by a generic
// patch, so PATCH and the dedicated endpoints notify identically.
func (s *RequestService) publishTransitions(ctx context.Context, identity *domain.Identity, before, after *domain.Request) {
	if agentChanged(before, after) {
		payload := events.RequestAssignedPayload{CustomerName: after.CustomerName}
		if after.AgentUsername != nil {
			payload.AgentUsername = *after.AgentUsername
		}
		if after.AgentName != nil {
			payload.AgentName = *after.AgentName
		}
		s.publish(ctx, events.EventRequestAssigned, after.ID, identity, payload)
	}
	if before.Status != after.Status {
		s.publish(ctx, events.EventRequestStatusChanged, after.ID, identity, events.RequestStatusChangedPayload{
			OldStatus: before.Status,
			NewStatus: after.Status,
		})
	}
}

func agentChanged(before, after *domain.Request) bool {
	beforeAgent := ""
	if before.AgentUsername != nil {
		beforeAgent = *before.AgentUsername
	}
	afterAgent := ""
	if after.AgentUsername != nil {
		afterAgent = *after.AgentUsername
	}
	return afterAgent != "" && afterAgent != beforeAgent
}
