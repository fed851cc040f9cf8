package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rafah-clos/request-service/internal/domain"
	"github.com/rafah-clos/request-service/internal/events"
)

// NotificationService translates domain events into push notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	push       *PushService
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, push *PushService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		push:       push,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestCreated, n.handleRequestCreated)
	n.dispatcher.Subscribe(events.EventRequestAssigned, n.handleRequestAssigned)
	n.dispatcher.Subscribe(events.EventRequestStatusChanged, n.handleRequestStatusChanged)
}

// New requests go to the intake staff.
func (n *NotificationService) handleRequestCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestCreatedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("RequestCreated", zap.String("request_id", event.RequestID))
	n.push.NotifyRole(ctx, domain.RoleStaff,
		"طلب جديد",
		fmt.Sprintf("طلب جديد من %s", payload.CustomerName),
		map[string]string{"request_id": event.RequestID, "type": string(event.Type)})
	return nil
}

// Assignments notify the assigned agent.
func (n *NotificationService) handleRequestAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestAssignedPayload)
	if !ok || payload.AgentUsername == "" {
		return nil
	}
	n.logger.Info("RequestAssigned",
		zap.String("request_id", event.RequestID),
		zap.String("agent", payload.AgentUsername))
	n.push.NotifyAgent(ctx, payload.AgentUsername,
		"تم إسناد طلب إليك",
		fmt.Sprintf("طلب من %s", payload.CustomerName),
		map[string]string{"request_id": event.RequestID, "type": string(event.Type)})
	return nil
}

func (n *NotificationService) handleRequestStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("RequestStatusChanged",
		zap.String("request_id", event.RequestID),
		zap.Any("payload", event.Payload))
	return nil
}
