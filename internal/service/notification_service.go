package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
// Delivery transports (email, webhooks) are externally owned; this
// service logs and hands off.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  events.Publisher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. The publisher is optional;
// when set, every event is mirrored to the broker.
func NewNotificationService(dispatcher events.Dispatcher, publisher events.Publisher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventConversationCreated, n.handleConversationCreated)
	n.dispatcher.Subscribe(events.EventConversationAssigned, n.handleConversationAssigned)
	n.dispatcher.Subscribe(events.EventCustomerCreated, n.handleCustomerCreated)
	if n.publisher != nil {
		for _, eventType := range events.AllEventTypes() {
			n.dispatcher.Subscribe(eventType, n.relayToBroker)
		}
	}
}

func (n *NotificationService) handleConversationCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ConversationCreated", zap.String("conversation_id", event.ConversationID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleConversationAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("ConversationAssigned", zap.String("conversation_id", event.ConversationID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleCustomerCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("CustomerCreated", zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) relayToBroker(ctx context.Context, event events.Event) error {
	if err := n.publisher.PublishEvent(ctx, event); err != nil {
		n.logger.Warn("broker relay failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)))
}
