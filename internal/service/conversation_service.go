package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/identity"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ConversationService coordinates ticket intake: identity minting,
// customer resolution, persistence, and the routing hand-off.
type ConversationService struct {
	conversations repository.ConversationRepository
	customers     repository.CustomerRepository
	identity      *identity.Builder
	assigner      *AssignmentService
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// ConversationDependencies bundles collaborators.
type ConversationDependencies struct {
	ConversationRepo repository.ConversationRepository
	CustomerRepo     repository.CustomerRepository
	Identity         *identity.Builder
	Assigner         *AssignmentService
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// ConversationCreateInput describes the intake payload from the chat
// widget.
type ConversationCreateInput struct {
	CustomerName  string
	CustomerEmail string
	Category      string
	ProductModel  string
	Title         string
	Body          string
	Priority      domain.ConversationPriority
}

// NewConversationService constructs the service.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationService{
		conversations: deps.ConversationRepo,
		customers:     deps.CustomerRepo,
		identity:      deps.Identity,
		assigner:      deps.Assigner,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
	}
}

// CreateConversation mints identifiers, persists the conversation
// unassigned, and invokes the routing engine. Identity generation is on
// the critical path and fails the request; assignment is not — creation
// always succeeds even when routing finds nobody, and the result is
// surfaced alongside the conversation.
func (s *ConversationService) CreateConversation(ctx context.Context, input ConversationCreateInput) (*domain.Conversation, *AssignmentResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.CustomerEmail))
	if email == "" {
		return nil, nil, apperrors.NewValidationError("customer_email required", nil)
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, nil, apperrors.NewValidationError("title required", nil)
	}

	now := time.Now()

	customer, err := s.resolveCustomer(ctx, email, input, now)
	if err != nil {
		return nil, nil, err
	}

	key, err := s.identity.NextConversationKey(ctx, now)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	conv := &domain.Conversation{
		ConversationKey: key,
		CustomerID:      customer.ID,
		Category:        strings.TrimSpace(input.Category),
		ProductModel:    strings.TrimSpace(input.ProductModel),
		Title:           strings.TrimSpace(input.Title),
		Body:            strings.TrimSpace(input.Body),
		Status:          domain.ConversationStatusOpen,
		Priority:        input.Priority,
	}
	if conv.Priority == "" {
		conv.Priority = domain.PriorityMedium
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		// A unique-key violation here is the residual identifier race
		// surfacing; it must fail creation so the caller retries whole.
		return nil, nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:           events.EventConversationCreated,
		ConversationID: conv.ID,
		Payload: events.ConversationCreatedPayload{
			ConversationKey: conv.ConversationKey,
			CustomerID:      conv.CustomerID,
			Category:        conv.Category,
			Priority:        conv.Priority,
			Title:           conv.Title,
		},
	})

	result, err := s.assigner.Assign(ctx, conv.ID)
	if err != nil {
		s.logger.Warn("assignment failed after creation",
			zap.String("conversation_id", conv.ID), zap.Error(err))
		result = &AssignmentResult{Assigned: false, Reason: "assignment error"}
	}
	if result.Assigned {
		conv.AssigneeID = &result.AgentID
	}
	return conv, result, nil
}

// resolveCustomer finds the customer by email or creates one, minting a
// customer key. Key minting shares the conversation's critical-path
// policy.
func (s *ConversationService) resolveCustomer(ctx context.Context, email string, input ConversationCreateInput, now time.Time) (*domain.Customer, error) {
	customer, err := s.customers.GetByEmail(ctx, email)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	key, err := s.identity.NextCustomerKey(ctx, input.Category, input.ProductModel, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	customer = &domain.Customer{
		CustomerKey:  key,
		Name:         strings.TrimSpace(input.CustomerName),
		Email:        email,
		Category:     strings.TrimSpace(input.Category),
		ProductModel: strings.TrimSpace(input.ProductModel),
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type: events.EventCustomerCreated,
		Payload: events.CustomerCreatedPayload{
			CustomerID:  customer.ID,
			CustomerKey: customer.CustomerKey,
			Category:    customer.Category,
		},
	})
	return customer, nil
}

// GetByKey fetches a conversation by its external key.
func (s *ConversationService) GetByKey(ctx context.Context, key string) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("conversation", map[string]any{"conversation_key": key})
		}
		return nil, apperrors.MapError(err)
	}
	return conv, nil
}

// List returns conversations matching the filter.
func (s *ConversationService) List(ctx context.Context, filter repository.ConversationFilter) ([]domain.Conversation, error) {
	items, err := s.conversations.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

func (s *ConversationService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Actor.Type == "" {
		event.Actor = events.Actor{Type: domain.SubjectTypeCustomer}
	}
	_ = s.dispatcher.Publish(ctx, event)
}
