package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// CreateConversationRequest payload from the chat widget.
type CreateConversationRequest struct {
	CustomerName  string                      `json:"customer_name"`
	CustomerEmail string                      `json:"customer_email"`
	Category      string                      `json:"category"`
	ProductModel  string                      `json:"product_model"`
	Title         string                      `json:"title"`
	Body          string                      `json:"body"`
	Priority      domain.ConversationPriority `json:"priority"`
}

// ConversationResponse is the full conversation view. AssignmentResult is
// only populated on creation.
type ConversationResponse struct {
	ID               string                      `json:"id"`
	ConversationKey  string                      `json:"conversation_key"`
	CustomerID       string                      `json:"customer_id"`
	Category         string                      `json:"category"`
	ProductModel     string                      `json:"product_model"`
	AssigneeID       *string                     `json:"assignee_id"`
	Title            string                      `json:"title"`
	Body             string                      `json:"body"`
	Status           domain.ConversationStatus   `json:"status"`
	Priority         domain.ConversationPriority `json:"priority"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
	ClosedAt         *time.Time                  `json:"closed_at,omitempty"`
	AssignmentResult *service.AssignmentResult   `json:"assignment_result,omitempty"`
}

// ConversationListQuery captures query filters for listings.
type ConversationListQuery struct {
	Statuses    []domain.ConversationStatus
	Priorities  []domain.ConversationPriority
	AssigneeID  *string
	Category    *string
	Unassigned  bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	PageSize    int
}

// AssignRequest payload for manual assignment.
type AssignRequest struct {
	AgentID string `json:"agent_id"`
}

// AssignmentHistoryResponse is one ledger entry.
type AssignmentHistoryResponse struct {
	ID             string          `json:"id"`
	RuleID         string          `json:"rule_id"`
	RuleType       domain.RuleType `json:"rule_type"`
	ConversationID string          `json:"conversation_id"`
	AgentID        string          `json:"agent_id"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	AssignedAt     time.Time       `json:"assigned_at"`
}
