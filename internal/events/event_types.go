package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventConversationCreated  EventType = "conversation_created"
	EventConversationAssigned EventType = "conversation_assigned"
	EventCustomerCreated      EventType = "customer_created"
)

// AllEventTypes lists every event the service emits, for relays that
// subscribe to the full stream.
func AllEventTypes() []EventType {
	return []EventType{
		EventConversationCreated,
		EventConversationAssigned,
		EventCustomerCreated,
	}
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	AgentID *string            `json:"agent_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Actor          Actor       `json:"actor"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// ConversationCreatedPayload payload.
type ConversationCreatedPayload struct {
	ConversationKey string                      `json:"conversation_key"`
	CustomerID      string                      `json:"customer_id"`
	Category        string                      `json:"category"`
	Priority        domain.ConversationPriority `json:"priority"`
	Title           string                      `json:"title"`
}

// ConversationAssignedPayload payload.
type ConversationAssignedPayload struct {
	AgentID  string          `json:"agent_id"`
	RuleID   string          `json:"rule_id,omitempty"`
	RuleType domain.RuleType `json:"rule_type,omitempty"`
}

// CustomerCreatedPayload payload.
type CustomerCreatedPayload struct {
	CustomerID  string `json:"customer_id"`
	CustomerKey string `json:"customer_key"`
	Category    string `json:"category"`
}
