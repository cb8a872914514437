package domain

import "time"

// ConversationStatus enumerates lifecycle states for conversations.
type ConversationStatus string

const (
	ConversationStatusOpen     ConversationStatus = "OPEN"
	ConversationStatusPending  ConversationStatus = "PENDING"
	ConversationStatusResolved ConversationStatus = "RESOLVED"
	ConversationStatusClosed   ConversationStatus = "CLOSED"
)

// ConversationPriority enumerates urgency levels.
type ConversationPriority string

const (
	PriorityLow    ConversationPriority = "LOW"
	PriorityMedium ConversationPriority = "MEDIUM"
	PriorityHigh   ConversationPriority = "HIGH"
	PriorityUrgent ConversationPriority = "URGENT"
)

// Conversation is the aggregate for a support ticket. ConversationKey is
// the externally visible TKT-<YYMM>-<SEQ3> identifier; AssigneeID nil means
// unassigned and is the only field the routing engine mutates.
type Conversation struct {
	ID              string
	ConversationKey string
	CustomerID      string
	Category        string
	ProductModel    string
	AssigneeID      *string
	Title           string
	Body            string
	Status          ConversationStatus
	Priority        ConversationPriority
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClosedAt        *time.Time
}

// Assigned reports whether the conversation already has an assignee.
func (c *Conversation) Assigned() bool {
	return c.AssigneeID != nil
}

// CountsTowardLoad reports whether the conversation contributes to its
// assignee's current load.
func (s ConversationStatus) CountsTowardLoad() bool {
	return s == ConversationStatusOpen || s == ConversationStatusPending
}
