package domain

import "time"

// AssignmentHistory is an append-only ledger entry recording one routing
// decision. Entries are never updated or deleted; round-robin recovers its
// rotation position from the most recent entry of its rule type.
type AssignmentHistory struct {
	ID             string
	RuleID         string
	RuleType       RuleType
	ConversationID string
	AgentID        string
	Metadata       map[string]any
	AssignedAt     time.Time
}
