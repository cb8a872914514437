package domain

import "time"

// SubjectType differentiates agent tokens from system actors on events.
type SubjectType string

const (
	SubjectTypeCustomer SubjectType = "CUSTOMER"
	SubjectTypeAgent    SubjectType = "AGENT"
	SubjectTypeSystem   SubjectType = "SYSTEM"
)

// Token represents issued authentication token metadata.
type Token struct {
	ID        string
	SubjectID string
	Subject   SubjectType
	Role      *AgentRole
	ExpiresAt time.Time
	IssuedAt  time.Time
}
