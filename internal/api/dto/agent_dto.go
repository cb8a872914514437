package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateAgentRequest payload.
type CreateAgentRequest struct {
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Password   string           `json:"password"`
	Role       domain.AgentRole `json:"role"`
	Department string           `json:"department"`
	Skills     []string         `json:"skills"`
	MaxLoad    *int             `json:"max_load"`
}

// UpdateAgentRequest payload. Zero-value fields are left unchanged;
// Password rotates the credential when present.
type UpdateAgentRequest struct {
	Name       string           `json:"name"`
	Password   string           `json:"password"`
	Role       domain.AgentRole `json:"role"`
	Department string           `json:"department"`
	Skills     []string         `json:"skills"`
	Active     *bool            `json:"active"`
	MaxLoad    *int             `json:"max_load"`
}

// AgentResponse is the console view of an agent. CurrentLoad is only
// populated on roster endpoints.
type AgentResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Role        domain.AgentRole `json:"role"`
	Department  string           `json:"department"`
	Skills      []string         `json:"skills"`
	Active      bool             `json:"active"`
	MaxLoad     *int             `json:"max_load"`
	CurrentLoad int              `json:"current_load"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// SetActiveRequest payload for activate/deactivate.
type SetActiveRequest struct {
	Active bool `json:"active"`
}
