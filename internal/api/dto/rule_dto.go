package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RuleRequest payload for creating and updating routing rules.
type RuleRequest struct {
	Name     string            `json:"name"`
	RuleType domain.RuleType   `json:"rule_type"`
	Priority int               `json:"priority"`
	Enabled  *bool             `json:"enabled"`
	Config   map[string]string `json:"config"`
}

// RuleResponse is the console view of a routing rule.
type RuleResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	RuleType  domain.RuleType   `json:"rule_type"`
	Priority  int               `json:"priority"`
	Enabled   bool              `json:"enabled"`
	Config    map[string]string `json:"config"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
