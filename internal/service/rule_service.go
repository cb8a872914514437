package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// RuleService manages the administrator-facing rule registry.
type RuleService struct {
	rules repository.RuleRepository
}

// NewRuleService constructs the service.
func NewRuleService(rules repository.RuleRepository) *RuleService {
	return &RuleService{rules: rules}
}

// RuleInput describes admin-managed rule fields.
type RuleInput struct {
	Name     string
	RuleType domain.RuleType
	Priority int
	Enabled  *bool
	Config   map[string]string
}

// CreateRule registers a routing rule. The rule type must name a shipped
// strategy; config stays opaque and is validated lazily by the strategy.
func (s *RuleService) CreateRule(ctx context.Context, input RuleInput) (*domain.AssignmentRule, error) {
	if !domain.KnownRuleType(input.RuleType) {
		return nil, apperrors.NewValidationError("unknown rule_type", map[string]any{"rule_type": input.RuleType})
	}
	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}
	rule := &domain.AssignmentRule{
		Name:     input.Name,
		RuleType: input.RuleType,
		Priority: input.Priority,
		Enabled:  enabled,
		Config:   input.Config,
	}
	if rule.Config == nil {
		rule.Config = map[string]string{}
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return rule, nil
}

// UpdateRule edits a rule.
func (s *RuleService) UpdateRule(ctx context.Context, id string, input RuleInput) (*domain.AssignmentRule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("rule", map[string]any{"rule_id": id})
		}
		return nil, apperrors.MapError(err)
	}

	if input.Name != "" {
		rule.Name = input.Name
	}
	if input.RuleType != "" {
		if !domain.KnownRuleType(input.RuleType) {
			return nil, apperrors.NewValidationError("unknown rule_type", map[string]any{"rule_type": input.RuleType})
		}
		rule.RuleType = input.RuleType
	}
	if input.Priority != 0 {
		rule.Priority = input.Priority
	}
	if input.Enabled != nil {
		rule.Enabled = *input.Enabled
	}
	if input.Config != nil {
		rule.Config = input.Config
	}

	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return rule, nil
}

// DeleteRule removes a rule from the registry.
func (s *RuleService) DeleteRule(ctx context.Context, id string) error {
	if err := s.rules.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("rule", map[string]any{"rule_id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// ListRules returns all rules in evaluation order.
func (s *RuleService) ListRules(ctx context.Context) ([]domain.AssignmentRule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rules, nil
}
