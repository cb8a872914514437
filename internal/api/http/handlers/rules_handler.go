package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// RulesHandler manages routing rule administration endpoints.
type RulesHandler struct {
	rules *service.RuleService
}

// NewRulesHandler constructs handler.
func NewRulesHandler(rules *service.RuleService) *RulesHandler {
	return &RulesHandler{rules: rules}
}

// CreateRule POST /rules.
func (h *RulesHandler) CreateRule(c *fiber.Ctx) error {
	var req dto.RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.rules.CreateRule(c.Context(), ruleInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ruleResponse(rule)})
}

// UpdateRule PUT /rules/:id.
func (h *RulesHandler) UpdateRule(c *fiber.Ctx) error {
	var req dto.RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.rules.UpdateRule(c.Context(), c.Params("id"), ruleInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ruleResponse(rule)})
}

// DeleteRule DELETE /rules/:id.
func (h *RulesHandler) DeleteRule(c *fiber.Ctx) error {
	if err := h.rules.DeleteRule(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListRules GET /rules.
func (h *RulesHandler) ListRules(c *fiber.Ctx) error {
	rules, err := h.rules.ListRules(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.RuleResponse, 0, len(rules))
	for i := range rules {
		items = append(items, ruleResponse(&rules[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func ruleInput(req dto.RuleRequest) service.RuleInput {
	return service.RuleInput{
		Name:     req.Name,
		RuleType: req.RuleType,
		Priority: req.Priority,
		Enabled:  req.Enabled,
		Config:   req.Config,
	}
}

func ruleResponse(rule *domain.AssignmentRule) dto.RuleResponse {
	return dto.RuleResponse{
		ID:        rule.ID,
		Name:      rule.Name,
		RuleType:  rule.RuleType,
		Priority:  rule.Priority,
		Enabled:   rule.Enabled,
		Config:    rule.Config,
		CreatedAt: rule.CreatedAt,
		UpdatedAt: rule.UpdatedAt,
	}
}
