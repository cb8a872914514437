package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AgentsHandler manages console agent administration endpoints.
type AgentsHandler struct {
	agents *service.AgentService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agents *service.AgentService) *AgentsHandler {
	return &AgentsHandler{agents: agents}
}

// CreateAgent POST /agents.
func (h *AgentsHandler) CreateAgent(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agent, err := h.agents.CreateAgent(c.Context(), service.AgentInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Role:       req.Role,
		Department: req.Department,
		Skills:     req.Skills,
		MaxLoad:    req.MaxLoad,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": agentResponse(agent)})
}

// UpdateAgent PUT /agents/:id.
func (h *AgentsHandler) UpdateAgent(c *fiber.Ctx) error {
	var req dto.UpdateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agent, err := h.agents.UpdateAgent(c.Context(), c.Params("id"), service.AgentInput{
		Name:       req.Name,
		Password:   req.Password,
		Role:       req.Role,
		Department: req.Department,
		Skills:     req.Skills,
		Active:     req.Active,
		MaxLoad:    req.MaxLoad,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponse(agent)})
}

// SetActive POST /agents/:id/active.
func (h *AgentsHandler) SetActive(c *fiber.Ctx) error {
	var req dto.SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agent, err := h.agents.SetActive(c.Context(), c.Params("id"), req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponse(agent)})
}

// ListAgents GET /agents.
func (h *AgentsHandler) ListAgents(c *fiber.Ctx) error {
	filter := repository.AgentFilter{}
	if dept := c.Query("department"); dept != "" {
		filter.Department = &dept
	}
	if activeStr := c.Query("active"); activeStr != "" {
		active := strings.EqualFold(activeStr, "true")
		filter.Active = &active
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	agents, err := h.agents.ListAgents(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, agentResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Roster GET /agents/roster. Returns active agents with live load.
func (h *AgentsHandler) Roster(c *fiber.Ctx) error {
	agents, err := h.agents.RosterWithLoad(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, agentResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func agentResponse(agent *domain.Agent) dto.AgentResponse {
	return dto.AgentResponse{
		ID:          agent.ID,
		Name:        agent.Name,
		Email:       agent.Email,
		Role:        agent.Role,
		Department:  agent.Department,
		Skills:      agent.Skills,
		Active:      agent.Active,
		MaxLoad:     agent.MaxLoad,
		CurrentLoad: agent.CurrentLoad,
		CreatedAt:   agent.CreatedAt,
		UpdatedAt:   agent.UpdatedAt,
	}
}
