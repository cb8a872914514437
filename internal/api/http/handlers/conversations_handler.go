package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ConversationsHandler manages conversation intake and routing endpoints.
type ConversationsHandler struct {
	conversations *service.ConversationService
	assigner      *service.AssignmentService
	history       repository.AssignmentHistoryRepository
}

// NewConversationsHandler constructs handler.
func NewConversationsHandler(conversations *service.ConversationService, assigner *service.AssignmentService, history repository.AssignmentHistoryRepository) *ConversationsHandler {
	return &ConversationsHandler{conversations: conversations, assigner: assigner, history: history}
}

// CreateConversation POST /conversations.
func (h *ConversationsHandler) CreateConversation(c *fiber.Ctx) error {
	var req dto.CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.ConversationCreateInput{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Category:      req.Category,
		ProductModel:  req.ProductModel,
		Title:         req.Title,
		Body:          req.Body,
		Priority:      req.Priority,
	}
	conv, result, err := h.conversations.CreateConversation(c.Context(), input)
	if err != nil {
		return err
	}
	resp := conversationResponse(conv)
	resp.AssignmentResult = result
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": resp})
}

// GetConversation GET /conversations/:key.
func (h *ConversationsHandler) GetConversation(c *fiber.Ctx) error {
	conv, err := h.conversations.GetByKey(c.Context(), c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": conversationResponse(conv)})
}

// ListConversations GET /conversations.
func (h *ConversationsHandler) ListConversations(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	filter := parseConversationQuery(c)
	convs, err := h.conversations.List(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.ConversationResponse, 0, len(convs))
	for i := range convs {
		items = append(items, conversationResponse(&convs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AutoAssign POST /conversations/:id/assign/auto.
func (h *ConversationsHandler) AutoAssign(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	result, err := h.assigner.Assign(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// ManualAssign POST /conversations/:id/assign.
func (h *ConversationsHandler) ManualAssign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AgentID == "" {
		return apperrors.NewValidationError("agent_id required", nil)
	}
	result, err := h.assigner.ManualAssign(c.UserContext(), principal.Agent, c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// ListHistory GET /conversations/:id/history.
func (h *ConversationsHandler) ListHistory(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	entries, err := h.history.ListByConversation(c.Context(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.AssignmentHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.AssignmentHistoryResponse{
			ID:             entry.ID,
			RuleID:         entry.RuleID,
			RuleType:       entry.RuleType,
			ConversationID: entry.ConversationID,
			AgentID:        entry.AgentID,
			Metadata:       entry.Metadata,
			AssignedAt:     entry.AssignedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseConversationQuery(c *fiber.Ctx) repository.ConversationFilter {
	filter := repository.ConversationFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.ConversationStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.ConversationPriority(strings.TrimSpace(part)))
		}
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		filter.AssigneeID = &assignee
	}
	if category := c.Query("category"); category != "" {
		filter.Category = &category
	}
	filter.Unassigned = c.QueryBool("unassigned")
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func conversationResponse(conv *domain.Conversation) dto.ConversationResponse {
	return dto.ConversationResponse{
		ID:              conv.ID,
		ConversationKey: conv.ConversationKey,
		CustomerID:      conv.CustomerID,
		Category:        conv.Category,
		ProductModel:    conv.ProductModel,
		AssigneeID:      conv.AssigneeID,
		Title:           conv.Title,
		Body:            conv.Body,
		Status:          conv.Status,
		Priority:        conv.Priority,
		CreatedAt:       conv.CreatedAt,
		UpdatedAt:       conv.UpdatedAt,
		ClosedAt:        conv.ClosedAt,
	}
}
