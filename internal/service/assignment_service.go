package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/routing"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// Structured reasons for not-assigned outcomes. These are results, not
// errors: an unassigned ticket is a valid state the engine reports and
// leaves for a later re-run or a manual assignment.
const (
	ReasonAlreadyAssigned = "already assigned"
	ReasonNoAgent         = "no matching rule found an available agent"
)

// assignmentLockKey serializes engine runs across processes so two
// concurrent calls cannot both read the same rotation state and advance
// to the same agent.
const assignmentLockKey = "helpdesk:assignment"

// RuleTypeManual marks ledger entries written by manual admin assignment
// rather than a strategy.
const RuleTypeManual domain.RuleType = "manual"

// AssignmentResult is the structured outcome surfaced to the
// ticket-creation API response.
type AssignmentResult struct {
	Assigned  bool            `json:"assigned"`
	AgentID   string          `json:"agent_id,omitempty"`
	AgentName string          `json:"agent_name,omitempty"`
	RuleID    string          `json:"rule_id,omitempty"`
	RuleName  string          `json:"rule_name,omitempty"`
	RuleType  domain.RuleType `json:"rule_type,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}

// AssignmentService is the rule-driven routing engine. It evaluates
// enabled rules in priority order against the active roster; the first
// strategy yielding an agent wins.
type AssignmentService struct {
	conversations repository.ConversationRepository
	agents        repository.AgentRepository
	rules         repository.RuleRepository
	ledger        repository.AssignmentHistoryRepository
	strategies    map[domain.RuleType]routing.Strategy
	locker        repository.Locker
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	ConversationRepo repository.ConversationRepository
	AgentRepo        repository.AgentRepository
	RuleRepo         repository.RuleRepository
	LedgerRepo       repository.AssignmentHistoryRepository
	Strategies       map[domain.RuleType]routing.Strategy
	Locker           repository.Locker
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger
}

// NewAssignmentService creates the engine.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		conversations: deps.ConversationRepo,
		agents:        deps.AgentRepo,
		rules:         deps.RuleRepo,
		ledger:        deps.LedgerRepo,
		strategies:    deps.Strategies,
		locker:        deps.Locker,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
	}
}

// Assign routes one conversation. An already-assigned conversation is a
// no-op returning {Assigned:false, Reason:"already assigned"} with no
// side effects, every time. An error return means the engine could not
// evaluate at all; the ticket remains valid and unassigned either way.
func (s *AssignmentService) Assign(ctx context.Context, conversationID string) (*AssignmentResult, error) {
	var result *AssignmentResult
	err := s.locker.WithLock(ctx, assignmentLockKey, func(ctx context.Context) error {
		r, err := s.assignLocked(ctx, conversationID)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *AssignmentService) assignLocked(ctx context.Context, conversationID string) (*AssignmentResult, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("conversation", map[string]any{"conversation_id": conversationID})
		}
		return nil, apperrors.MapError(err)
	}
	if conv.Assigned() {
		return &AssignmentResult{Assigned: false, Reason: ReasonAlreadyAssigned}, nil
	}

	rules, err := s.rules.ListEnabled(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	roster, err := s.agents.ListActiveWithLoad(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	for _, rule := range rules {
		strategy, ok := s.strategies[rule.RuleType]
		if !ok {
			s.logger.Warn("rule names unknown strategy",
				zap.String("rule_id", rule.ID),
				zap.String("rule_type", string(rule.RuleType)))
			continue
		}

		decision, err := strategy.Evaluate(ctx, routing.Input{
			Conversation: conv,
			Roster:       roster,
			Config:       rule.Config,
		})
		if err != nil {
			// A faulty rule must not sink the whole pass.
			s.logger.Warn("strategy evaluation failed",
				zap.String("rule_id", rule.ID),
				zap.String("rule_type", string(rule.RuleType)),
				zap.Error(err))
			continue
		}
		if decision.Agent == nil {
			continue
		}

		return s.commit(ctx, conv, rule, decision, roster)
	}

	s.metrics.RecordAssignment("", false)
	return &AssignmentResult{Assigned: false, Reason: ReasonNoAgent}, nil
}

// commit persists the winning decision. The assignee write is the one
// mutation that matters; ledger and event writes are best-effort and
// never roll it back.
func (s *AssignmentService) commit(ctx context.Context, conv *domain.Conversation, rule domain.AssignmentRule, decision routing.Decision, roster []domain.Agent) (*AssignmentResult, error) {
	agent := decision.Agent

	applied, err := s.conversations.AssignIfUnassigned(ctx, conv.ID, agent.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !applied {
		return &AssignmentResult{Assigned: false, Reason: ReasonAlreadyAssigned}, nil
	}

	metadata := map[string]any{
		"rule_name":  rule.Name,
		"agent_load": agent.CurrentLoad,
		"roster":     loadSnapshot(roster),
	}
	if decision.Fallback {
		metadata["fallback"] = true
		s.logger.Info("match strategy degraded to load-based selection",
			zap.String("rule_type", string(rule.RuleType)),
			zap.String("conversation_id", conv.ID))
	}
	if err := s.ledger.Create(ctx, &domain.AssignmentHistory{
		RuleID:         rule.ID,
		RuleType:       rule.RuleType,
		ConversationID: conv.ID,
		AgentID:        agent.ID,
		Metadata:       metadata,
	}); err != nil {
		s.logger.Error("ledger append failed", zap.String("conversation_id", conv.ID), zap.Error(err))
	}

	s.publishAssigned(ctx, conv.ID, agent.ID, rule)
	s.metrics.RecordAssignment(string(rule.RuleType), true)

	return &AssignmentResult{
		Assigned:  true,
		AgentID:   agent.ID,
		AgentName: agent.Name,
		RuleID:    rule.ID,
		RuleName:  rule.Name,
		RuleType:  rule.RuleType,
	}, nil
}

// ManualAssign applies an administrator's explicit choice, with the same
// unassigned-only guard and ledger entry as the engine path.
func (s *AssignmentService) ManualAssign(ctx context.Context, actor *domain.Agent, conversationID, agentID string) (*AssignmentResult, error) {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return nil, apperrors.MapError(err)
	}
	if !agent.Active {
		return nil, apperrors.NewConflict("agent inactive", map[string]any{"agent_id": agentID})
	}

	applied, err := s.conversations.AssignIfUnassigned(ctx, conversationID, agent.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !applied {
		return &AssignmentResult{Assigned: false, Reason: ReasonAlreadyAssigned}, nil
	}

	metadata := map[string]any{"manual": true}
	if actor != nil {
		metadata["actor_id"] = actor.ID
	}
	if err := s.ledger.Create(ctx, &domain.AssignmentHistory{
		RuleType:       RuleTypeManual,
		ConversationID: conversationID,
		AgentID:        agent.ID,
		Metadata:       metadata,
	}); err != nil {
		s.logger.Error("ledger append failed", zap.String("conversation_id", conversationID), zap.Error(err))
	}

	s.publishAssigned(ctx, conversationID, agent.ID, domain.AssignmentRule{RuleType: RuleTypeManual})
	s.metrics.RecordAssignment(string(RuleTypeManual), true)

	return &AssignmentResult{
		Assigned:  true,
		AgentID:   agent.ID,
		AgentName: agent.Name,
		RuleType:  RuleTypeManual,
	}, nil
}

// SweepUnassigned re-runs the engine over conversations still waiting for
// an agent. The engine itself never retries; this is the external re-run
// path, invoked by the cron worker or an admin.
func (s *AssignmentService) SweepUnassigned(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	pending, err := s.conversations.ListWithFilter(ctx, repository.ConversationFilter{
		Unassigned: true,
		Statuses:   []domain.ConversationStatus{domain.ConversationStatusOpen, domain.ConversationStatusPending},
		Limit:      batchSize,
	})
	if err != nil {
		return 0, apperrors.MapError(err)
	}

	assigned := 0
	for i := range pending {
		result, err := s.Assign(ctx, pending[i].ID)
		if err != nil {
			s.logger.Warn("sweep assignment failed",
				zap.String("conversation_id", pending[i].ID), zap.Error(err))
			continue
		}
		if result.Assigned {
			assigned++
		}
	}
	if len(pending) > 0 {
		s.logger.Info("assignment sweep finished",
			zap.Int("examined", len(pending)), zap.Int("assigned", assigned))
	}
	return assigned, nil
}

func (s *AssignmentService) publishAssigned(ctx context.Context, conversationID, agentID string, rule domain.AssignmentRule) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:             uuid.NewString(),
		Type:           events.EventConversationAssigned,
		ConversationID: conversationID,
		Actor:          events.Actor{Type: domain.SubjectTypeSystem},
		Timestamp:      time.Now(),
		Payload: events.ConversationAssignedPayload{
			AgentID:  agentID,
			RuleID:   rule.ID,
			RuleType: rule.RuleType,
		},
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func loadSnapshot(roster []domain.Agent) map[string]int {
	snapshot := make(map[string]int, len(roster))
	for _, agent := range roster {
		snapshot[agent.ID] = agent.CurrentLoad
	}
	return snapshot
}
