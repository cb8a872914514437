package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AgentService manages the roster administrators edit.
type AgentService struct {
	agents    repository.AgentRepository
	loadCache repository.LoadCache
	cfg       config.AuthConfig
	logger    *zap.Logger
}

// NewAgentService constructs the service.
func NewAgentService(agents repository.AgentRepository, loadCache repository.LoadCache, cfg config.AuthConfig, logger *zap.Logger) *AgentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentService{agents: agents, loadCache: loadCache, cfg: cfg, logger: logger}
}

// AgentInput describes admin-managed agent fields.
type AgentInput struct {
	Name       string
	Email      string
	Password   string
	Role       domain.AgentRole
	Department string
	Skills     []string
	Active     *bool
	MaxLoad    *int
}

// CreateAgent registers a new agent with a hashed password.
func (s *AgentService) CreateAgent(ctx context.Context, input AgentInput) (*domain.Agent, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name and email required", nil)
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}

	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	role := input.Role
	if role == "" {
		role = domain.AgentRoleAgent
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}

	agent := &domain.Agent{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Department:   strings.TrimSpace(input.Department),
		Skills:       input.Skills,
		Active:       active,
		MaxLoad:      input.MaxLoad,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// UpdateAgent edits roster fields. An empty password leaves the hash
// untouched.
func (s *AgentService) UpdateAgent(ctx context.Context, id string, input AgentInput) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": id})
		}
		return nil, apperrors.MapError(err)
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		agent.Name = name
	}
	if email := strings.ToLower(strings.TrimSpace(input.Email)); email != "" {
		agent.Email = email
	}
	if input.Password != "" {
		if len(input.Password) < 8 {
			return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
		}
		hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		agent.PasswordHash = hash
	}
	if input.Role != "" {
		agent.Role = input.Role
	}
	if dept := strings.TrimSpace(input.Department); dept != "" {
		agent.Department = dept
	}
	if input.Skills != nil {
		agent.Skills = input.Skills
	}
	if input.Active != nil {
		agent.Active = *input.Active
	}
	if input.MaxLoad != nil {
		agent.MaxLoad = input.MaxLoad
	}

	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// SetActive flips an agent's eligibility for routing.
func (s *AgentService) SetActive(ctx context.Context, id string, active bool) (*domain.Agent, error) {
	return s.UpdateAgent(ctx, id, AgentInput{Active: &active})
}

// ListAgents returns roster entries for the admin console.
func (s *AgentService) ListAgents(ctx context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	agents, err := s.agents.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return agents, nil
}

// RosterWithLoad returns the active roster with derived loads, refreshing
// the cached snapshot as a side effect. The snapshot feeds only the admin
// view; the routing engine always queries fresh.
func (s *AgentService) RosterWithLoad(ctx context.Context) ([]domain.Agent, error) {
	roster, err := s.agents.ListActiveWithLoad(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if s.loadCache != nil {
		snapshot := repository.LoadSnapshot{TakenAt: time.Now(), Loads: make(map[string]int, len(roster))}
		for _, agent := range roster {
			snapshot.Loads[agent.ID] = agent.CurrentLoad
		}
		if err := s.loadCache.Put(ctx, snapshot); err != nil {
			s.logger.Debug("load snapshot cache write failed", zap.Error(err))
		}
	}
	return roster, nil
}
