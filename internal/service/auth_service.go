package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AuthService handles agent login for the admin console.
type AuthService struct {
	agents repository.AgentRepository
	tokens *auth.TokenManager
	cfg    config.AuthConfig
}

// NewAuthService creates the service.
func NewAuthService(cfg config.AuthConfig, agents repository.AgentRepository) *AuthService {
	return &AuthService{
		agents: agents,
		tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		cfg:    cfg,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// LoginResult carries a signed token and its subject.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Agent     *domain.Agent
}

// Login verifies credentials and issues a JWT. Inactive agents cannot
// sign in.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}

	agent, err := s.agents.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !agent.Active {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	role := agent.Role
	token, expiresAt, err := s.tokens.GenerateToken(agent.ID, domain.SubjectTypeAgent, &role)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Agent: agent}, nil
}

// ChangePassword rotates the caller's password after verifying the old
// one.
func (s *AuthService) ChangePassword(ctx context.Context, agent *domain.Agent, oldPassword, newPassword string) error {
	if agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if len(newPassword) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	if err := auth.ComparePassword(agent.PasswordHash, oldPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}
	agent.PasswordHash = hash
	if err := s.agents.Update(ctx, agent); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
