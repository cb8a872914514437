package service

import (
	"context"
	"testing"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 15,
		BcryptCost:            4,
	}
}

func testAgent(t *testing.T, active bool) domain.Agent {
	t.Helper()
	hash, err := auth.HashPassword("correct-horse", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return domain.Agent{
		ID:           "agent-1",
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: hash,
		Role:         domain.AgentRoleAdmin,
		Active:       active,
	}
}

func TestLoginIssuesParsableToken(t *testing.T) {
	svc := NewAuthService(testAuthConfig(), &fakeAgentRepo{agents: []domain.Agent{testAgent(t, true)}})

	result, err := svc.Login(context.Background(), " Ada@Example.com ", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token == "" || result.Agent.ID != "agent-1" {
		t.Fatalf("unexpected result %+v", result)
	}

	claims, err := svc.TokenManager().ParseToken(result.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.SubjectID != "agent-1" || claims.Subject != domain.SubjectTypeAgent {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Role == nil || *claims.Role != domain.AgentRoleAdmin {
		t.Fatalf("role claim missing: %+v", claims.Role)
	}
}

func TestLoginRejectsBadCredentialsAndInactiveAgents(t *testing.T) {
	active := testAgent(t, true)
	inactive := testAgent(t, false)
	inactive.ID = "agent-2"
	inactive.Email = "idle@example.com"
	svc := NewAuthService(testAuthConfig(), &fakeAgentRepo{agents: []domain.Agent{active, inactive}})

	if _, err := svc.Login(context.Background(), "ada@example.com", "wrong"); err == nil {
		t.Fatal("wrong password must fail")
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "correct-horse"); err == nil {
		t.Fatal("unknown email must fail")
	}
	if _, err := svc.Login(context.Background(), "idle@example.com", "correct-horse"); err == nil {
		t.Fatal("inactive agent must not sign in")
	}
	if _, err := svc.Login(context.Background(), "", ""); err == nil {
		t.Fatal("empty credentials must fail")
	}
}

func TestChangePassword(t *testing.T) {
	agent := testAgent(t, true)
	svc := NewAuthService(testAuthConfig(), &fakeAgentRepo{agents: []domain.Agent{agent}})

	if err := svc.ChangePassword(context.Background(), &agent, "wrong", "new-password-1"); err == nil {
		t.Fatal("wrong old password must fail")
	}
	if err := svc.ChangePassword(context.Background(), &agent, "correct-horse", "short"); err == nil {
		t.Fatal("short new password must fail")
	}
	if err := svc.ChangePassword(context.Background(), &agent, "correct-horse", "new-password-1"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if err := auth.ComparePassword(agent.PasswordHash, "new-password-1"); err != nil {
		t.Fatalf("new password must verify: %v", err)
	}
}
