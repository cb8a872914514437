package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type memRuleRepo struct {
	rules  map[string]*domain.AssignmentRule
	nextID int
}

func newMemRuleRepo() *memRuleRepo {
	return &memRuleRepo{rules: map[string]*domain.AssignmentRule{}}
}

func (m *memRuleRepo) Create(ctx context.Context, rule *domain.AssignmentRule) error {
	m.nextID++
	rule.ID = fmt.Sprintf("rule-%d", m.nextID)
	stored := *rule
	m.rules[rule.ID] = &stored
	return nil
}

func (m *memRuleRepo) Update(ctx context.Context, rule *domain.AssignmentRule) error {
	if _, ok := m.rules[rule.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *rule
	m.rules[rule.ID] = &stored
	return nil
}

func (m *memRuleRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.rules[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.rules, id)
	return nil
}

func (m *memRuleRepo) GetByID(ctx context.Context, id string) (*domain.AssignmentRule, error) {
	rule, ok := m.rules[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *rule
	return &copied, nil
}

func (m *memRuleRepo) List(ctx context.Context) ([]domain.AssignmentRule, error) {
	var out []domain.AssignmentRule
	for _, rule := range m.rules {
		out = append(out, *rule)
	}
	return out, nil
}

func (m *memRuleRepo) ListEnabled(ctx context.Context) ([]domain.AssignmentRule, error) {
	var out []domain.AssignmentRule
	for _, rule := range m.rules {
		if rule.Enabled {
			out = append(out, *rule)
		}
	}
	return out, nil
}

func TestCreateRuleDefaultsAndValidation(t *testing.T) {
	svc := NewRuleService(newMemRuleRepo())

	rule, err := svc.CreateRule(context.Background(), RuleInput{
		Name:     "route billing",
		RuleType: domain.RuleTypeDepartmentMatch,
		Priority: 10,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !rule.Enabled {
		t.Fatal("rules must default to enabled")
	}
	if rule.Config == nil {
		t.Fatal("config must default to an empty map")
	}

	if _, err := svc.CreateRule(context.Background(), RuleInput{
		Name:     "bad",
		RuleType: domain.RuleType("weighted_lottery"),
	}); err == nil {
		t.Fatal("unknown rule type must be rejected")
	}
}

func TestUpdateRulePartialEdit(t *testing.T) {
	repo := newMemRuleRepo()
	svc := NewRuleService(repo)

	created, err := svc.CreateRule(context.Background(), RuleInput{
		Name:     "original",
		RuleType: domain.RuleTypeRoundRobin,
		Priority: 5,
		Config:   map[string]string{"default_department": "billing"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	disabled := false
	updated, err := svc.UpdateRule(context.Background(), created.ID, RuleInput{Enabled: &disabled})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Enabled {
		t.Fatal("rule must be disabled")
	}
	if updated.Name != "original" || updated.Priority != 5 {
		t.Fatalf("untouched fields must survive: %+v", updated)
	}
	if updated.Config["default_department"] != "billing" {
		t.Fatalf("config must survive: %+v", updated.Config)
	}

	if _, err := svc.UpdateRule(context.Background(), created.ID, RuleInput{RuleType: "bogus"}); err == nil {
		t.Fatal("unknown rule type on update must be rejected")
	}
	if _, err := svc.UpdateRule(context.Background(), "missing", RuleInput{}); err == nil {
		t.Fatal("updating a missing rule must fail")
	}
}

func TestDeleteRule(t *testing.T) {
	repo := newMemRuleRepo()
	svc := NewRuleService(repo)

	created, err := svc.CreateRule(context.Background(), RuleInput{
		Name:     "temp",
		RuleType: domain.RuleTypeSkillMatch,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.DeleteRule(context.Background(), created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteRule(context.Background(), created.ID); err == nil {
		t.Fatal("deleting a missing rule must fail")
	}
}
