package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/routing"
)

type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*domain.Conversation
	nextID        int
}

func newFakeConversationRepo(convs ...*domain.Conversation) *fakeConversationRepo {
	repo := &fakeConversationRepo{conversations: map[string]*domain.Conversation{}}
	for _, conv := range convs {
		repo.conversations[conv.ID] = conv
	}
	return repo
}

func (f *fakeConversationRepo) Create(ctx context.Context, conv *domain.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if conv.ID == "" {
		f.nextID++
		conv.ID = "conv-" + string(rune('0'+f.nextID))
	}
	for _, existing := range f.conversations {
		if existing.ConversationKey == conv.ConversationKey {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	stored := *conv
	f.conversations[conv.ID] = &stored
	return nil
}

func (f *fakeConversationRepo) Update(ctx context.Context, conv *domain.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.conversations[conv.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *conv
	f.conversations[conv.ID] = &stored
	return nil
}

func (f *fakeConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *conv
	return &copied, nil
}

func (f *fakeConversationRepo) GetByKey(ctx context.Context, key string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conv := range f.conversations {
		if conv.ConversationKey == key {
			copied := *conv
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeConversationRepo) ListWithFilter(ctx context.Context, filter repository.ConversationFilter) ([]domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Conversation
	for _, conv := range f.conversations {
		if filter.Unassigned && conv.AssigneeID != nil {
			continue
		}
		out = append(out, *conv)
	}
	return out, nil
}

func (f *fakeConversationRepo) AssignIfUnassigned(ctx context.Context, id, agentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if conv.AssigneeID != nil {
		return false, nil
	}
	assigned := agentID
	conv.AssigneeID = &assigned
	return true, nil
}

func (f *fakeConversationRepo) MaxKeySuffix(ctx context.Context, prefix string) (int64, error) {
	return 0, nil
}

type fakeAgentRepo struct {
	agents []domain.Agent
}

func (f *fakeAgentRepo) Create(ctx context.Context, agent *domain.Agent) error { return nil }
func (f *fakeAgentRepo) Update(ctx context.Context, agent *domain.Agent) error { return nil }

func (f *fakeAgentRepo) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	for i := range f.agents {
		if f.agents[i].ID == id {
			copied := f.agents[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAgentRepo) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	for i := range f.agents {
		if f.agents[i].Email == email {
			copied := f.agents[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAgentRepo) List(ctx context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	return append([]domain.Agent(nil), f.agents...), nil
}

func (f *fakeAgentRepo) ListActiveWithLoad(ctx context.Context) ([]domain.Agent, error) {
	var out []domain.Agent
	for _, agent := range f.agents {
		if agent.Active {
			out = append(out, agent)
		}
	}
	return out, nil
}

type fakeRuleRepo struct {
	rules []domain.AssignmentRule
}

func (f *fakeRuleRepo) Create(ctx context.Context, rule *domain.AssignmentRule) error { return nil }
func (f *fakeRuleRepo) Update(ctx context.Context, rule *domain.AssignmentRule) error { return nil }
func (f *fakeRuleRepo) Delete(ctx context.Context, id string) error                   { return nil }

func (f *fakeRuleRepo) GetByID(ctx context.Context, id string) (*domain.AssignmentRule, error) {
	return nil, pgx.ErrNoRows
}

func (f *fakeRuleRepo) List(ctx context.Context) ([]domain.AssignmentRule, error) {
	return append([]domain.AssignmentRule(nil), f.rules...), nil
}

func (f *fakeRuleRepo) ListEnabled(ctx context.Context) ([]domain.AssignmentRule, error) {
	var out []domain.AssignmentRule
	for _, rule := range f.rules {
		if rule.Enabled {
			out = append(out, rule)
		}
	}
	return out, nil
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []domain.AssignmentHistory
}

func (f *fakeLedger) Create(ctx context.Context, entry *domain.AssignmentHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeLedger) ListByConversation(ctx context.Context, conversationID string) ([]domain.AssignmentHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AssignmentHistory
	for _, entry := range f.entries {
		if entry.ConversationID == conversationID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeLedger) LastAssignee(ctx context.Context, ruleType domain.RuleType) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].RuleType == ruleType {
			id := f.entries[i].AgentID
			return &id, nil
		}
	}
	return nil, nil
}

type fakeLocker struct {
	mu sync.Mutex
}

func (f *fakeLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(ctx)
}

// erroringStrategy always fails, standing in for a rule with broken config.
type erroringStrategy struct{ name domain.RuleType }

func (s *erroringStrategy) Name() domain.RuleType { return s.name }
func (s *erroringStrategy) Evaluate(ctx context.Context, in routing.Input) (routing.Decision, error) {
	return routing.Decision{}, errors.New("boom")
}

func unassignedConversation(id string) *domain.Conversation {
	return &domain.Conversation{
		ID:              id,
		ConversationKey: "TKT-2501-001",
		Category:        "billing",
		Status:          domain.ConversationStatusOpen,
	}
}

func enabledRule(id string, ruleType domain.RuleType, priority int) domain.AssignmentRule {
	return domain.AssignmentRule{ID: id, Name: id, RuleType: ruleType, Priority: priority, Enabled: true}
}

func newEngine(convRepo *fakeConversationRepo, agents *fakeAgentRepo, rules *fakeRuleRepo, ledger *fakeLedger) *AssignmentService {
	return NewAssignmentService(AssignmentDependencies{
		ConversationRepo: convRepo,
		AgentRepo:        agents,
		RuleRepo:         rules,
		LedgerRepo:       ledger,
		Strategies:       routing.DefaultStrategies(ledger),
		Locker:           &fakeLocker{},
		Metrics:          observability.NewMetrics(),
		Logger:           zap.NewNop(),
	})
}

func TestAssignPicksLeastLoadedAgent(t *testing.T) {
	convRepo := newFakeConversationRepo(unassignedConversation("c1"))
	agents := &fakeAgentRepo{agents: []domain.Agent{
		{ID: "a", Active: true, CurrentLoad: 2},
		{ID: "b", Active: true, CurrentLoad: 0},
		{ID: "c", Active: true, CurrentLoad: 5},
	}}
	rules := &fakeRuleRepo{rules: []domain.AssignmentRule{enabledRule("r1", domain.RuleTypeLoadBased, 10)}}
	ledger := &fakeLedger{}
	engine := newEngine(convRepo, agents, rules, ledger)

	result, err := engine.Assign(context.Background(), "c1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if !result.Assigned || result.AgentID != "b" {
		t.Fatalf("expected least-loaded agent b, got %+v", result)
	}
	conv, _ := convRepo.GetByID(context.Background(), "c1")
	if conv.AssigneeID == nil || *conv.AssigneeID != "b" {
		t.Fatalf("assignee not persisted: %v", conv.AssigneeID)
	}
	if len(ledger.entries) != 1 || ledger.entries[0].RuleType != domain.RuleTypeLoadBased {
		t.Fatalf("expected one ledger entry, got %+v", ledger.entries)
	}
	if got := engine.metrics.AssignmentCount(string(domain.RuleTypeLoadBased), true); got != 1 {
		t.Fatalf("expected one recorded assignment, got %d", got)
	}
}

func TestAssignAlreadyAssignedIsIdempotentNoOp(t *testing.T) {
	assignee := "z"
	conv := unassignedConversation("c1")
	conv.AssigneeID = &assignee
	convRepo := newFakeConversationRepo(conv)
	ledger := &fakeLedger{}
	engine := newEngine(convRepo, &fakeAgentRepo{}, &fakeRuleRepo{}, ledger)

	for i := 0; i < 2; i++ {
		result, err := engine.Assign(context.Background(), "c1")
		if err != nil {
			t.Fatalf("assign %d: %v", i, err)
		}
		if result.Assigned || result.Reason != ReasonAlreadyAssigned {
			t.Fatalf("assign %d: expected already-assigned no-op, got %+v", i, result)
		}
	}
	if len(ledger.entries) != 0 {
		t.Fatalf("no-op must not write ledger entries, got %d", len(ledger.entries))
	}
	got, _ := convRepo.GetByID(context.Background(), "c1")
	if *got.AssigneeID != "z" {
		t.Fatalf("assignee changed: %s", *got.AssigneeID)
	}
}

func TestAssignEmptyRosterLeavesTicketUnassigned(t *testing.T) {
	convRepo := newFakeConversationRepo(unassignedConversation("c1"))
	rules := &fakeRuleRepo{rules: []domain.AssignmentRule{enabledRule("r1", domain.RuleTypeLoadBased, 10)}}
	engine := newEngine(convRepo, &fakeAgentRepo{}, rules, &fakeLedger{})

	result, err := engine.Assign(context.Background(), "c1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if result.Assigned || result.Reason != ReasonNoAgent {
		t.Fatalf("expected no-agent outcome, got %+v", result)
	}
	conv, _ := convRepo.GetByID(context.Background(), "c1")
	if conv.AssigneeID != nil {
		t.Fatalf("conversation must stay unassigned")
	}
}

func TestAssignFirstMatchingRuleWins(t *testing.T) {
	convRepo := newFakeConversationRepo(unassignedConversation("c1"))
	agents := &fakeAgentRepo{agents: []domain.Agent{
		{ID: "generalist", Active: true, Department: "general", CurrentLoad: 0},
		{ID: "biller", Active: true, Department: "billing", CurrentLoad: 3},
	}}
	rules := &fakeRuleRepo{rules: []domain.AssignmentRule{
		enabledRule("dept", domain.RuleTypeDepartmentMatch, 1),
		enabledRule("load", domain.RuleTypeLoadBased, 2),
	}}
	engine := newEngine(convRepo, agents, rules, &fakeLedger{})

	result, err := engine.Assign(context.Background(), "c1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if result.AgentID != "biller" || result.RuleID != "dept" {
		t.Fatalf("expected department rule to win, got %+v", result)
	}
}

func TestAssignSkipsDisabledRules(t *testing.T) {
	convRepo := newFakeConversationRepo(unassignedConversation("c1"))
	agents := &fakeAgentRepo{agents: []domain.Agent{{ID: "a", Active: true}}}
	disabled := enabledRule("off", domain.RuleTypeRoundRobin, 1)
	disabled.Enabled = false
	rules := &fakeRuleRepo{rules: []domain.AssignmentRule{
		disabled,
		enabledRule("on", domain.RuleTypeLoadBased, 2),
	}}
	engine := newEngine(convRepo, agents, rules, &fakeLedger{})

	result, err := engine.Assign(context.Background(), "c1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if result.RuleID != "on" {
		t.Fatalf("disabled rule must not fire, got %+v", result)
	}
}

func TestAssignSkipsUnknownAndFailingRules(t *testing.T) {
	convRepo := newFakeConversationRepo(unassignedConversation("c1"))
	agents := &fakeAgentRepo{agents: []domain.Agent{{ID: "a", Active: true}}}
	rules := &fakeRuleRepo{rules: []domain.AssignmentRule{
		enabledRule("mystery", domain.RuleType("no_such_strategy"), 1),
		enabledRule("broken", domain.RuleType("erroring"), 2),
		enabledRule("works", domain.RuleTypeLoadBased, 3),
	}}
	ledger := &fakeLedger{}
	engine := NewAssignmentService(AssignmentDependencies{
		ConversationRepo: convRepo,
		AgentRepo:        agents,
		RuleRepo:         rules,
		LedgerRepo:       ledger,
		Strategies: func() map[domain.RuleType]routing.Strategy {
			m := routing.DefaultStrategies(ledger)
			m["erroring"] = &erroringStrategy{name: "erroring"}
			return m
		}(),
		Locker: &fakeLocker{},
		Logger: zap.NewNop(),
	})

	result, err := engine.Assign(context.Background(), "c1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if !result.Assigned || result.RuleID != "works" {
		t.Fatalf("expected pass to continue past faulty rules, got %+v", result)
	}
}

func TestAssignRoundRobinRotatesAcrossCalls(t *testing.T) {
	agents := &fakeAgentRepo{agents: []domain.Agent{
		{ID: "a", Active: true},
		{ID: "b", Active: true},
		{ID: "c", Active: true},
	}}
	rules := &fakeRuleRepo{rules: []domain.AssignmentRule{enabledRule("rr", domain.RuleTypeRoundRobin, 1)}}
	ledger := &fakeLedger{}

	want := []string{"a", "b", "c", "a"}
	for i, expected := range want {
		id := "conv" + string(rune('0'+i))
		convRepo := newFakeConversationRepo(unassignedConversation(id))
		engine := newEngine(convRepo, agents, rules, ledger)

		result, err := engine.Assign(context.Background(), id)
		if err != nil {
			t.Fatalf("assign %d: %v", i, err)
		}
		if result.AgentID != expected {
			t.Fatalf("rotation step %d: got %s, want %s", i, result.AgentID, expected)
		}
	}
}

func TestAssignFallbackRecordedInLedger(t *testing.T) {
	convRepo := newFakeConversationRepo(unassignedConversation("c1"))
	agents := &fakeAgentRepo{agents: []domain.Agent{
		{ID: "a", Active: true, Department: "technical", CurrentLoad: 1},
	}}
	rules := &fakeRuleRepo{rules: []domain.AssignmentRule{enabledRule("dept", domain.RuleTypeDepartmentMatch, 1)}}
	ledger := &fakeLedger{}
	engine := newEngine(convRepo, agents, rules, ledger)

	result, err := engine.Assign(context.Background(), "c1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if !result.Assigned {
		t.Fatalf("degrade path must still assign, got %+v", result)
	}
	if len(ledger.entries) != 1 {
		t.Fatalf("expected ledger entry, got %d", len(ledger.entries))
	}
	if fallback, _ := ledger.entries[0].Metadata["fallback"].(bool); !fallback {
		t.Fatalf("ledger must mark the degrade, got %+v", ledger.entries[0].Metadata)
	}
}

func TestManualAssignGuardsAndLedger(t *testing.T) {
	convRepo := newFakeConversationRepo(unassignedConversation("c1"))
	agents := &fakeAgentRepo{agents: []domain.Agent{
		{ID: "a", Name: "Ada", Active: true},
		{ID: "inactive", Active: false},
	}}
	ledger := &fakeLedger{}
	engine := newEngine(convRepo, agents, &fakeRuleRepo{}, ledger)
	actor := &domain.Agent{ID: "admin-1"}

	if _, err := engine.ManualAssign(context.Background(), actor, "c1", "inactive"); err == nil {
		t.Fatal("assigning to an inactive agent must fail")
	}

	result, err := engine.ManualAssign(context.Background(), actor, "c1", "a")
	if err != nil {
		t.Fatalf("manual assign: %v", err)
	}
	if !result.Assigned || result.AgentID != "a" || result.RuleType != RuleTypeManual {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(ledger.entries) != 1 || ledger.entries[0].RuleType != RuleTypeManual {
		t.Fatalf("expected manual ledger entry, got %+v", ledger.entries)
	}
	if ledger.entries[0].Metadata["actor_id"] != "admin-1" {
		t.Fatalf("ledger must record the actor, got %+v", ledger.entries[0].Metadata)
	}

	again, err := engine.ManualAssign(context.Background(), actor, "c1", "a")
	if err != nil {
		t.Fatalf("second manual assign: %v", err)
	}
	if again.Assigned || again.Reason != ReasonAlreadyAssigned {
		t.Fatalf("second manual assign must be a no-op, got %+v", again)
	}
}

func TestSweepUnassignedRetriesStrandedConversations(t *testing.T) {
	convRepo := newFakeConversationRepo(
		unassignedConversation("c1"),
		unassignedConversation("c2"),
	)
	agents := &fakeAgentRepo{agents: []domain.Agent{{ID: "a", Active: true}}}
	rules := &fakeRuleRepo{rules: []domain.AssignmentRule{enabledRule("load", domain.RuleTypeLoadBased, 1)}}
	engine := newEngine(convRepo, agents, rules, &fakeLedger{})

	assigned, err := engine.SweepUnassigned(context.Background(), 10)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if assigned != 2 {
		t.Fatalf("expected 2 assignments, got %d", assigned)
	}

	again, err := engine.SweepUnassigned(context.Background(), 10)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if again != 0 {
		t.Fatalf("second sweep must find nothing, got %d", again)
	}
}

func TestConcurrentAssignWritesExactlyOnce(t *testing.T) {
	convRepo := newFakeConversationRepo(unassignedConversation("c1"))
	agents := &fakeAgentRepo{agents: []domain.Agent{{ID: "a", Active: true}}}
	rules := &fakeRuleRepo{rules: []domain.AssignmentRule{enabledRule("load", domain.RuleTypeLoadBased, 1)}}
	ledger := &fakeLedger{}
	engine := newEngine(convRepo, agents, rules, ledger)

	const n = 10
	results := make(chan *AssignmentResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := engine.Assign(context.Background(), "c1")
			if err != nil {
				t.Errorf("assign: %v", err)
				return
			}
			results <- result
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for result := range results {
		if result.Assigned {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning assignment, got %d", wins)
	}
	if len(ledger.entries) != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", len(ledger.entries))
	}
}
