package routing

import (
	"context"
	"strconv"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// DefaultDepartment is the department tag assumed for conversations
// without a category.
const DefaultDepartment = "general"

// Input carries everything a strategy may consult: the conversation being
// routed, the active roster annotated with current load and ordered by
// creation time, and the opaque config of the rule that invoked the
// strategy.
type Input struct {
	Conversation *domain.Conversation
	Roster       []domain.Agent
	Config       map[string]string
}

// Decision is the outcome of one strategy evaluation. A nil Agent means
// the strategy found nobody. Fallback marks that a match-based strategy
// degraded to whole-roster load selection.
type Decision struct {
	Agent    *domain.Agent
	Fallback bool
}

// Strategy is a pure decision function mapping a ticket and roster to a
// chosen agent or none. Implementations must not mutate shared state;
// persistence belongs to the engine.
type Strategy interface {
	Name() domain.RuleType
	Evaluate(ctx context.Context, in Input) (Decision, error)
}

// RotationSource recovers round-robin rotation state from the assignment
// ledger.
type RotationSource interface {
	LastAssignee(ctx context.Context, ruleType domain.RuleType) (*string, error)
}

// DefaultStrategies returns the four shipped strategies keyed by rule
// type. New strategies register here; the engine dispatches by lookup and
// never switches on type tags.
func DefaultStrategies(rotation RotationSource) map[domain.RuleType]Strategy {
	strategies := []Strategy{
		NewRoundRobin(rotation),
		NewLoadBased(),
		NewDepartmentMatch(),
		NewSkillMatch(),
	}
	byType := make(map[domain.RuleType]Strategy, len(strategies))
	for _, s := range strategies {
		byType[s.Name()] = s
	}
	return byType
}

// minLoadAgent selects the agent with the lowest current load, preferring
// agents strictly under their cap. Ties break by slice order, which is
// roster registration order. When every agent is at or over cap the
// global minimum wins anyway: tickets must not go unassigned merely
// because everyone is full.
func minLoadAgent(agents []domain.Agent, fallbackCap int) *domain.Agent {
	if len(agents) == 0 {
		return nil
	}
	var underCap *domain.Agent
	var overall *domain.Agent
	for i := range agents {
		agent := &agents[i]
		if overall == nil || agent.CurrentLoad < overall.CurrentLoad {
			overall = agent
		}
		if agent.OverCap(fallbackCap) {
			continue
		}
		if underCap == nil || agent.CurrentLoad < underCap.CurrentLoad {
			underCap = agent
		}
	}
	if underCap != nil {
		return underCap
	}
	return overall
}

// configInt reads an integer config value, falling back on absent or
// malformed entries.
func configInt(cfg map[string]string, key string, fallback int) int {
	raw, ok := cfg[key]
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return parsed
}

// configString reads a string config value with a fallback.
func configString(cfg map[string]string, key, fallback string) string {
	raw, ok := cfg[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	return strings.TrimSpace(raw)
}

// conversationCategory returns the routing tag for a conversation,
// applying the configured default when the category is empty.
func conversationCategory(in Input) string {
	category := ""
	if in.Conversation != nil {
		category = strings.TrimSpace(in.Conversation.Category)
	}
	if category == "" {
		return configString(in.Config, "default_department", DefaultDepartment)
	}
	return category
}
