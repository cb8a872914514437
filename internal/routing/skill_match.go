package routing

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SkillMatch treats the conversation's category as a required skill tag
// and routes to the least-loaded agent carrying it. Agents with empty or
// missing skill sets simply do not match; zero matches degrade to
// whole-roster load selection, same policy as DepartmentMatch.
type SkillMatch struct{}

// NewSkillMatch builds the strategy.
func NewSkillMatch() *SkillMatch {
	return &SkillMatch{}
}

// Name implements Strategy.
func (s *SkillMatch) Name() domain.RuleType {
	return domain.RuleTypeSkillMatch
}

// Evaluate implements Strategy.
func (s *SkillMatch) Evaluate(ctx context.Context, in Input) (Decision, error) {
	if len(in.Roster) == 0 {
		return Decision{}, nil
	}
	tag := conversationCategory(in)
	fallbackCap := configInt(in.Config, "default_max_load", 0)

	var matches []domain.Agent
	for _, agent := range in.Roster {
		if agent.HasSkill(tag) {
			matches = append(matches, agent)
		}
	}
	if len(matches) > 0 {
		return Decision{Agent: minLoadAgent(matches, fallbackCap)}, nil
	}
	return Decision{Agent: minLoadAgent(in.Roster, fallbackCap), Fallback: true}, nil
}
