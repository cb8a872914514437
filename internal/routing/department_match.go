package routing

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// DepartmentMatch routes to the least-loaded agent of the department
// matching the conversation's category. Zero matches degrade to
// whole-roster load selection rather than leaving the ticket unassigned;
// the Decision carries Fallback=true so the ledger can record that the
// degrade path fired.
type DepartmentMatch struct{}

// NewDepartmentMatch builds the strategy.
func NewDepartmentMatch() *DepartmentMatch {
	return &DepartmentMatch{}
}

// Name implements Strategy.
func (s *DepartmentMatch) Name() domain.RuleType {
	return domain.RuleTypeDepartmentMatch
}

// Evaluate implements Strategy.
func (s *DepartmentMatch) Evaluate(ctx context.Context, in Input) (Decision, error) {
	if len(in.Roster) == 0 {
		return Decision{}, nil
	}
	category := conversationCategory(in)
	fallbackCap := configInt(in.Config, "default_max_load", 0)

	var matches []domain.Agent
	for _, agent := range in.Roster {
		if agent.Department == category {
			matches = append(matches, agent)
		}
	}
	if len(matches) > 0 {
		return Decision{Agent: minLoadAgent(matches, fallbackCap)}, nil
	}
	return Decision{Agent: minLoadAgent(in.Roster, fallbackCap), Fallback: true}, nil
}
