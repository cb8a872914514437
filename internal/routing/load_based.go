package routing

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// LoadBased selects the least-loaded agent, respecting per-agent caps
// until every agent is at or over cap, at which point it deliberately
// overflows to the global minimum.
type LoadBased struct{}

// NewLoadBased builds the strategy.
func NewLoadBased() *LoadBased {
	return &LoadBased{}
}

// Name implements Strategy.
func (s *LoadBased) Name() domain.RuleType {
	return domain.RuleTypeLoadBased
}

// Evaluate implements Strategy. The rule config may carry
// "default_max_load" as a cap for agents without one of their own; absent
// or malformed values mean unbounded.
func (s *LoadBased) Evaluate(ctx context.Context, in Input) (Decision, error) {
	fallbackCap := configInt(in.Config, "default_max_load", 0)
	return Decision{Agent: minLoadAgent(in.Roster, fallbackCap)}, nil
}
