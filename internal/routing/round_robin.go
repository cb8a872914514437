package routing

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RoundRobin rotates through the active roster in creation order. The
// rotation position is recovered from the ledger on every call rather
// than cached in memory, so the strategy survives restarts; the engine's
// lock closes the concurrent-call race on that lookup.
type RoundRobin struct {
	rotation RotationSource
}

// NewRoundRobin builds the strategy.
func NewRoundRobin(rotation RotationSource) *RoundRobin {
	return &RoundRobin{rotation: rotation}
}

// Name implements Strategy.
func (s *RoundRobin) Name() domain.RuleType {
	return domain.RuleTypeRoundRobin
}

// Evaluate picks the agent after the ledger's last round-robin assignee,
// cyclically. No prior history, or a last assignee no longer on the
// active roster, restarts the rotation at index 0.
func (s *RoundRobin) Evaluate(ctx context.Context, in Input) (Decision, error) {
	if len(in.Roster) == 0 {
		return Decision{}, nil
	}

	lastID, err := s.rotation.LastAssignee(ctx, domain.RuleTypeRoundRobin)
	if err != nil {
		return Decision{}, err
	}

	index := 0
	if lastID != nil {
		for i := range in.Roster {
			if in.Roster[i].ID == *lastID {
				index = (i + 1) % len(in.Roster)
				break
			}
		}
	}
	return Decision{Agent: &in.Roster[index]}, nil
}
