package domain

import "time"

// AgentRole enumerates console roles for support staff.
type AgentRole string

const (
	AgentRoleAgent AgentRole = "AGENT"
	AgentRoleAdmin AgentRole = "ADMIN"
)

// Agent models a support staff member eligible for ticket assignment.
// CurrentLoad is derived from open/pending conversations and is never
// stored on the row itself.
type Agent struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AgentRole
	Department   string
	Skills       []string
	Active       bool
	MaxLoad      *int
	CurrentLoad  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasSkill reports whether the agent carries the given skill tag.
func (a *Agent) HasSkill(tag string) bool {
	for _, s := range a.Skills {
		if s == tag {
			return true
		}
	}
	return false
}

// OverCap reports whether the agent is at or over its load cap. An unset
// cap (and a fallback of zero or less) means unbounded.
func (a *Agent) OverCap(fallbackCap int) bool {
	cap := fallbackCap
	if a.MaxLoad != nil {
		cap = *a.MaxLoad
	}
	if cap <= 0 {
		return false
	}
	return a.CurrentLoad >= cap
}
