package domain

import "time"

// RuleType names the strategy a rule delegates to.
type RuleType string

const (
	RuleTypeRoundRobin      RuleType = "round_robin"
	RuleTypeLoadBased       RuleType = "load_based"
	RuleTypeDepartmentMatch RuleType = "department_match"
	RuleTypeSkillMatch      RuleType = "skill_match"
)

// KnownRuleType reports whether t names one of the shipped strategies.
func KnownRuleType(t RuleType) bool {
	switch t {
	case RuleTypeRoundRobin, RuleTypeLoadBased, RuleTypeDepartmentMatch, RuleTypeSkillMatch:
		return true
	}
	return false
}

// AssignmentRule is an administrator-managed routing instruction. Lower
// Priority evaluates first. Config is an opaque key-value map interpreted
// by the strategy named in RuleType; strategies tolerate absent or
// malformed entries by falling back to documented defaults.
type AssignmentRule struct {
	ID        string
	Name      string
	RuleType  RuleType
	Priority  int
	Enabled   bool
	Config    map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}
