package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AssignmentHistoryRepository stores the append-only routing ledger.
// Entries are never updated or deleted.
type AssignmentHistoryRepository interface {
	Create(ctx context.Context, entry *domain.AssignmentHistory) error
	ListByConversation(ctx context.Context, conversationID string) ([]domain.AssignmentHistory, error)
	// LastAssignee returns the agent id of the most recent entry with the
	// given rule type, or nil when no such entry exists. Round-robin
	// recovers its rotation position from this.
	LastAssignee(ctx context.Context, ruleType domain.RuleType) (*string, error)
}

type assignmentHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentHistoryRepository builds the repository.
func NewAssignmentHistoryRepository(pool *pgxpool.Pool) AssignmentHistoryRepository {
	return &assignmentHistoryRepository{pool: pool}
}

func (r *assignmentHistoryRepository) Create(ctx context.Context, entry *domain.AssignmentHistory) error {
	const query = `
        INSERT INTO assignment_history (rule_id, rule_type, conversation_id, agent_id, metadata)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, assigned_at`
	return r.pool.QueryRow(ctx, query,
		entry.RuleID,
		entry.RuleType,
		entry.ConversationID,
		entry.AgentID,
		entry.Metadata,
	).Scan(&entry.ID, &entry.AssignedAt)
}

func (r *assignmentHistoryRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.AssignmentHistory, error) {
	const query = `
        SELECT id, rule_id, rule_type, conversation_id, agent_id, metadata, assigned_at
        FROM assignment_history WHERE conversation_id=$1 ORDER BY assigned_at ASC`
	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AssignmentHistory
	for rows.Next() {
		var entry domain.AssignmentHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.RuleID,
			&entry.RuleType,
			&entry.ConversationID,
			&entry.AgentID,
			&entry.Metadata,
			&entry.AssignedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *assignmentHistoryRepository) LastAssignee(ctx context.Context, ruleType domain.RuleType) (*string, error) {
	const query = `
        SELECT agent_id FROM assignment_history
        WHERE rule_type=$1 ORDER BY assigned_at DESC, id DESC LIMIT 1`
	var agentID string
	if err := r.pool.QueryRow(ctx, query, ruleType).Scan(&agentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &agentID, nil
}
