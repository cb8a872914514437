package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RuleRepository stores administrator-managed assignment rules.
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.AssignmentRule) error
	Update(ctx context.Context, rule *domain.AssignmentRule) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.AssignmentRule, error)
	List(ctx context.Context) ([]domain.AssignmentRule, error)
	// ListEnabled returns enabled rules ordered by ascending priority,
	// the evaluation order of the assignment engine.
	ListEnabled(ctx context.Context) ([]domain.AssignmentRule, error)
}

type ruleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository instantiates the repository.
func NewRuleRepository(pool *pgxpool.Pool) RuleRepository {
	return &ruleRepository{pool: pool}
}

const ruleColumns = `id, name, rule_type, priority, enabled, config, created_at, updated_at`

func (r *ruleRepository) Create(ctx context.Context, rule *domain.AssignmentRule) error {
	const query = `
        INSERT INTO assignment_rules (name, rule_type, priority, enabled, config)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.Name,
		rule.RuleType,
		rule.Priority,
		rule.Enabled,
		rule.Config,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *ruleRepository) Update(ctx context.Context, rule *domain.AssignmentRule) error {
	const query = `
        UPDATE assignment_rules SET name=$1, rule_type=$2, priority=$3, enabled=$4, config=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		rule.Name,
		rule.RuleType,
		rule.Priority,
		rule.Enabled,
		rule.Config,
		rule.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ruleRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM assignment_rules WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ruleRepository) GetByID(ctx context.Context, id string) (*domain.AssignmentRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM assignment_rules WHERE id=$1`
	var rule domain.AssignmentRule
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&rule.ID,
		&rule.Name,
		&rule.RuleType,
		&rule.Priority,
		&rule.Enabled,
		&rule.Config,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepository) List(ctx context.Context) ([]domain.AssignmentRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM assignment_rules ORDER BY priority ASC, created_at ASC`
	return r.queryRules(ctx, query)
}

func (r *ruleRepository) ListEnabled(ctx context.Context) ([]domain.AssignmentRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM assignment_rules WHERE enabled = TRUE ORDER BY priority ASC, created_at ASC`
	return r.queryRules(ctx, query)
}

func (r *ruleRepository) queryRules(ctx context.Context, query string, args ...any) ([]domain.AssignmentRule, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AssignmentRule
	for rows.Next() {
		var rule domain.AssignmentRule
		if err := rows.Scan(
			&rule.ID,
			&rule.Name,
			&rule.RuleType,
			&rule.Priority,
			&rule.Enabled,
			&rule.Config,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}
