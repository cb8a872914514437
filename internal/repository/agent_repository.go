package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AgentFilter defines query params for agent listing.
type AgentFilter struct {
	Department *string
	Active     *bool
	Limit      int
	Offset     int
}

// AgentRepository handles persistence for support agents.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	Update(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
	List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error)
	// ListActiveWithLoad returns active agents ordered by creation time
	// with CurrentLoad populated from open/pending conversations. The
	// ordering is load-bearing: round-robin derives rotation position
	// from the slice index.
	ListActiveWithLoad(ctx context.Context) ([]domain.Agent, error)
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, name, email, password_hash, role, department, skills, active_flag, max_load, created_at, updated_at`

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (name, email, password_hash, role, department, skills, active_flag, max_load)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		agent.Role,
		agent.Department,
		agent.Skills,
		agent.Active,
		agent.MaxLoad,
	).Scan(&agent.ID, &agent.CreatedAt, &agent.UpdatedAt)
}

func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	const query = `
        UPDATE agents
        SET name=$1, email=$2, password_hash=$3, role=$4, department=$5, skills=$6, active_flag=$7, max_load=$8, updated_at=NOW()
        WHERE id=$9`

	cmd, err := r.pool.Exec(ctx, query,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		agent.Role,
		agent.Department,
		agent.Skills,
		agent.Active,
		agent.MaxLoad,
		agent.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *agentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Agent, error) {
	var agent domain.Agent
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.PasswordHash,
		&agent.Role,
		&agent.Department,
		&agent.Skills,
		&agent.Active,
		&agent.MaxLoad,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents`
	args := []any{}
	clauses := []string{}

	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active_flag=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at ASC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAgents(rows)
}

func (r *agentRepository) ListActiveWithLoad(ctx context.Context) ([]domain.Agent, error) {
	const query = `
        SELECT a.id, a.name, a.email, a.password_hash, a.role, a.department, a.skills, a.active_flag, a.max_load,
               a.created_at, a.updated_at,
               COUNT(c.id) FILTER (WHERE c.status IN ('OPEN','PENDING')) AS current_load
        FROM agents a
        LEFT JOIN conversations c ON c.assignee_id = a.id
        WHERE a.active_flag = TRUE
        GROUP BY a.id
        ORDER BY a.created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		var agent domain.Agent
		if err := rows.Scan(
			&agent.ID,
			&agent.Name,
			&agent.Email,
			&agent.PasswordHash,
			&agent.Role,
			&agent.Department,
			&agent.Skills,
			&agent.Active,
			&agent.MaxLoad,
			&agent.CreatedAt,
			&agent.UpdatedAt,
			&agent.CurrentLoad,
		); err != nil {
			return nil, err
		}
		result = append(result, agent)
	}
	return result, rows.Err()
}

func scanAgents(rows pgx.Rows) ([]domain.Agent, error) {
	var result []domain.Agent
	for rows.Next() {
		var agent domain.Agent
		if err := rows.Scan(
			&agent.ID,
			&agent.Name,
			&agent.Email,
			&agent.PasswordHash,
			&agent.Role,
			&agent.Department,
			&agent.Skills,
			&agent.Active,
			&agent.MaxLoad,
			&agent.CreatedAt,
			&agent.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, agent)
	}
	return result, rows.Err()
}
