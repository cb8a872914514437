package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ConversationFilter captures search parameters for listings.
type ConversationFilter struct {
	CustomerID  *string
	AssigneeID  *string
	Category    *string
	Unassigned  bool
	Statuses    []domain.ConversationStatus
	Priorities  []domain.ConversationPriority
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// ConversationRepository encapsulates conversation persistence.
type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	Update(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	GetByKey(ctx context.Context, key string) (*domain.Conversation, error)
	ListWithFilter(ctx context.Context, filter ConversationFilter) ([]domain.Conversation, error)
	// AssignIfUnassigned sets the assignee only while it is still null,
	// reporting whether the write landed. A false return means another
	// caller won the race or the conversation was already assigned.
	AssignIfUnassigned(ctx context.Context, id, agentID string) (bool, error)
	// MaxKeySuffix returns the largest trailing numeric segment among
	// conversation keys sharing the given prefix. Legacy keys with
	// embedded category codes are tolerated: only the digits after the
	// final dash count.
	MaxKeySuffix(ctx context.Context, prefix string) (int64, error)
}

type conversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository instantiates the repository.
func NewConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepository{pool: pool}
}

const conversationColumns = `id, conversation_key, customer_id, category, product_model, assignee_id,
               title, body, status, priority, created_at, updated_at, closed_at`

func (r *conversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	const query = `
        INSERT INTO conversations (conversation_key, customer_id, category, product_model, assignee_id, title, body, status, priority)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		conv.ConversationKey,
		conv.CustomerID,
		conv.Category,
		conv.ProductModel,
		conv.AssigneeID,
		conv.Title,
		conv.Body,
		conv.Status,
		conv.Priority,
	).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
}

func (r *conversationRepository) Update(ctx context.Context, conv *domain.Conversation) error {
	const query = `
        UPDATE conversations SET category=$1, product_model=$2, assignee_id=$3, title=$4, body=$5,
            status=$6, priority=$7, closed_at=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		conv.Category,
		conv.ProductModel,
		conv.AssigneeID,
		conv.Title,
		conv.Body,
		conv.Status,
		conv.Priority,
		conv.ClosedAt,
		conv.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *conversationRepository) GetByKey(ctx context.Context, key string) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE conversation_key=$1`
	return r.fetchSingle(ctx, query, key)
}

func (r *conversationRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&conv.ID,
		&conv.ConversationKey,
		&conv.CustomerID,
		&conv.Category,
		&conv.ProductModel,
		&conv.AssigneeID,
		&conv.Title,
		&conv.Body,
		&conv.Status,
		&conv.Priority,
		&conv.CreatedAt,
		&conv.UpdatedAt,
		&conv.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) AssignIfUnassigned(ctx context.Context, id, agentID string) (bool, error) {
	const query = `
        UPDATE conversations SET assignee_id=$2, updated_at=NOW()
        WHERE id=$1 AND assignee_id IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id, agentID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *conversationRepository) MaxKeySuffix(ctx context.Context, prefix string) (int64, error) {
	const query = `
        SELECT COALESCE(MAX(substring(conversation_key FROM '([0-9]+)$')::bigint), 0)
        FROM conversations
        WHERE conversation_key LIKE $1 || '%'`
	var max int64
	if err := r.pool.QueryRow(ctx, query, prefix).Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

func (r *conversationRepository) ListWithFilter(ctx context.Context, filter ConversationFilter) ([]domain.Conversation, error) {
	base := `SELECT ` + conversationColumns + ` FROM conversations`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "assignee_id IS NULL")
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConversations(rows)
}

func scanConversations(rows pgx.Rows) ([]domain.Conversation, error) {
	var result []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(
			&conv.ID,
			&conv.ConversationKey,
			&conv.CustomerID,
			&conv.Category,
			&conv.ProductModel,
			&conv.AssigneeID,
			&conv.Title,
			&conv.Body,
			&conv.Status,
			&conv.Priority,
			&conv.CreatedAt,
			&conv.UpdatedAt,
			&conv.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, conv)
	}
	return result, rows.Err()
}
