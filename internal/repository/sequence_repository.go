package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedFunc computes the starting value for a partition that has no counter
// row yet, typically by scanning legacy identifiers for their largest
// trailing numeric suffix. It runs while the counter row lock is held, so
// two concurrent first mints cannot both seed.
type SeedFunc func(ctx context.Context) (int64, error)

// SequenceRepository hands out monotonically increasing values per
// partition key. The increment is a read-modify-write under a row lock,
// never a scan-then-insert: concurrent calls on the same partition are
// serialized by Postgres and always observe distinct values.
type SequenceRepository interface {
	Next(ctx context.Context, key string, seed SeedFunc) (int64, error)
}

type sequenceRepository struct {
	pool *pgxpool.Pool
}

// NewSequenceRepository instantiates the repository.
func NewSequenceRepository(pool *pgxpool.Pool) SequenceRepository {
	return &sequenceRepository{pool: pool}
}

func (r *sequenceRepository) Next(ctx context.Context, key string, seed SeedFunc) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Value 0 marks a partition whose counter has never been used.
	if _, err := tx.Exec(ctx,
		`INSERT INTO sequence_counters (partition_key, value) VALUES ($1, 0) ON CONFLICT (partition_key) DO NOTHING`,
		key,
	); err != nil {
		return 0, err
	}

	var current int64
	if err := tx.QueryRow(ctx,
		`SELECT value FROM sequence_counters WHERE partition_key=$1 FOR UPDATE`,
		key,
	).Scan(&current); err != nil {
		return 0, err
	}

	if current == 0 && seed != nil {
		seeded, err := seed(ctx)
		if err != nil {
			return 0, err
		}
		if seeded > 0 {
			current = seeded
		}
	}

	next := current + 1
	if _, err := tx.Exec(ctx,
		`UPDATE sequence_counters SET value=$2, updated_at=NOW() WHERE partition_key=$1`,
		key, next,
	); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return next, nil
}
