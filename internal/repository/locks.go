package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Locker serializes critical sections across processes. The assignment
// engine runs its evaluate-then-persist sequence under a lock so two
// concurrent calls cannot both advance the round-robin rotation to the
// same agent.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type advisoryLocker struct {
	pool *pgxpool.Pool
}

// NewAdvisoryLocker builds a Locker backed by Postgres advisory locks.
func NewAdvisoryLocker(pool *pgxpool.Pool) Locker {
	return &advisoryLocker{pool: pool}
}

func (l *advisoryLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, key); err != nil {
		return err
	}
	defer conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock(hashtext($1))`, key) //nolint:errcheck

	return fn(ctx)
}
