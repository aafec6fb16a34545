package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RateLimitRepository persists attempt timestamps keyed by (action, source address).
type RateLimitRepository interface {
	CountSince(ctx context.Context, action, addr string, since time.Time) (int, error)
	Record(ctx context.Context, action, addr string, at time.Time) error
	Clear(ctx context.Context, action, addr string) error
	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}

type rateLimitRepository struct {
	pool *pgxpool.Pool
}

// NewRateLimitRepository returns a Postgres-backed attempt log.
func NewRateLimitRepository(pool *pgxpool.Pool) RateLimitRepository {
	return &rateLimitRepository{pool: pool}
}

func (r *rateLimitRepository) CountSince(ctx context.Context, action, addr string, since time.Time) (int, error) {
	const query = `
        SELECT COUNT(*) FROM rate_limit_attempts
        WHERE action=$1 AND source_address=$2 AND attempted_at > $3`
	var count int
	err := r.pool.QueryRow(ctx, query, action, addr, since).Scan(&count)
	return count, err
}

func (r *rateLimitRepository) Record(ctx context.Context, action, addr string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO rate_limit_attempts (action, source_address, attempted_at) VALUES ($1,$2,$3)`,
		action, addr, at)
	return err
}

func (r *rateLimitRepository) Clear(ctx context.Context, action, addr string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM rate_limit_attempts WHERE action=$1 AND source_address=$2`, action, addr)
	return err
}

func (r *rateLimitRepository) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM rate_limit_attempts WHERE attempted_at <= $1`, before)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
