package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CheckHealth pings the pool within the given timeout. A non-positive
// timeout falls back to two seconds so readiness probes never hang on a
// stalled connection.
func CheckHealth(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return pool.Ping(ctx)
}
