// Package app wires application components and startup helpers.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Pinger is the minimal interface for a dependency capable of Ping.
// *pgxpool.Pool and *redpanda.Producer satisfy it.
type Pinger interface{ Ping(ctx context.Context) error }

// BuildReadinessChecks returns the db, queue and cache checks. The cache check
// is nil when no redis client is configured, so /readyz omits it.
func BuildReadinessChecks(pool Pinger, queue Pinger, rdb redis.UniversalClient) (
	dbCheck func(ctx context.Context) error,
	queueCheck func(ctx context.Context) error,
	cacheCheck func(ctx context.Context) error,
) {
	dbCheck = func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("db not configured")
		}
		return pool.Ping(ctx)
	}
	queueCheck = func(ctx context.Context) error {
		if queue == nil {
			return fmt.Errorf("queue not configured")
		}
		return queue.Ping(ctx)
	}
	if rdb != nil {
		cacheCheck = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return dbCheck, queueCheck, cacheCheck
}
