package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Invalidator signals external caches that a tenant's resource kind changed.
// Invalidation is fire-and-forget: a failure is logged and never fails or
// rolls back the mutation that triggered it.
type Invalidator interface {
	Invalidate(tenant, resourceKind string)
}

type redisInvalidator struct {
	client  *redis.Client
	logger  *zap.Logger
	timeout time.Duration
}

// NewRedisInvalidator builds an invalidator over the shared Redis client.
// A nil client yields a no-op invalidator.
func NewRedisInvalidator(client *redis.Client, logger *zap.Logger) Invalidator {
	if client == nil {
		return noopInvalidator{}
	}
	return &redisInvalidator{client: client, logger: logger, timeout: 2 * time.Second}
}

// Invalidate deletes the cached keys for (tenant, resourceKind) on a
// detached goroutine. The caller never waits on or learns the outcome;
// readers may observe stale data for a bounded window.
func (i *redisInvalidator) Invalidate(tenant, resourceKind string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), i.timeout)
		defer cancel()

		pattern := fmt.Sprintf("cache:%s:%s:*", tenant, resourceKind)
		iter := i.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := i.client.Del(ctx, iter.Val()).Err(); err != nil {
				i.logger.Warn("cache invalidation delete failed",
					zap.String("tenant", tenant),
					zap.String("resource", resourceKind),
					zap.Error(err))
				return
			}
		}
		if err := iter.Err(); err != nil {
			i.logger.Warn("cache invalidation scan failed",
				zap.String("tenant", tenant),
				zap.String("resource", resourceKind),
				zap.Error(err))
		}
	}()
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(string, string) {}
