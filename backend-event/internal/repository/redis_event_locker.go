package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wafflestudio/moiming-web/pkg/logger"
	pkgredis "github.com/wafflestudio/moiming-web/pkg/redis"
	"go.uber.org/zap"
)

const (
	eventLockPrefix     = "moiming:lock:event:"
	eventLockRetry      = 5 * time.Millisecond
	defaultEventLockTTL = 5 * time.Second
)

// RedisEventLocker takes a Redis lock per event before delegating to next,
// so instances queue on Redis instead of on the database row lock.
type RedisEventLocker struct {
	client *pkgredis.Client
	next   EventLocker
	ttl    time.Duration
}

// NewRedisEventLocker wraps next with a distributed per-event lock
func NewRedisEventLocker(client *pkgredis.Client, next EventLocker, ttl time.Duration) *RedisEventLocker {
	if ttl <= 0 {
		ttl = defaultEventLockTTL
	}
	return &RedisEventLocker{client: client, next: next, ttl: ttl}
}

// WithEventLock acquires the Redis lock, runs next.WithEventLock and releases
func (l *RedisEventLocker) WithEventLock(ctx context.Context, publicID string, fn func(tx EventTx) error) error {
	lock, err := l.client.AcquireLock(ctx, eventLockPrefix+publicID, l.ttl, eventLockRetry)
	if err != nil {
		return err
	}
	defer func() {
		// the database lock still guards correctness if the lease expired
		err := lock.Release(context.WithoutCancel(ctx))
		log := logger.WithContext(ctx).WithFields(logger.EventID(publicID), zap.Duration("lease", l.ttl))
		switch {
		case errors.Is(err, pkgredis.ErrLockLost):
			log.Warn("event lock expired before release")
		case err != nil:
			log.Warn("failed to release event lock", zap.Error(err))
		}
	}()

	return l.next.WithEventLock(ctx, publicID, fn)
}
