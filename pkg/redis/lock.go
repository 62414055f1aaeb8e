package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrLockNotAcquired is returned when the context ends before the lock is free
var ErrLockNotAcquired = errors.New("redis: lock not acquired")

// ErrLockLost is returned by Release when the lock expired or changed owner
var ErrLockLost = errors.New("redis: lock lost")

const releaseLockScriptName = "release_lock"

// Only the holder of the token may delete the key.
const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`

// Lock is a held mutex backed by a single Redis key
type Lock struct {
	client *Client
	key    string
	token  string
}

// Key returns the locked key
func (l *Lock) Key() string {
	return l.key
}

// AcquireLock spins on SET NX PX until the lock is taken or ctx ends.
// ttl bounds how long a crashed holder can block others.
func (c *Client) AcquireLock(ctx context.Context, key string, ttl, retry time.Duration) (*Lock, error) {
	if !c.HasScript(releaseLockScriptName) {
		if _, err := c.LoadScript(ctx, releaseLockScriptName, releaseLockScript); err != nil {
			return nil, err
		}
	}

	if retry <= 0 {
		retry = 10 * time.Millisecond
	}

	token := uuid.NewString()
	ticker := time.NewTicker(retry)
	defer ticker.Stop()

	for {
		ok, err := c.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return &Lock{client: c, key: key, token: token}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrLockNotAcquired, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Release deletes the key if this lock still owns it
func (l *Lock) Release(ctx context.Context) error {
	n, err := l.client.EvalShaByName(ctx, releaseLockScriptName, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLockLost, l.key)
	}
	return nil
}
