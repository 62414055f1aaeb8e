package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wafflestudio/moiming-web/pkg/logger"
	pkgredis "github.com/wafflestudio/moiming-web/pkg/redis"
	"github.com/wafflestudio/moiming-web/pkg/response"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int
	BurstSize         int
	// RedisClient switches to the distributed limiter when set
	RedisClient     *pkgredis.Client
	KeyPrefix       string
	CleanupInterval time.Duration
	EntryTTL        time.Duration
	// KeyFunc picks the bucket; defaults to client IP
	KeyFunc func(c *gin.Context) string
}

// DefaultRateLimitConfig returns defaults sized for the apply endpoint
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
		KeyPrefix:         "ratelimit:",
		CleanupInterval:   time.Minute,
		EntryTTL:          time.Minute,
	}
}

// Limiter decides whether a request under key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastUpdate time.Time
}

// LocalRateLimiter is an in-process token bucket per key
type LocalRateLimiter struct {
	config  RateLimitConfig
	entries sync.Map
	stop    chan struct{}
	now     func() time.Time
}

// NewLocalRateLimiter creates a limiter and starts its cleanup loop
func NewLocalRateLimiter(config RateLimitConfig) *LocalRateLimiter {
	rl := &LocalRateLimiter{
		config: config,
		stop:   make(chan struct{}),
		now:    time.Now,
	}
	if config.CleanupInterval > 0 {
		go rl.cleanup()
	}
	return rl
}

// Allow takes one token from key's bucket
func (rl *LocalRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := rl.now()

	entry, _ := rl.entries.LoadOrStore(key, &bucket{
		tokens:     float64(rl.config.BurstSize),
		lastUpdate: now,
	})
	b := entry.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.lastUpdate).Seconds()
	b.tokens = min(float64(rl.config.BurstSize), b.tokens+elapsed*float64(rl.config.RequestsPerSecond))
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

func (rl *LocalRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := rl.now().Add(-rl.config.EntryTTL)
			rl.entries.Range(func(key, value any) bool {
				b := value.(*bucket)
				b.mu.Lock()
				if b.lastUpdate.Before(cutoff) {
					rl.entries.Delete(key)
				}
				b.mu.Unlock()
				return true
			})
		case <-rl.stop:
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *LocalRateLimiter) Stop() {
	close(rl.stop)
}

const tokenBucketScriptName = "token_bucket"

const tokenBucketScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("HMGET", key, "tokens", "last_update")
local tokens = tonumber(data[1]) or burst
local last_update = tonumber(data[2]) or now

tokens = math.min(burst, tokens + (now - last_update) * rate)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "last_update", now)
redis.call("EXPIRE", key, 60)
return allowed
`

// RedisRateLimiter shares buckets across instances through a Lua token bucket
type RedisRateLimiter struct {
	config RateLimitConfig
	client *pkgredis.Client
}

// NewRedisRateLimiter loads the token bucket script
func NewRedisRateLimiter(ctx context.Context, config RateLimitConfig) (*RedisRateLimiter, error) {
	if config.RedisClient == nil {
		return nil, fmt.Errorf("redis rate limiter requires a redis client")
	}
	if _, err := config.RedisClient.LoadScript(ctx, tokenBucketScriptName, tokenBucketScript); err != nil {
		return nil, err
	}
	return &RedisRateLimiter{config: config, client: config.RedisClient}, nil
}

// Allow takes one token from the shared bucket
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(time.Now().UnixNano()) / 1e9
	allowed, err := rl.client.EvalShaByName(ctx, tokenBucketScriptName,
		[]string{rl.config.KeyPrefix + key},
		rl.config.RequestsPerSecond,
		rl.config.BurstSize,
		now,
	).Int64()
	if err != nil {
		return false, err
	}
	return allowed == 1, nil
}

// RateLimiter builds the middleware around limiter. Limiter errors fail open.
func RateLimiter(limiter Limiter, config RateLimitConfig) gin.HandlerFunc {
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	limit := strconv.Itoa(config.RequestsPerSecond)

	return func(c *gin.Context) {
		key := keyFunc(c)

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rate limiter unavailable, allowing request",
				zap.String("key", key), zap.Error(err))
			allowed = true
		}

		c.Header("X-RateLimit-Limit", limit)
		if !allowed {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.TooManyRequests(""))
			return
		}

		c.Next()
	}
}
