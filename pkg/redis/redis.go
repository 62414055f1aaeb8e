package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Nil is returned by reads of missing keys
const Nil = goredis.Nil

// ErrScriptNotLoaded is returned by EvalShaByName for an unknown script name
var ErrScriptNotLoaded = errors.New("redis: script not loaded")

// Config holds Redis connection settings
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
}

// DefaultConfig returns a config pointing at a local Redis
func DefaultConfig() *Config {
	return &Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     50,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	}
}

// Addr returns host:port
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type script struct {
	sha    string
	source string
}

// Client wraps go-redis with a named Lua script registry
type Client struct {
	*goredis.Client

	mu      sync.RWMutex
	scripts map[string]script
}

// NewClient connects and pings Redis
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr(), err)
	}

	return Wrap(rdb), nil
}

// Wrap adapts an existing go-redis client
func Wrap(rdb *goredis.Client) *Client {
	return &Client{
		Client:  rdb,
		scripts: make(map[string]script),
	}
}

// LoadScript uploads a Lua script and remembers its SHA under name
func (c *Client) LoadScript(ctx context.Context, name, source string) (string, error) {
	sha, err := c.ScriptLoad(ctx, source).Result()
	if err != nil {
		return "", fmt.Errorf("failed to load script %s: %w", name, err)
	}

	c.mu.Lock()
	c.scripts[name] = script{sha: sha, source: source}
	c.mu.Unlock()

	return sha, nil
}

// EvalShaByName runs a previously loaded script. When Redis lost the script
// cache (restart, SCRIPT FLUSH) it falls back to EVAL with the stored source.
func (c *Client) EvalShaByName(ctx context.Context, name string, keys []string, args ...interface{}) *goredis.Cmd {
	c.mu.RLock()
	s, ok := c.scripts[name]
	c.mu.RUnlock()

	if !ok {
		cmd := goredis.NewCmd(ctx)
		cmd.SetErr(fmt.Errorf("%w: %s", ErrScriptNotLoaded, name))
		return cmd
	}

	cmd := c.EvalSha(ctx, s.sha, keys, args...)
	if err := cmd.Err(); err != nil && strings.HasPrefix(err.Error(), "NOSCRIPT") {
		return c.Eval(ctx, s.source, keys, args...)
	}
	return cmd
}

// HasScript reports whether name was loaded
func (c *Client) HasScript(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.scripts[name]
	return ok
}
