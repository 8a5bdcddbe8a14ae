package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig controls redis client behavior.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	PingTimeout time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	out := c
	if out.DialTimeout <= 0 {
		out.DialTimeout = 3 * time.Second
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = 2 * time.Second
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = 2 * time.Second
	}
	if out.PoolSize <= 0 {
		out.PoolSize = 10
	}
	if out.PingTimeout <= 0 {
		out.PingTimeout = 2 * time.Second
	}
	return out
}

// OpenRedis initializes a Redis client and validates connectivity via PING.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	cfg = cfg.withDefaults()
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// KEYS[1] = counter key, ARGV[1] = limit, ARGV[2] = ttl_ms.
// Returns 1 when a slot was taken, 0 when the limit is reached.
var capAcquireScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 or redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  redis.call('DECR', KEYS[1])
  return 0
end
return 1
`)

var capReleaseScript = redis.NewScript(`
local current = redis.call('DECR', KEYS[1])
if current <= 0 then
  redis.call('DEL', KEYS[1])
end
return 1
`)

// ConcurrencyCap bounds how many holders of Key exist at once across every
// process sharing the Redis instance. The TTL reclaims slots leaked by a crash.
type ConcurrencyCap struct {
	Client *redis.Client
	Key    string
	Limit  int
	TTL    time.Duration
}

func (c ConcurrencyCap) validate() error {
	switch {
	case c.Client == nil:
		return errors.New("redis client is nil")
	case c.Key == "":
		return errors.New("key is required")
	case c.Limit <= 0:
		return errors.New("limit must be > 0")
	case c.TTL <= 0:
		return errors.New("ttl must be > 0")
	}
	return nil
}

// Acquire tries to take a slot. It reports false when the cap is full.
func (c ConcurrencyCap) Acquire(ctx context.Context) (bool, error) {
	if err := c.validate(); err != nil {
		return false, err
	}
	res, err := capAcquireScript.Run(ctx, c.Client, []string{c.Key}, c.Limit, c.TTL.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// Release returns a slot taken by Acquire.
func (c ConcurrencyCap) Release(ctx context.Context) error {
	if err := c.validate(); err != nil {
		return err
	}
	return capReleaseScript.Run(ctx, c.Client, []string{c.Key}).Err()
}
