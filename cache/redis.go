package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is the external backend with native TTL support. Backend failures are
// logged and reported as cache misses so an unreachable store degrades the
// system to uncached operation instead of failing requests.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewRedis(addr, password string, db int, ttl time.Duration, prefix string, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		PoolSize:     100,
		MinIdleConns: 10,
	})

	return &Redis{
		client: client,
		ttl:    ttl,
		prefix: prefix,
		logger: logger,
	}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.logger.Warn("Redis get failed", zap.Error(err))
		return nil, false
	}
	return data, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) {
	if key == "" || len(value) == 0 {
		return
	}
	// SET NX keeps the first answer written for a key within its TTL window.
	if err := r.client.SetNX(ctx, key, value, r.ttl).Err(); err != nil {
		r.logger.Warn("Redis set failed", zap.Error(err))
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Stats() Stats {
	return Stats{
		Mode:     "redis",
		Size:     -1, // not tracked client-side
		TTL:      r.ttl,
		TTLHuman: ttlHuman(r.ttl),
		Prefix:   r.prefix,
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
