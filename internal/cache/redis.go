package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"mandimind/internal/logger"
)

// Redis adapts a Redis instance to the Store contract for multi-process
// deployments. The Redis expiry is the retention horizon, not the logical
// TTL: entries remain readable while stale so offline fallbacks keep
// working, and Meta carries the logical freshness window.
type Redis struct {
	client    *redis.Client
	retention time.Duration
}

type redisEnvelope struct {
	Payload   []byte `json:"payload"`
	Timestamp int64  `json:"ts_ms"`
	TTLMs     int64  `json:"ttl_ms"`
}

func NewRedis(addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{client: client, retention: defaultRetention}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, Meta, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warnf("redis cache get failed key=%s: %v", key, err)
		}
		return nil, Meta{}, false
	}
	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Warnf("redis cache entry corrupt key=%s: %v", key, err)
		return nil, Meta{}, false
	}
	meta := Meta{
		Timestamp: time.UnixMilli(env.Timestamp),
		TTL:       time.Duration(env.TTLMs) * time.Millisecond,
	}
	return env.Payload, meta, true
}

func (r *Redis) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	env := redisEnvelope{
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
		TTLMs:     ttl.Milliseconds(),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		logger.Warnf("redis cache encode failed key=%s: %v", key, err)
		return
	}
	if err := r.client.Set(ctx, key, raw, r.retention).Err(); err != nil {
		logger.Warnf("redis cache set failed key=%s: %v", key, err)
	}
}

func (r *Redis) Meta(ctx context.Context, key string) (Meta, bool) {
	_, meta, ok := r.Get(ctx, key)
	return meta, ok
}

func (r *Redis) Invalidate(ctx context.Context, key string) {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		logger.Warnf("redis cache invalidate failed key=%s: %v", key, err)
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
