package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/patrickwarner/adcreatives/internal/cache"
	"github.com/patrickwarner/adcreatives/internal/models"
)

// DefaultRedisRetention is the key expiry used when no retention is
// configured.
const DefaultRedisRetention = 7 * 24 * time.Hour

// RedisKeyPrefix namespaces response cache keys.
const RedisKeyPrefix = "creatives:cache:"

// RedisStore wraps a redis client used as the persistent response cache.
//
// Keys expire after Retention no matter what TTL a later Get asks for, so a
// cacheTtlHours longer than Retention behaves like Retention. Raise it with
// CACHE_RETENTION when callers need longer-lived entries.
type RedisStore struct {
	Client    *redis.Client
	Retention time.Duration
	now       func() time.Time
}

type redisEntry struct {
	TimestampMs int64           `json:"timestampMs"`
	Payload     json.RawMessage `json:"payload"`
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := NewRedisStore(redis.NewClient(&redis.Options{Addr: addr}))

	// Add OpenTelemetry instrumentation to Redis client
	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client, Retention: DefaultRedisRetention, now: time.Now}
}

func redisKey(accountID, dateRange string) string {
	return RedisKeyPrefix + cache.ResponseKey(accountID, dateRange)
}

// Get returns the cached response younger than ttlHours, or nil.
func (r *RedisStore) Get(ctx context.Context, accountID, dateRange string, ttlHours float64) (*cache.ResponseEntry, error) {
	if ttlHours <= 0 {
		return nil, nil
	}
	raw, err := r.Client.Get(ctx, redisKey(accountID, dateRange)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry redisEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	ts := time.UnixMilli(entry.TimestampMs)
	if r.now().Sub(ts) >= ttlDuration(ttlHours) {
		return nil, nil
	}
	payload, err := decodePayload(entry.Payload)
	if err != nil {
		return nil, err
	}
	return &cache.ResponseEntry{Timestamp: ts, Payload: payload}, nil
}

// Save stores the response with the store's retention as Redis expiry.
func (r *RedisStore) Save(ctx context.Context, accountID, dateRange string, payload *models.CreativesResponse) error {
	data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(redisEntry{TimestampMs: r.now().UnixMilli(), Payload: data})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := r.Client.Set(ctx, redisKey(accountID, dateRange), raw, r.Retention).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a cached response.
func (r *RedisStore) Delete(ctx context.Context, accountID, dateRange string) error {
	return r.Client.Del(ctx, redisKey(accountID, dateRange)).Err()
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
