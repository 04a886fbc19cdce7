// Package db holds the persistent tier of the creatives response cache.
// Postgres and Redis backends store the same JSON payload keyed by ad
// account and date range; the caller's TTL is applied on read.
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/patrickwarner/adcreatives/internal/cache"
	"github.com/patrickwarner/adcreatives/internal/config"
	"github.com/patrickwarner/adcreatives/internal/models"
)

// ResponseStore is a persistent response cache backend.
type ResponseStore interface {
	Get(ctx context.Context, accountID, dateRange string, ttlHours float64) (*cache.ResponseEntry, error)
	Save(ctx context.Context, accountID, dateRange string, payload *models.CreativesResponse) error
	Close()
}

var (
	_ ResponseStore = (*Postgres)(nil)
	_ ResponseStore = (*RedisStore)(nil)
)

// Open connects the backend named by cfg.PersistentCache. It returns a nil
// store for "none" or an empty value.
func Open(cfg config.Config) (ResponseStore, error) {
	switch cfg.PersistentCache {
	case "", "none":
		return nil, nil
	case "postgres":
		pg, err := InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case "redis":
		rs, err := InitRedis(cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		if cfg.CacheRetention > 0 {
			rs.Retention = cfg.CacheRetention
		}
		return rs, nil
	default:
		return nil, fmt.Errorf("unknown persistent cache backend %q", cfg.PersistentCache)
	}
}

func ttlDuration(ttlHours float64) time.Duration {
	return time.Duration(ttlHours * float64(time.Hour))
}

func encodePayload(payload *models.CreativesResponse) ([]byte, error) {
	stored := *payload
	stored.Cached = false
	stored.CachedAt = nil
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

func decodePayload(data []byte) (*models.CreativesResponse, error) {
	var payload models.CreativesResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &payload, nil
}
