package ratelimit

import (
	"context"
	"sync"
)

// KeyedLimiter keeps one token bucket per key, created lazily on first use.
// The Graph client keys buckets by a hash of the access token so each
// tenant is paced independently.
type KeyedLimiter struct {
	buckets map[string]*TokenBucket // Map of key to token bucket
	mu      sync.RWMutex            // Protects the buckets map
	config  Config
}

// Config holds the configuration for rate limiting.
type Config struct {
	Capacity   int  // Token bucket capacity (burst allowance)
	RefillRate int  // Tokens added per second (sustained rate)
	Enabled    bool // Whether pacing is active
}

// NewKeyedLimiter creates a limiter with the given configuration.
func NewKeyedLimiter(config Config) *KeyedLimiter {
	return &KeyedLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
	}
}

// Wait blocks until the bucket for key yields a token and reports whether
// the caller had to wait. It is a no-op on a nil or disabled limiter.
func (l *KeyedLimiter) Wait(ctx context.Context, key string) (bool, error) {
	if l == nil || !l.config.Enabled {
		return false, nil
	}
	return l.bucket(key).Wait(ctx)
}

func (l *KeyedLimiter) bucket(key string) *TokenBucket {
	l.mu.RLock()
	bucket, exists := l.buckets[key]
	l.mu.RUnlock()
	if exists {
		return bucket
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	bucket, exists = l.buckets[key]
	if !exists {
		bucket = NewTokenBucket(l.config.Capacity, l.config.RefillRate)
		l.buckets[key] = bucket
	}
	return bucket
}
