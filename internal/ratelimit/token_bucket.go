// Package ratelimit paces outbound Graph API calls with token buckets.
//
// A bucket allows bursts up to its capacity and a sustained rate equal to its
// refill rate. Callers block in Wait until a token is available instead of
// failing, so a burst of video lookups is smoothed rather than rejected.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket implements a thread-safe token bucket.
//
// Example usage:
//
//	bucket := NewTokenBucket(20, 10) // 20 burst capacity, 10 tokens/second
//	if _, err := bucket.Wait(ctx); err != nil {
//	    return err // context cancelled while waiting
//	}
type TokenBucket struct {
	capacity   int        // Maximum number of tokens the bucket can hold
	tokens     int        // Current number of tokens in the bucket
	refillRate int        // Number of tokens added per second
	lastRefill time.Time  // Last time tokens were added to the bucket
	mu         sync.Mutex // Protects all bucket state
}

// NewTokenBucket creates a full bucket. refillRate is clamped to at least one
// token per second so Wait always terminates.
func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	if refillRate < 1 {
		refillRate = 1
	}
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is consumed or ctx is done. It reports whether
// the bucket was empty on arrival.
func (tb *TokenBucket) Wait(ctx context.Context) (bool, error) {
	tb.mu.Lock()
	ok, wait := tb.take(time.Now())
	tb.mu.Unlock()
	waited := !ok

	for !ok {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return waited, ctx.Err()
		case <-timer.C:
		}
		tb.mu.Lock()
		ok, wait = tb.take(time.Now())
		tb.mu.Unlock()
	}
	return waited, nil
}

// take refills and tries to consume a token. When the bucket is empty it
// returns the time until the next token. Callers must hold tb.mu.
func (tb *TokenBucket) take(now time.Time) (bool, time.Duration) {
	elapsed := now.Sub(tb.lastRefill)
	tokensToAdd := int(elapsed.Seconds() * float64(tb.refillRate))
	if tokensToAdd > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+tokensToAdd)
		tb.lastRefill = tb.lastRefill.Add(time.Duration(tokensToAdd) * time.Second / time.Duration(tb.refillRate))
		if tb.tokens == tb.capacity {
			tb.lastRefill = now
		}
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}
	perToken := time.Second / time.Duration(tb.refillRate)
	wait := perToken - now.Sub(tb.lastRefill)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return false, wait
}
