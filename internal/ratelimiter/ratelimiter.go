// Package ratelimiter gates connection admission with a token bucket.
package ratelimiter

import "golang.org/x/time/rate"

// RateLimiter admits at most a sustained number of events per second with a
// bounded burst. It wraps golang.org/x/time/rate.
//
// A nil *RateLimiter admits everything, so callers can keep a nil limiter
// when rate limiting is switched off.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter refilling requestsPerSecond tokens per second into a
// bucket holding burst tokens.
//
// Special cases:
//   - requestsPerSecond = 0: unlimited, every call is admitted
//   - burst = 0: the bucket holds one second worth of tokens
//
// Example:
//
//	// 100 new connections per second, bursts of up to 200
//	limiter := New(100, 200)
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = requestsPerSecond
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow consumes a token if one is available and reports whether it did.
// It never blocks.
func (r *RateLimiter) Allow() bool {
	if r == nil {
		return true
	}
	return r.limiter.Allow()
}
