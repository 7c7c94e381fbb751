package infra

import (
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiter.
// Thread-safe and suitable for concurrent API calls.
type RateLimiter struct {
	mu          sync.Mutex
	tokens      float64
	maxTokens   float64
	refillRate  float64 // tokens per second
	lastRefill  time.Time
	minInterval time.Duration // minimum time between requests
	lastRequest time.Time
}

// NewRateLimiter creates a new rate limiter.
// maxRequests: maximum burst size
// perSecond: refill rate (requests per second)
func NewRateLimiter(maxRequests int, perSecond float64) *RateLimiter {
	now := time.Now()
	return &RateLimiter{
		tokens:      float64(maxRequests),
		maxTokens:   float64(maxRequests),
		refillRate:  perSecond,
		lastRefill:  now,
		minInterval: time.Duration(float64(time.Second) / perSecond),
		lastRequest: now.Add(-time.Hour), // Allow immediate first request
	}
}

// Wait blocks until a token is available.
// Returns immediately if a token is available.
func (r *RateLimiter) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()

	for r.tokens < 1 {
		// Calculate wait time for next token
		waitTime := time.Duration(float64(time.Second) / r.refillRate)
		r.mu.Unlock()
		time.Sleep(waitTime)
		r.mu.Lock()
		r.refill()
	}

	r.tokens--
	r.lastRequest = time.Now()
}

// TryAcquire attempts to acquire a token without blocking.
// Returns true if a token was acquired, false otherwise.
func (r *RateLimiter) TryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()

	if r.tokens >= 1 {
		r.tokens--
		r.lastRequest = time.Now()
		return true
	}
	return false
}

// refill adds tokens based on elapsed time.
// Must be called with mutex held.
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.tokens += elapsed * r.refillRate

	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}

	r.lastRefill = now
}

// Shared limiters for the oracle API, one per chain host. Every client
// talking to a host must go through the same bucket or the per-host limit
// means nothing.
var (
	oracleMu       sync.Mutex
	oracleLimiters = map[string]*RateLimiter{}
)

// defaultOracleRate is a conservative requests-per-second ceiling for the
// public oracle hosts.
const defaultOracleRate = 10

// GetOracleLimiter returns the shared limiter for a chain's oracle host,
// creating it on first use at perSec requests per second with a half-rate
// burst. The first caller fixes the rate; later callers share the bucket
// regardless of their own perSec. perSec <= 0 selects the default.
func GetOracleLimiter(chain string, perSec float64) *RateLimiter {
	oracleMu.Lock()
	defer oracleMu.Unlock()

	if l, ok := oracleLimiters[chain]; ok {
		return l
	}
	if perSec <= 0 {
		perSec = defaultOracleRate
	}
	burst := int(perSec / 2)
	if burst < 1 {
		burst = 1
	}
	l := NewRateLimiter(burst, perSec)
	oracleLimiters[chain] = l
	return l
}
