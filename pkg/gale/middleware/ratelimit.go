package middleware

import (
	"sync"
	"time"

	"github.com/galehttp/gale/pkg/gale"
)

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	// RequestsPerSecond is the steady-state refill rate. Default 100.
	RequestsPerSecond int
	// Burst is the bucket capacity. Default 20.
	Burst int
	// KeyFunc derives the rate-limit key from a request. Default: the
	// X-Forwarded-For or X-Real-IP header, falling back to "default".
	KeyFunc func(req *gale.Request) string
	// Handler, if set, builds the response for a throttled request
	// instead of the default 429.
	Handler func(req *gale.Request, resp *gale.Response, retryIn time.Duration)
	// CleanupInterval is how often idle buckets are swept. Default 1m.
	CleanupInterval time.Duration
	// MaxAge is how long an idle bucket survives before being swept.
	// Default 5m.
	MaxAge time.Duration
}

// DefaultRateLimitConfig returns 100 req/s with a burst of 20, keyed by
// client IP.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             20,
		KeyFunc:           defaultKeyFunc,
		CleanupInterval:   time.Minute,
		MaxAge:            5 * time.Minute,
	}
}

func defaultKeyFunc(req *gale.Request) string {
	if ip := req.Headers.GetFirst("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := req.Headers.GetFirst("X-Real-IP"); ip != "" {
		return ip
	}
	return "default"
}

// RateLimit returns a middleware enforcing config, creating one token
// bucket per key on first sight.
func RateLimit(config RateLimitConfig) gale.Middleware {
	return RateLimitWithConfig(config)
}

// RateLimitWithConfig returns a RateLimit middleware. A background
// goroutine sweeps buckets idle past MaxAge every CleanupInterval for
// the lifetime of the returned middleware's store.
func RateLimitWithConfig(config RateLimitConfig) gale.Middleware {
	if config.RequestsPerSecond == 0 {
		config.RequestsPerSecond = 100
	}
	if config.Burst == 0 {
		config.Burst = 20
	}
	if config.KeyFunc == nil {
		config.KeyFunc = defaultKeyFunc
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}
	if config.MaxAge == 0 {
		config.MaxAge = 5 * time.Minute
	}

	store := newLimiterStore(float64(config.RequestsPerSecond), config.Burst, config.CleanupInterval, config.MaxAge)
	go store.cleanup()

	return func(req *gale.Request, resp *gale.Response, next gale.Next, captures gale.Captures) {
		entry := store.get(config.KeyFunc(req))
		if ok, retryIn := entry.allow(); !ok {
			if config.Handler != nil {
				config.Handler(req, resp, retryIn)
				return
			}
			resp.Reset()
			resp.Status = 429
			resp.WriteString("rate limit exceeded")
			return
		}
		next(req, resp)
	}
}

type limiterStore struct {
	mu              sync.Mutex
	buckets         map[string]*tokenBucket
	rate            float64
	burst           int
	cleanupInterval time.Duration
	maxAge          time.Duration
}

func newLimiterStore(rate float64, burst int, cleanupInterval, maxAge time.Duration) *limiterStore {
	return &limiterStore{
		buckets:         make(map[string]*tokenBucket),
		rate:            rate,
		burst:           burst,
		cleanupInterval: cleanupInterval,
		maxAge:          maxAge,
	}
}

func (ls *limiterStore) get(key string) *tokenBucket {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	tb, ok := ls.buckets[key]
	if !ok {
		tb = newTokenBucket(ls.rate, ls.burst)
		ls.buckets[key] = tb
	}
	return tb
}

func (ls *limiterStore) cleanup() {
	ticker := time.NewTicker(ls.cleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		ls.mu.Lock()
		for key, tb := range ls.buckets {
			tb.mu.Lock()
			idle := now.Sub(tb.lastAccess)
			tb.mu.Unlock()
			if idle > ls.maxAge {
				delete(ls.buckets, key)
			}
		}
		ls.mu.Unlock()
	}
}

// tokenBucket implements classic token-bucket rate limiting: tokens
// refill continuously at rate per second, capped at burst, and each
// request consumes one.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
	lastAccess time.Time
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	now := time.Now()
	return &tokenBucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: rate,
		lastRefill: now,
		lastAccess: now,
	}
}

func (tb *tokenBucket) allow() (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.maxTokens {
		tb.tokens = tb.maxTokens
	}
	tb.lastRefill = now
	tb.lastAccess = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true, 0
	}

	needed := 1.0 - tb.tokens
	return false, time.Duration(needed / tb.refillRate * float64(time.Second))
}
