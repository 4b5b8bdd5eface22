package middleware

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter answers whether a request keyed by {route}:{fingerprint} is
// within its window. retryAfter is seconds until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter int, err error)
}

type RateLimitConfig struct {
	MaxRequests   int
	WindowSeconds int
}

// MemoryLimiter is a sliding-window limiter backed by an in-process map.
// Expired windows are garbage-collected periodically.
type MemoryLimiter struct {
	mu      sync.RWMutex
	windows map[string]*rateLimitWindow
	cfg     RateLimitConfig
	logger  *log.Logger
}

type rateLimitWindow struct {
	count       int
	windowStart time.Time
}

func NewMemoryLimiter(cfg RateLimitConfig) *MemoryLimiter {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 120
	}
	if cfg.WindowSeconds == 0 {
		cfg.WindowSeconds = 60
	}

	l := &MemoryLimiter{
		windows: make(map[string]*rateLimitWindow),
		cfg:     cfg,
		logger:  log.New(log.Writer(), "[RATE-LIMIT] ", log.LstdFlags),
	}

	go l.cleanup()

	return l
}

func (l *MemoryLimiter) window() time.Duration {
	return time.Duration(l.cfg.WindowSeconds) * time.Second
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	now := time.Now()

	// Fast path: active window under read lock. The count++ race under
	// RLock is acceptable for a soft limit.
	l.mu.RLock()
	w, exists := l.windows[key]
	if exists && now.Sub(w.windowStart) <= l.window() {
		w.count++
		count := w.count
		start := w.windowStart
		l.mu.RUnlock()

		if count > l.cfg.MaxRequests {
			retry := int(l.window().Seconds() - now.Sub(start).Seconds())
			if retry < 1 {
				retry = 1
			}
			l.logger.Printf("🚫 Rate limit exceeded: key=%s count=%d limit=%d", key, count, l.cfg.MaxRequests)
			return false, retry, nil
		}
		return true, 0, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists = l.windows[key]
	if exists && now.Sub(w.windowStart) <= l.window() {
		w.count++
		if w.count > l.cfg.MaxRequests {
			return false, l.cfg.WindowSeconds, nil
		}
		return true, 0, nil
	}

	l.windows[key] = &rateLimitWindow{count: 1, windowStart: now}
	return true, 0, nil
}

func (l *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, w := range l.windows {
			if now.Sub(w.windowStart) > 2*l.window() {
				delete(l.windows, key)
			}
		}
		l.mu.Unlock()
	}
}

// Stats returns current limiter statistics.
func (l *MemoryLimiter) Stats() map[string]interface{} {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return map[string]interface{}{
		"active_windows": len(l.windows),
		"max_requests":   l.cfg.MaxRequests,
		"window_seconds": l.cfg.WindowSeconds,
	}
}

// RedisLimiter shares windows across replicas with a fixed-window
// INCR + EXPIRE scheme.
type RedisLimiter struct {
	client *redis.Client
	cfg    RateLimitConfig
	logger *log.Logger
}

func NewRedisLimiter(client *redis.Client, cfg RateLimitConfig) *RedisLimiter {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 120
	}
	if cfg.WindowSeconds == 0 {
		cfg.WindowSeconds = 60
	}
	return &RedisLimiter{
		client: client,
		cfg:    cfg,
		logger: log.New(log.Writer(), "[RATE-LIMIT] ", log.LstdFlags),
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	window := time.Duration(l.cfg.WindowSeconds) * time.Second
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(l.cfg.WindowSeconds))

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		// Fail open: a limiter outage should not take the API down.
		l.logger.Printf("⚠️  Redis limiter unavailable, allowing request: %v", err)
		return true, 0, nil
	}
	if count == 1 {
		l.client.Expire(ctx, redisKey, window)
	}
	if int(count) > l.cfg.MaxRequests {
		ttl, _ := l.client.TTL(ctx, redisKey).Result()
		retry := int(ttl.Seconds())
		if retry < 1 {
			retry = l.cfg.WindowSeconds
		}
		return false, retry, nil
	}
	return true, 0, nil
}

// RateLimit enforces the limiter per route and caller fingerprint. The
// fingerprint is the tenant when known, otherwise the client IP.
func RateLimit(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fingerprint := TenantFromContext(r.Context())
			if fingerprint == "" {
				host, _, err := net.SplitHostPort(r.RemoteAddr)
				if err != nil {
					host = r.RemoteAddr
				}
				fingerprint = host
			}
			key := r.URL.Path + ":" + fingerprint

			allowed, retryAfter, err := limiter.Allow(r.Context(), key)
			if err == nil && !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error":"rate limit exceeded","retry_after_seconds":%d}`, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
