// Package ratelimit throttles mutating API requests per client address.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/clubreserve/internal/api/apiutil"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds rate limit configuration.
type Config struct {
	WritesPerWindow int           // Max mutating requests per client per window (default: 120)
	Window          time.Duration // Fixed window length (default: 1m)
	TrustProxy      bool          // Charge X-Real-IP / X-Forwarded-For clients instead of the proxy

	// Clock for testing (nil uses real time)
	Clock Clock
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		WritesPerWindow: 120,
		Window:          time.Minute,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type entry struct {
	count   int
	firstAt time.Time
	lastAt  time.Time
}

// Limiter counts requests per hashed client key in fixed windows.
type Limiter struct {
	config *Config
	clock  Clock
	mu     sync.Mutex
	byKey  map[string]*entry

	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

// New creates a new rate limiter with the given config.
func New(cfg *Config) *Limiter {
	defaults := DefaultConfig()
	if cfg == nil {
		cfg = defaults
	}
	if cfg.WritesPerWindow <= 0 {
		cfg.WritesPerWindow = defaults.WritesPerWindow
	}
	if cfg.Window <= 0 {
		cfg.Window = defaults.Window
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		byKey:         make(map[string]*entry),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine and releases resources.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// Allow records one request for key and reports whether it fits the window.
func (l *Limiter) Allow(key string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()
	hashed := hashKey("write:", key)

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.byKey[hashed]
	if e == nil || now.Sub(e.firstAt) >= l.config.Window {
		l.byKey[hashed] = &entry{count: 1, firstAt: now, lastAt: now}
		return LimitResult{Allowed: true, Remaining: l.config.WritesPerWindow - 1}
	}

	e.lastAt = now
	if e.count >= l.config.WritesPerWindow {
		return LimitResult{RetryAfter: l.config.Window - now.Sub(e.firstAt)}
	}
	e.count++
	return LimitResult{Allowed: true, Remaining: l.config.WritesPerWindow - e.count}
}

// Middleware rejects mutating requests over the limit with 429. Reads pass
// through uncounted.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		client := l.clientKey(r)
		result := l.Allow(client)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.config.WritesPerWindow))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			seconds := int(math.Ceil(result.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			log.Ctx(r.Context()).Warn().
				Str("event", "rate_limit_exceeded").
				Str("client", client).
				Str("path", r.URL.Path).
				Dur("retry_after", result.RetryAfter).
				Msg("Write rate limit exceeded")
			apiutil.Respond(w, r, http.StatusTooManyRequests,
				apiutil.ErrorResponse{Error: "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hashKey(prefix, value string) string {
	hash := sha256.Sum256([]byte(value))
	return prefix + hex.EncodeToString(hash[:8])
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.C:
					l.cleanup()
				}
			}
		}()
	})
}

func (l *Limiter) cleanup() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.byKey {
		if now.Sub(e.lastAt) > l.config.Window {
			delete(l.byKey, k)
		}
	}
}
