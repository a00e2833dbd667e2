package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"atsengine/internal/errors"
	"atsengine/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 10 * time.Minute
	limiterIdleTTL    = 10 * time.Minute
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LimiterManager keeps one token bucket per client key and forgets keys
// that stay idle longer than limiterIdleTTL.
type LimiterManager struct {
	mu       sync.Mutex
	buckets  map[string]*clientBucket
	perSec   rate.Limit
	burst    int
	rejected atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
	logger   *errors.Logger
}

// RateLimiter is the limiter used by the server middleware.
type RateLimiter = LimiterManager

// NewRateLimiter allows requestsPerMin per key with burstCapacity tokens
// and starts the idle sweeper. Close stops it.
func NewRateLimiter(requestsPerMin, burstCapacity int, logger *errors.Logger) *LimiterManager {
	m := &LimiterManager{
		buckets: make(map[string]*clientBucket),
		perSec:  rate.Every(time.Minute / time.Duration(max(requestsPerMin, 1))),
		burst:   max(burstCapacity, 1),
		stop:    make(chan struct{}),
		logger:  logger,
	}
	go m.sweep(limiterSweepEvery)
	return m
}

// Allow takes a token from key's bucket, creating the bucket on first use.
func (m *LimiterManager) Allow(key string) bool {
	now := time.Now()

	m.mu.Lock()
	b, ok := m.buckets[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(m.perSec, m.burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now
	m.mu.Unlock()

	if b.limiter.AllowN(now, 1) {
		return true
	}
	m.rejected.Add(1)
	return false
}

// GetStats reports the limiter settings and counters for /stats.
func (m *LimiterManager) GetStats() map[string]any {
	m.mu.Lock()
	active := len(m.buckets)
	m.mu.Unlock()

	return map[string]any{
		"enabled":           true,
		"active_limiters":   active,
		"rate_per_minute":   float64(m.perSec) * 60,
		"burst_capacity":    m.burst,
		"rejected_requests": m.rejected.Load(),
	}
}

func (m *LimiterManager) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			m.evictIdle(now.Add(-limiterIdleTTL))
		case <-m.stop:
			return
		}
	}
}

func (m *LimiterManager) evictIdle(cutoff time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, b := range m.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(m.buckets, key)
		}
	}
	if m.logger != nil {
		m.logger.Debug("Evicted idle rate limiters", "remaining", len(m.buckets))
	}
}

// Close stops the sweeper. It is idempotent.
func (m *LimiterManager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// rateLimitMiddleware rejects requests over the per-client budget with 429.
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimiter == nil || s.RateLimit == nil || !s.RateLimit.Enabled {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	var om *observability.ObservabilityManager
	if s.Engine != nil {
		om = s.Engine.Observability
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if key == "" {
				next(w, r)
				return
			}

			if !s.RateLimiter.Allow(key) {
				s.Logger.Info("Rate limit exceeded",
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r))
				om.RecordBusinessMetric(r.Context(), observability.MetricRateLimitHit, false,
					attribute.String("endpoint", r.URL.Path))
				w.Header().Set("Retry-After", "60")
				writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

// getRateLimitKey prefers the API key when byAPIKey is set and one is
// present, then the client IP.
func getRateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if apiKey := apiKeyFromRequest(r); apiKey != "" {
			return "api:" + apiKey
		}
	}
	if byIP {
		return "ip:" + getClientIP(r)
	}
	return ""
}

// getClientIP returns the first valid address from X-Forwarded-For, then
// X-Real-IP, then the connection's remote host.
func getClientIP(r *http.Request) string {
	for part := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := strings.TrimSpace(part); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
