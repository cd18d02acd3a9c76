package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/whoisalfaz/site-audit/internal/platform/requestid"
)

const clientIdleTTL = 10 * time.Minute

// ClientLimiter keeps one token bucket per client key. Buckets idle for
// longer than ten minutes are discarded.
type ClientLimiter struct {
	limit rate.Limit
	burst int

	mu        sync.Mutex
	clients   map[string]*clientBucket
	lastSweep time.Time
	now       func() time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter allows each client perMinute requests per minute, with
// bursts of up to perMinute.
func NewClientLimiter(perMinute int) *ClientLimiter {
	perMinute = max(perMinute, 1)
	return &ClientLimiter{
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   perMinute,
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

// Allow reports whether key may proceed now. When it may not, Allow also
// returns how long the client should wait.
func (l *ClientLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.clients[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (l *ClientLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < clientIdleTTL {
		return
	}
	for key, b := range l.clients {
		if now.Sub(b.lastSeen) > clientIdleTTL {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

// RateLimit returns middleware that answers 429 with a Retry-After header
// once a client IP exceeds its budget in l. The peer address is used as the
// key; forwarding headers are not trusted.
func RateLimit(l *ClientLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			ok, wait := l.Allow(ip)
			if !ok {
				retryAfter := max(int(wait.Round(time.Second)/time.Second), 1)
				requestid.Logger(r.Context(), logger).Warn("rate limit exceeded",
					"remote_ip", ip,
					"path", r.URL.Path,
					"retry_after_seconds", retryAfter,
				)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, "Too many audit requests. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
