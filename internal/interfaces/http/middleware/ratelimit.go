package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/turtacn/leadscore/pkg/errors"
)

// RateLimitConfig configures the per-client limiter.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64
	// Burst is the bucket size per client.
	Burst int
	// IdleTTL evicts limiters of clients not seen for this long.
	IdleTTL time.Duration
	// KeyFunc extracts the client key. Defaults to the remote IP.
	KeyFunc func(r *http.Request) string
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps one token bucket per client key.
type ClientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

// NewClientLimiter creates a ClientLimiter.
func NewClientLimiter(rps float64, burst int, idleTTL time.Duration) *ClientLimiter {
	if burst <= 0 {
		burst = 1
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &ClientLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Reserve takes a token for key. When none is available it returns false
// and the delay until the next token.
func (l *ClientLimiter) Reserve(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)

	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now

	res := c.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Clients returns the number of tracked client keys.
func (l *ClientLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *ClientLimiter) evict(now time.Time) {
	for k, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idleTTL {
			delete(l.clients, k)
		}
	}
}

// RateLimit returns middleware that rejects requests over the per-client
// rate with 429 and a Retry-After header.
func RateLimit(config RateLimitConfig) func(http.Handler) http.Handler {
	limiter := NewClientLimiter(config.RequestsPerSecond, config.Burst, config.IdleTTL)
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = remoteIP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := limiter.Reserve(keyFunc(r))
			if !ok {
				secs := int(retry.Seconds())
				if retry > time.Duration(secs)*time.Second {
					secs++
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"code":    errors.ErrCodeTooManyRequests.String(),
					"message": errors.DefaultMessageForCode(errors.ErrCodeTooManyRequests),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

//Personal.AI order the ending
