package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterService owns every abuse counter in the process. It is
// constructed once at startup and passed to whoever needs counting;
// there are no package-level counter maps. With a Redis client the
// counters are shared across instances, without one they live in
// process memory with the same fixed-window semantics.
type CounterService struct {
	rdb *redis.Client

	mu  sync.Mutex
	mem map[string]*memWindow
}

type memWindow struct {
	count   int64
	resetAt time.Time
}

func NewCounterService(rdb *redis.Client) *CounterService {
	return &CounterService{
		rdb: rdb,
		mem: make(map[string]*memWindow),
	}
}

// Incr bumps the counter for key within a fixed window and returns the
// new count plus the time left until the window resets.
func (c *CounterService) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration) {
	if c.rdb != nil {
		n, err := c.rdb.Incr(ctx, key).Result()
		if err == nil {
			if n == 1 {
				_ = c.rdb.Expire(ctx, key, window).Err()
			}
			ttl, _ := c.rdb.TTL(ctx, key).Result()
			if ttl <= 0 {
				ttl = window
			}
			return n, ttl
		}
		// Redis down: fall through to memory so limits keep working.
	}

	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.mem[key]
	if w == nil || now.After(w.resetAt) {
		w = &memWindow{resetAt: now.Add(window)}
		c.mem[key] = w
	}
	w.count++
	return w.count, time.Until(w.resetAt)
}

// Reset clears the counter for key.
func (c *CounterService) Reset(ctx context.Context, keys ...string) {
	if c.rdb != nil {
		if err := c.rdb.Del(ctx, keys...).Err(); err == nil {
			return
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.mem, k)
	}
}

// Sweep drops expired in-memory windows. Run periodically from main.
func (c *CounterService) Sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, w := range c.mem {
		if now.After(w.resetAt) {
			delete(c.mem, k)
		}
	}
}

// clientIPGeneric returns the client IP string. If trustedCIDR is
// provided, X-Forwarded-For / X-Real-IP headers are honored when the
// remote addr is inside one of the trusted CIDRs or IPs.
func clientIPGeneric(r *http.Request, trustedCIDR []string) string {
	remoteHost, _, _ := net.SplitHostPort(r.RemoteAddr)
	remoteIP := net.ParseIP(remoteHost)
	trusted := false
	for _, cidr := range trustedCIDR {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if strings.Contains(cidr, "/") {
			if _, ipnet, err := net.ParseCIDR(cidr); err == nil {
				if remoteIP != nil && ipnet.Contains(remoteIP) {
					trusted = true
					break
				}
			}
			continue
		}
		if ip := net.ParseIP(cidr); ip != nil && remoteIP != nil && ip.Equal(remoteIP) {
			trusted = true
			break
		}
	}
	if trusted {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if len(parts) > 0 {
				return strings.TrimSpace(parts[0])
			}
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return strings.TrimSpace(xr)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IPRateLimiter applies a per-IP fixed-window limit backed by the
// counter service. Whitelisted IPs bypass the limit entirely.
type IPRateLimiter struct {
	counters    *CounterService
	prefix      string
	limit       int
	window      time.Duration
	trustedCIDR []string
	whitelist   map[string]bool
}

func NewIPRateLimiter(counters *CounterService, limit int, window time.Duration, trustedCIDR []string) *IPRateLimiter {
	return &IPRateLimiter{
		counters:    counters,
		prefix:      "rl:ip",
		limit:       limit,
		window:      window,
		trustedCIDR: trustedCIDR,
	}
}

// NewWebhookLimiter is an IP limiter with its own key space and a
// provider-IP whitelist, for the payment callback endpoint.
func NewWebhookLimiter(counters *CounterService, limit int, window time.Duration, whitelist []string) *IPRateLimiter {
	wl := make(map[string]bool, len(whitelist))
	for _, ip := range whitelist {
		if ip = strings.TrimSpace(ip); ip != "" {
			wl[ip] = true
		}
	}
	return &IPRateLimiter{
		counters:  counters,
		prefix:    "rl:wh",
		limit:     limit,
		window:    window,
		whitelist: wl,
	}
}

func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIPGeneric(r, l.trustedCIDR)
		if l.whitelist[ip] {
			next.ServeHTTP(w, r)
			return
		}

		count, ttl := l.counters.Incr(r.Context(), l.prefix+":"+ip, l.window)

		remaining := int64(l.limit) - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", l.limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if count > int64(l.limit) {
			retryAfter := int(ttl.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"message": "Terlalu banyak permintaan, Coba lagi nanti",
				"data":    map[string]interface{}{"retry_after_seconds": retryAfter},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoginGuard tracks failed admin logins with progressive lockouts
// (1m, 5m, 15m, then 30m), on top of the same counter service.
type LoginGuard struct {
	counters *CounterService
}

func NewLoginGuard(counters *CounterService) *LoginGuard {
	return &LoginGuard{counters: counters}
}

func lockDuration(failures int64) time.Duration {
	switch failures {
	case 1:
		return time.Minute
	case 2:
		return 5 * time.Minute
	case 3:
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}

// IsLocked reports whether the account is currently locked out and for
// how much longer.
func (g *LoginGuard) IsLocked(ctx context.Context, username string) (bool, time.Duration) {
	key := "login:lock:" + username
	if g.counters.rdb != nil {
		ttl, err := g.counters.rdb.TTL(ctx, key).Result()
		if err == nil && ttl > 0 {
			return true, ttl
		}
		if err == nil {
			return false, 0
		}
	}
	g.counters.mu.Lock()
	defer g.counters.mu.Unlock()
	if w := g.counters.mem[key]; w != nil && time.Now().Before(w.resetAt) {
		return true, time.Until(w.resetAt)
	}
	return false, 0
}

func (g *LoginGuard) RecordFailure(ctx context.Context, username string) {
	failures, _ := g.counters.Incr(ctx, "login:fail:"+username, 30*time.Minute)
	lockFor := lockDuration(failures)
	key := "login:lock:" + username
	if g.counters.rdb != nil {
		if err := g.counters.rdb.Set(ctx, key, "1", lockFor).Err(); err == nil {
			return
		}
	}
	g.counters.mu.Lock()
	defer g.counters.mu.Unlock()
	g.counters.mem[key] = &memWindow{count: 1, resetAt: time.Now().Add(lockFor)}
}

func (g *LoginGuard) Reset(ctx context.Context, username string) {
	g.counters.Reset(ctx, "login:fail:"+username, "login:lock:"+username)
}
