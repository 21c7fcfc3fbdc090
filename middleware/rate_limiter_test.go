package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientIPGeneric_DirectRemote(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "203.0.113.5:54321"
	ip := clientIPGeneric(req, nil)
	if ip != "203.0.113.5" {
		t.Fatalf("expected direct remote IP, got %s", ip)
	}
}

func TestClientIPGeneric_TrustedProxyXFF(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "198.51.100.10:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 198.51.100.10")
	ip := clientIPGeneric(req, []string{"198.51.100.10"})
	if ip != "203.0.113.7" {
		t.Fatalf("expected X-Forwarded-For first value, got %s", ip)
	}
}

func TestClientIPGeneric_UntrustedProxyIgnoresXFF(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "198.51.100.11:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.8, 198.51.100.11")
	ip := clientIPGeneric(req, []string{"198.51.100.10"})
	if ip != "198.51.100.11" {
		t.Fatalf("expected remote IP when proxy untrusted, got %s", ip)
	}
}

func TestCounterService_FixedWindow(t *testing.T) {
	c := NewCounterService(nil)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, ttl := c.Incr(ctx, "k", time.Minute)
		if n != want {
			t.Fatalf("count = %d, want %d", n, want)
		}
		if ttl <= 0 || ttl > time.Minute {
			t.Fatalf("ttl out of range: %v", ttl)
		}
	}

	c.Reset(ctx, "k")
	if n, _ := c.Incr(ctx, "k", time.Minute); n != 1 {
		t.Fatalf("count after reset = %d, want 1", n)
	}
}

func TestIPRateLimiter_BlocksOverLimit(t *testing.T) {
	l := NewIPRateLimiter(NewCounterService(nil), 2, time.Minute, nil)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "http://example.local/v1/payments/qris/callback", nil)
		req.RemoteAddr = "203.0.113.9:1000"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on 429")
	}
}

func TestWebhookLimiter_WhitelistBypasses(t *testing.T) {
	l := NewWebhookLimiter(NewCounterService(nil), 1, time.Minute, []string{"203.0.113.20"})
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("POST", "http://example.local/v1/payments/qris/callback", nil)
		req.RemoteAddr = "203.0.113.20:2000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("whitelisted request %d status = %d, want 200", i, rr.Code)
		}
	}
}

func TestLoginGuard_ProgressiveLockout(t *testing.T) {
	g := NewLoginGuard(NewCounterService(nil))
	ctx := context.Background()

	if locked, _ := g.IsLocked(ctx, "ops"); locked {
		t.Fatal("fresh account should not be locked")
	}

	g.RecordFailure(ctx, "ops")
	locked, ttl := g.IsLocked(ctx, "ops")
	if !locked {
		t.Fatal("expected lockout after failure")
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("first lockout ttl = %v, want <= 1m", ttl)
	}

	g.Reset(ctx, "ops")
	if locked, _ := g.IsLocked(ctx, "ops"); locked {
		t.Fatal("reset should clear the lockout")
	}
}
