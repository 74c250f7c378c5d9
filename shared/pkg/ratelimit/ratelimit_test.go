package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	limiter := NewLimiter(10, 2)

	if !limiter.Allow("proj") {
		t.Error("First event should be allowed")
	}
	if !limiter.Allow("proj") {
		t.Error("Second event should be allowed")
	}
	if limiter.Allow("proj") {
		t.Error("Third event should be rate limited")
	}
	if !limiter.Allow("other") {
		t.Error("Keys should have independent buckets")
	}

	time.Sleep(150 * time.Millisecond)

	if !limiter.Allow("proj") {
		t.Error("Event after refill should be allowed")
	}
}

func TestLimiterDisabled(t *testing.T) {
	limiter := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("proj") {
			t.Fatalf("Event %d should be allowed with limiting disabled", i)
		}
	}
}

func TestWait(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "proj"); err != nil {
		t.Fatalf("First wait should succeed: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "proj"); err == nil {
		t.Error("Wait should fail when the deadline is shorter than the refill")
	}
}

func TestMiddleware(t *testing.T) {
	limiter := NewLimiter(10, 1)
	handler := limiter.Middleware(IPKeyFunc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/reconcile", nil))
	if first.Code != http.StatusAccepted {
		t.Errorf("First request should succeed, got status %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/reconcile", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("Second request should be rate limited, got status %d", second.Code)
	}
}

func TestIPKeyFunc(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	if key := IPKeyFunc(req); key != "192.168.1.1" {
		t.Errorf("Expected host only, got %s", key)
	}

	req.RemoteAddr = "not-an-addr"
	if key := IPKeyFunc(req); key != "not-an-addr" {
		t.Errorf("Expected raw address fallback, got %s", key)
	}
}
