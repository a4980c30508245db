package ratelimit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func newLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(srv.Close)

	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewLimiter(rdb), srv
}

func TestAllow_CountsWithinWindow(t *testing.T) {
	l, _ := newLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "ratelimit:test:1.2.3.4", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !ok {
			t.Fatalf("request %d should be within limit", i+1)
		}
	}

	ok, err := l.Allow(ctx, "ratelimit:test:1.2.3.4", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if ok {
		t.Fatalf("fourth request should exceed limit of 3")
	}
}

func TestAllow_WindowResets(t *testing.T) {
	l, srv := newLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		l.Allow(ctx, "k", 1, time.Minute)
	}
	if ok, _ := l.Allow(ctx, "k", 1, time.Minute); ok {
		t.Fatalf("expected limit exceeded")
	}

	srv.FastForward(61 * time.Second)

	if ok, err := l.Allow(ctx, "k", 1, time.Minute); err != nil || !ok {
		t.Fatalf("expected fresh window to admit, ok=%v err=%v", ok, err)
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l, _ := newLimiter(t)
	ctx := context.Background()

	l.Allow(ctx, "ratelimit:api:1.1.1.1", 1, time.Minute)
	if ok, _ := l.Allow(ctx, "ratelimit:api:1.1.1.1", 1, time.Minute); ok {
		t.Fatalf("first ip should be limited")
	}
	if ok, _ := l.Allow(ctx, "ratelimit:api:2.2.2.2", 1, time.Minute); !ok {
		t.Fatalf("second ip must not share the first ip's window")
	}
}

func TestMiddleware_Returns429WithBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, _ := newLimiter(t)

	r := gin.New()
	r.GET("/x", l.Middleware(Policy{Scope: "t", Limit: 1, Window: time.Minute, RetryAfter: "1 minute"}), func(c *gin.Context) {
		c.Status(200)
	})

	first := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Real-Ip", "9.9.9.9")
	r.ServeHTTP(first, req)
	if first.Code != 200 {
		t.Fatalf("first request should pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	r.ServeHTTP(second, req)
	if second.Code != 429 {
		t.Fatalf("second request should be limited, got %d", second.Code)
	}
}

func TestMiddleware_SkipAuthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, _ := newLimiter(t)

	r := gin.New()
	r.GET("/x", l.Middleware(Policy{Scope: "p", Limit: 1, Window: time.Minute, SkipAuthorized: true}), func(c *gin.Context) {
		c.Status(200)
	})

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Real-Ip", "9.9.9.9")
	req.Header.Set("Authorization", "Bearer tok")

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != 200 {
			t.Fatalf("authorized requests should skip the limiter, got %d on attempt %d", w.Code, i+1)
		}
	}
}

func TestMiddleware_FailsOpenWhenRedisDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, srv := newLimiter(t)
	srv.Close()

	r := gin.New()
	r.GET("/x", l.Middleware(Policy{Scope: "t", Limit: 1, Window: time.Minute}), func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("limiter must fail open, got %d", w.Code)
	}
}
