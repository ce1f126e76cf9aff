package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func requestFrom(e *echo.Echo, ip string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/api/citas", nil)
	req.RemoteAddr = ip + ":5000"
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRateLimit_RequestsWithinLimit(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})(okHandler)

	for i := 0; i < 5; i++ {
		c, rec := requestFrom(e, "10.0.0.1")
		if err := handler(c); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("request %d: expected X-RateLimit-Limit '10', got %q", i+1, got)
		}
	}
}

func TestRateLimit_ExceedsLimit(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})(okHandler)

	c, _ := requestFrom(e, "10.0.0.2")
	if err := handler(c); err != nil {
		t.Fatalf("first request: %v", err)
	}

	c, rec := requestFrom(e, "10.0.0.2")
	err := handler(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if he.Message != "Demasiadas solicitudes" {
		t.Errorf("unexpected message %v", he.Message)
	}

	retry, convErr := strconv.Atoi(rec.Header().Get("Retry-After"))
	if convErr != nil || retry < 1 {
		t.Errorf("expected Retry-After >= 1, got %q", rec.Header().Get("Retry-After"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("expected X-RateLimit-Remaining '0', got %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_PerClientIsolation(t *testing.T) {
	e := echo.New()
	handler := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})(okHandler)

	c, _ := requestFrom(e, "10.0.0.3")
	if err := handler(c); err != nil {
		t.Fatalf("client a first request: %v", err)
	}
	c, _ = requestFrom(e, "10.0.0.3")
	if err := handler(c); err == nil {
		t.Fatal("client a second request: expected rate limit error")
	}
	c, _ = requestFrom(e, "10.0.0.4")
	if err := handler(c); err != nil {
		t.Fatalf("client b first request: %v", err)
	}
}

func TestRateLimit_DefaultConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 50 || cfg.BurstSize != 100 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestRateLimiterStore_EvictsIdleClients(t *testing.T) {
	store := newRateLimiterStore(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTTL: time.Minute})
	now := time.Now()

	a := store.get("a", now)
	if store.get("a", now) != a {
		t.Error("expected the same limiter for the same key")
	}
	if store.get("b", now) == a {
		t.Error("expected a different limiter for a different key")
	}

	store.get("c", now.Add(2*time.Minute))
	if _, ok := store.clients["a"]; ok {
		t.Error("expected idle client to be evicted")
	}
	if _, ok := store.clients["c"]; !ok {
		t.Error("expected the current client to be kept")
	}
}
