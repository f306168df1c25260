package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/resize.cheap/internal/logger"
)

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestID(r.Context())
	}))

	t.Run("echoes caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", "abc-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-Id"); got != "abc-123" {
			t.Errorf("X-Request-Id = %q, want abc-123", got)
		}
		if seen != "abc-123" {
			t.Errorf("context id = %q, want abc-123", seen)
		}
	})

	t.Run("generates id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", strings.Repeat("x", 200))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		got := rec.Header().Get("X-Request-Id")
		if got == "" || len(got) > 128 {
			t.Errorf("X-Request-Id = %q, want generated uuid", got)
		}
		if seen != got {
			t.Errorf("context id = %q, header = %q", seen, got)
		}
	})
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, h := range []string{"X-Frame-Options", "X-Content-Type-Options", "Content-Security-Policy"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set on plain http")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS missing behind https proxy")
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestCORSWithOrigins(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		devMode    bool
		method     string
		origin     string
		wantAllow  string
		wantStatus int
	}{
		{"listed origin", false, http.MethodGet, "https://resize.cheap", "https://resize.cheap", http.StatusOK},
		{"unlisted origin", false, http.MethodGet, "https://evil.example", "", http.StatusOK},
		{"localhost in dev", true, http.MethodGet, "http://localhost:5173", "http://localhost:5173", http.StatusOK},
		{"localhost in prod", false, http.MethodGet, "http://localhost:5173", "", http.StatusOK},
		{"preflight allowed", false, http.MethodOptions, "https://resize.cheap", "https://resize.cheap", http.StatusNoContent},
		{"preflight denied", false, http.MethodOptions, "https://evil.example", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := CORSWithOrigins([]string{"https://resize.cheap/"}, tt.devMode)(next)
			req := httptest.NewRequest(tt.method, "/v1/presets", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote addr", "10.0.0.1:5000", "", "10.0.0.1"},
		{"forwarded first hop", "10.0.0.1:5000", "203.0.113.9, 10.0.0.2", "203.0.113.9"},
		{"no port", "10.0.0.7", "", "10.0.0.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMemoryRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewMemoryRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	if !rl.Allow(ctx, "a") || !rl.Allow(ctx, "a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow(ctx, "a") {
		t.Error("third request in window should be limited")
	}
	if !rl.Allow(ctx, "b") {
		t.Error("other keys have their own window")
	}

	now = now.Add(time.Minute)
	if !rl.Allow(ctx, "a") {
		t.Error("new window should reset the count")
	}

	now = now.Add(3 * time.Minute)
	rl.Allow(ctx, "c")
	rl.mu.Lock()
	_, staleKept := rl.windows["b"]
	rl.mu.Unlock()
	if staleKept {
		t.Error("stale window was not swept")
	}
}

func TestHybridRateLimiter_MemoryOnly(t *testing.T) {
	hl := NewHybridRateLimiter(nil, 1, time.Minute)
	ctx := context.Background()

	if !hl.Allow(ctx, "k") {
		t.Fatal("first request should pass")
	}
	if hl.Allow(ctx, "k") {
		t.Error("second request should be limited")
	}
}

func TestOutputFilename(t *testing.T) {
	tests := []struct {
		uploaded string
		want     string
	}{
		{"", "req-1.webp"},
		{"photo.png", "photo.webp"},
		{"../../etc/passwd", "passwd.webp"},
		{".hidden", "hidden.webp"},
	}

	for _, tt := range tests {
		t.Run(tt.uploaded, func(t *testing.T) {
			if got := OutputFilename(tt.uploaded, "req-1", "webp"); got != tt.want {
				t.Errorf("OutputFilename(%q) = %q, want %q", tt.uploaded, got, tt.want)
			}
		})
	}
}

func TestIsAllowedSourceType(t *testing.T) {
	if !IsAllowedSourceType("image/PNG; charset=binary") {
		t.Error("image/png should be allowed")
	}
	if IsAllowedSourceType("text/html") {
		t.Error("text/html should be rejected")
	}
}
