package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl := NewRateLimiter(3, time.Second)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.allow("203.0.113.7") {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if rl.allow("203.0.113.7") {
		t.Error("request over the limit should be denied")
	}

	// The limit is per client, not global.
	if !rl.allow("203.0.113.8") {
		t.Error("a different client should not be throttled")
	}
}

func TestRateLimiterRecoversAfterWindow(t *testing.T) {
	rl := NewRateLimiter(2, 100*time.Millisecond)
	defer rl.Stop()

	rl.allow("client")
	rl.allow("client")
	if rl.allow("client") {
		t.Fatal("third request inside the window should be denied")
	}

	time.Sleep(150 * time.Millisecond)

	if !rl.allow("client") {
		t.Error("request after the window elapsed should pass")
	}
}

func TestRateLimiterMiddlewareAnswers429JSON(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	like := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/posts/some-slug/like", nil)
		req.RemoteAddr = "198.51.100.4:55110"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	if rr := like(); rr.Code != http.StatusCreated {
		t.Fatalf("first request: got %d, want 201", rr.Code)
	}

	rr := like()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("429 body is not JSON: %v (%q)", err, rr.Body.String())
	}
	if body["error"] != "too many requests" {
		t.Errorf("error message: got %q", body["error"])
	}
}

func TestRateLimiterMiddlewareKeysOnForwardedIP(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:3000" // the proxy, same for everyone
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("203.0.113.1"); code != http.StatusOK {
		t.Fatalf("first client: got %d", code)
	}
	if code := send("203.0.113.1"); code != http.StatusTooManyRequests {
		t.Errorf("first client repeat: got %d, want 429", code)
	}
	if code := send("203.0.113.2"); code != http.StatusOK {
		t.Errorf("second client behind the same proxy: got %d, want 200", code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{"x-forwarded-for single", "10.0.0.1", "", "192.168.1.1:1234", "10.0.0.1"},
		{"x-forwarded-for chain keeps origin", "10.0.0.1, 172.16.0.1, 192.168.1.1", "", "192.168.1.1:1234", "10.0.0.1"},
		{"x-real-ip", "", "10.0.0.2", "192.168.1.1:1234", "10.0.0.2"},
		{"remote addr strips port", "", "", "192.168.1.1:1234", "192.168.1.1"},
		{"remote addr without port", "", "", "192.168.1.1", "192.168.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(10, 100*time.Millisecond)
	defer rl.Stop()

	rl.allow("stale")
	rl.allow("active")

	// Let both age past the window, then refresh one.
	time.Sleep(150 * time.Millisecond)
	rl.allow("active")

	rl.cleanup()

	rl.mu.RLock()
	_, staleKept := rl.clients["stale"]
	_, activeKept := rl.clients["active"]
	rl.mu.RUnlock()

	if staleKept {
		t.Error("stale client should be evicted")
	}
	if !activeKept {
		t.Error("active client should survive cleanup")
	}
}
