package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a client against the test Valkey, skipping the
// test when it is unreachable. DB 15 isolates test keys from dev data.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, keyPrefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// create stores a session for an admin-ish user and returns its cookie.
func create(t *testing.T, store *Store, data *Data) *http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	id, err := store.Create(context.Background(), w, data)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatal("Create returned an empty session ID")
	}

	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSessionCookieContract(t *testing.T) {
	client := testValkeyClient(t)
	store := NewStore(client, false)

	cookie := create(t, store, &Data{
		UserID: uuid.New(), Email: "contract@test.local",
		DisplayName: "Contract", Role: "admin",
	})

	// The API clients, the CSRF layer, and the auth middleware all key off
	// this exact cookie shape.
	if cookie.Name != "qp_session" {
		t.Errorf("cookie name: got %q, want qp_session", cookie.Name)
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if cookie.Secure {
		t.Error("Secure must be off when the store is built with secure=false")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite: got %v, want Lax", cookie.SameSite)
	}
	if cookie.Path != "/" {
		t.Errorf("path: got %q, want /", cookie.Path)
	}
	if want := int(DefaultTTL.Seconds()); cookie.MaxAge != want {
		t.Errorf("MaxAge: got %d, want %d", cookie.MaxAge, want)
	}
}

func TestSessionSecureFlagBehindTLS(t *testing.T) {
	client := testValkeyClient(t)
	store := NewStore(client, true)

	cookie := create(t, store, &Data{
		UserID: uuid.New(), Email: "tls@test.local",
		DisplayName: "TLS", Role: "admin",
	})

	if !cookie.Secure {
		t.Error("Secure must be on when the store is built with secure=true")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	client := testValkeyClient(t)
	store := NewStore(client, false)
	ctx := context.Background()

	data := &Data{
		UserID: uuid.New(), Email: "roundtrip@test.local",
		DisplayName: "Round Trip", Role: "editor", TwoFADone: false,
	}
	cookie := create(t, store, data)

	// Sessions land in Valkey under the session: prefix.
	keys, err := client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) == 0 {
		t.Fatal("no session key stored in Valkey")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookie)

	got, err := store.Get(ctx, req)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected session data")
	}
	if got.UserID != data.UserID || got.Email != data.Email || got.Role != "editor" {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if got.TwoFADone {
		t.Error("fresh session must start with TwoFADone=false")
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped on create")
	}
}

func TestSessionGetWithoutCookie(t *testing.T) {
	client := testValkeyClient(t)
	store := NewStore(client, false)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	got, err := store.Get(context.Background(), req)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Error("no cookie should mean no session, not an error")
	}
}

func TestSessionGetUnknownID(t *testing.T) {
	client := testValkeyClient(t)
	store := NewStore(client, false)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "expired-or-forged"})

	got, err := store.Get(context.Background(), req)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Error("unknown session ID should resolve to nil")
	}
}

func TestSessionUpdateMarksTwoFADone(t *testing.T) {
	client := testValkeyClient(t)
	store := NewStore(client, false)
	ctx := context.Background()

	data := &Data{
		UserID: uuid.New(), Email: "twofa@test.local",
		DisplayName: "TwoFA", Role: "admin",
	}
	cookie := create(t, store, data)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/2fa/verify", nil)
	req.AddCookie(cookie)

	// This is what TwoFAVerify does after a valid TOTP code.
	data.TwoFADone = true
	if err := store.Update(ctx, req, data); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.Get(ctx, req)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if got == nil || !got.TwoFADone {
		t.Errorf("TwoFADone not persisted: %+v", got)
	}
}

func TestSessionUpdateWithoutCookie(t *testing.T) {
	client := testValkeyClient(t)
	store := NewStore(client, false)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/2fa/verify", nil)
	if err := store.Update(context.Background(), req, &Data{}); err == nil {
		t.Error("updating without a cookie should fail")
	}
}

func TestSessionDestroy(t *testing.T) {
	client := testValkeyClient(t)
	store := NewStore(client, false)
	ctx := context.Background()

	cookie := create(t, store, &Data{
		UserID: uuid.New(), Email: "logout@test.local",
		DisplayName: "Logout", Role: "admin",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(cookie)

	if err := store.Destroy(ctx, w, req); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	// The response must expire the cookie.
	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			cleared = true
			if c.MaxAge != -1 {
				t.Errorf("cleared cookie MaxAge: got %d, want -1", c.MaxAge)
			}
		}
	}
	if !cleared {
		t.Error("Destroy did not set an expiring cookie")
	}

	// And the stored session must be gone.
	if got, _ := store.Get(ctx, req); got != nil {
		t.Error("session still readable after Destroy")
	}
}

func TestSessionDestroyWithoutCookie(t *testing.T) {
	client := testValkeyClient(t)
	store := NewStore(client, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	if err := store.Destroy(context.Background(), w, req); err != nil {
		t.Errorf("Destroy without cookie should be a no-op, got %v", err)
	}
}
