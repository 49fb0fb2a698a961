// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler
// integration tests. Tests are skipped when PostgreSQL or Valkey are
// unavailable.
package handlers

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"quillpress/internal/ai"
	"quillpress/internal/blog"
	"quillpress/internal/cache"
	"quillpress/internal/database"
	"quillpress/internal/middleware"
	"quillpress/internal/models"
	"quillpress/internal/session"
	"quillpress/internal/store"
)

// mockAIProvider implements ai.Provider for handler tests.
type mockAIProvider struct {
	name     string
	response string
	err      error
}

func (m *mockAIProvider) Name() string { return m.name }
func (m *mockAIProvider) Generate(_ context.Context, _, _ string) (string, error) {
	return m.response, m.err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "quillpress")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "quillpress")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		// Clean up test session and cache keys.
		for _, pattern := range []string{"session:*", "resp:*", "pipeline:job:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB       *sql.DB
	Valkey   *redis.Client
	Sessions *session.Store
	Store    *store.Store
	Blog     *blog.Service
	Cache    *cache.ResponseCache
	Registry *ai.Registry
	Public   *Public
	Auth     *Auth
	Admin    *Admin
	AdminAI  *AdminAI
}

// newTestEnv creates a complete test environment with all handler
// dependencies wired to the test database and Valkey.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	vk := testValkeyClient(t)

	st := store.New(db)
	svc := blog.NewService(st)
	sessions := session.NewStore(vk, false)
	rc := cache.NewResponseCache(vk, time.Minute)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	registry := ai.NewRegistry("test", map[string]ai.ProviderConfig{})
	registry.Register("test", &mockAIProvider{name: "test", response: "mock response"})

	return &testEnv{
		DB:       db,
		Valkey:   vk,
		Sessions: sessions,
		Store:    st,
		Blog:     svc,
		Cache:    rc,
		Registry: registry,
		Public:   NewPublic(svc, st, rc, registry, logger),
		Auth:     NewAuth(st.User, sessions, logger),
		Admin:    NewAdmin(svc, st, rc, logger),
		AdminAI:  NewAdminAI(registry, nil, logger),
	}
}

// testSession creates session data the way LoadSession would attach it.
func testSession(userID uuid.UUID, email, role string, twoFADone bool) *session.Data {
	return &session.Data{
		UserID:      userID,
		Email:       email,
		DisplayName: "Test User",
		Role:        role,
		TwoFADone:   twoFADone,
		CreatedAt:   time.Now(),
	}
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withSession attaches session data to a request using the middleware key.
func withSession(r *http.Request, sess *session.Data) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.SessionKey, sess))
}

// testAuthor inserts a throwaway author and registers cleanup.
func testAuthor(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	suffix := uuid.NewString()[:8]
	var id uuid.UUID
	err := db.QueryRow(`
		INSERT INTO users (username, email, password_hash, display_name, role)
		VALUES ($1, $2, 'x', 'Test Author', 'author')
		RETURNING id
	`, "test-author-"+suffix, "author-"+suffix+"@test.local").Scan(&id)
	if err != nil {
		t.Fatalf("insert test author: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM users WHERE id = $1", id) })
	return id
}

// testCategory inserts a throwaway category and registers cleanup.
func testCategory(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	suffix := uuid.NewString()[:8]
	var id uuid.UUID
	err := db.QueryRow(`
		INSERT INTO categories (name, slug) VALUES ($1, $2) RETURNING id
	`, "Test Cat "+suffix, "test-cat-"+suffix).Scan(&id)
	if err != nil {
		t.Fatalf("insert test category: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM categories WHERE id = $1", id) })
	return id
}

// testPost creates a post through the store and registers cleanup.
func testPost(t *testing.T, env *testEnv, authorID, categoryID uuid.UUID, status models.PostStatus) *models.Post {
	t.Helper()
	suffix := uuid.NewString()[:8]
	post := &models.Post{
		Title:      "Handler Test Post " + suffix,
		Slug:       "handler-test-" + suffix,
		Excerpt:    "An excerpt.",
		Content:    "# Heading\n\nBody text.",
		CategoryID: categoryID,
		Tags:       models.TagList{"testing"},
		Status:     status,
		AuthorID:   authorID,
	}
	if status == models.PostStatusPublished {
		now := time.Now()
		post.PublishedAt = &now
	}
	created, err := env.Store.Post.Create(post)
	if err != nil {
		t.Fatalf("create test post: %v", err)
	}
	t.Cleanup(func() {
		env.DB.Exec("DELETE FROM comments WHERE post_id = $1", created.ID)
		env.DB.Exec("DELETE FROM posts WHERE id = $1", created.ID)
	})
	return created
}
