// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// QuillPress API. Routes are organized into public, auth, and admin
// groups with appropriate middleware stacks.
package router

import (
	"github.com/go-chi/chi/v5"

	"quillpress/internal/handlers"
	"quillpress/internal/middleware"
	"quillpress/internal/session"
)

// Handlers bundles the handler groups the router wires up. Media and AI
// may be nil-backed internally; their endpoints degrade to 503.
type Handlers struct {
	Public  *handlers.Public
	Auth    *handlers.Auth
	Admin   *handlers.Admin
	AdminAI *handlers.AdminAI
	Media   *handlers.AdminMedia
}

// New creates the configured chi router with all middleware and route
// groups wired up. writeLimiter throttles the anonymous write endpoints
// (comments, likes, login attempts) per client IP.
func New(sessionStore *session.Store, h Handlers, writeLimiter *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(sessionStore))

	// Health check, no auth, no CSRF.
	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CSRF)

		// Public reader endpoints.
		r.Get("/posts", h.Public.ListPosts)
		r.Get("/posts/{slug}", h.Public.GetPost)
		r.Get("/posts/{slug}/comments", h.Public.ListComments)
		r.Get("/categories", h.Public.ListCategories)
		r.Get("/tags", h.Public.ListTags)

		// Anonymous writes are rate limited per IP.
		r.Group(func(r chi.Router) {
			r.Use(writeLimiter.Middleware)
			r.Post("/posts/{slug}/view", h.Public.RecordView)
			r.Post("/posts/{slug}/like", h.Public.LikePost)
			r.Post("/posts/{slug}/comments", h.Public.CreateComment)
			r.Post("/comments/{id}/like", h.Public.LikeComment)
		})

		// Authentication.
		r.Route("/auth", func(r chi.Router) {
			r.With(writeLimiter.Middleware).Post("/login", h.Auth.Login)
			r.Post("/logout", h.Auth.Logout)

			// Requires a session but not completed 2FA.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/me", h.Auth.Me)
				r.Post("/2fa/setup", h.Auth.TwoFASetup)
				r.Post("/2fa/verify", h.Auth.TwoFAVerify)
			})
		})

		// Authenticated and 2FA-verified admin area.
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)

			r.Route("/posts", func(r chi.Router) {
				r.Get("/", h.Admin.ListPosts)
				r.Post("/", h.Admin.CreatePost)
				r.Get("/{id}", h.Admin.GetPost)
				r.Put("/{id}", h.Admin.UpdatePost)
				r.Delete("/{id}", h.Admin.DeletePost)
			})

			r.Route("/comments", func(r chi.Router) {
				r.Get("/pending", h.Admin.ListPendingComments)
				r.Post("/{id}/approve", h.Admin.ApproveComment)
				r.Delete("/{id}", h.Admin.DeleteComment)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Post("/", h.Admin.CreateCategory)
				r.Put("/{id}", h.Admin.UpdateCategory)
				r.Delete("/{id}", h.Admin.DeleteCategory)
			})

			r.Route("/tags", func(r chi.Router) {
				r.Get("/", h.Admin.ListTags)
				r.Post("/", h.Admin.CreateTag)
				r.Delete("/{id}", h.Admin.DeleteTag)
			})

			// User management, admin role only.
			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/", h.Admin.ListUsers)
				r.Post("/", h.Admin.CreateUser)
				r.Post("/{id}/reset-2fa", h.Admin.ResetUserTOTP)
				r.Delete("/{id}", h.Admin.DeleteUser)
			})

			// AI providers and the drafting pipeline.
			r.Route("/ai", func(r chi.Router) {
				r.Get("/providers", h.AdminAI.ListProviders)
				r.Post("/provider", h.AdminAI.SetProvider)
			})
			r.Route("/pipeline", func(r chi.Router) {
				r.Post("/", h.AdminAI.StartPipeline)
				r.Get("/jobs", h.AdminAI.ListPipelineJobs)
				r.Get("/jobs/{id}", h.AdminAI.GetPipelineJob)
			})

			// Media bucket.
			r.Route("/media", func(r chi.Router) {
				r.Post("/", h.Media.Upload)
				r.Delete("/", h.Media.Delete)
				r.Post("/generate", h.Media.Generate)
			})
		})
	})

	return r
}
